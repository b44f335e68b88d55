package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gotd/td/session"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "session.json"), filepath.Join(dir, "contacts.json"), nil)
}

func TestCredentialRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	data, err := s.LoadCredential()
	if err != nil {
		t.Fatalf("LoadCredential on missing file: %v", err)
	}
	if data != nil {
		t.Errorf("expected nil credential before first save, got %q", data)
	}

	want := []byte("opaque-session-blob")
	if err := s.SaveCredential(want); err != nil {
		t.Fatalf("SaveCredential: %v", err)
	}
	got, err := s.LoadCredential()
	if err != nil {
		t.Fatalf("LoadCredential: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("credential = %q, want %q", got, want)
	}
}

func TestCredentialFilePermissions(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	if err := s.SaveCredential([]byte("secret")); err != nil {
		t.Fatalf("SaveCredential: %v", err)
	}
	info, err := os.Stat(s.sessionPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("credential file mode = %04o, want 0600", perm)
	}
}

func TestAllowListRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	want := map[string]AllowListEntry{
		"101": {Key: "101", DisplayName: "Alice Smith", UserID: 101, AccessHash: -7},
		"202": {Key: "202", DisplayName: "bob", UserID: 202, AccessHash: 9},
	}
	if err := s.SaveAllowList(want); err != nil {
		t.Fatalf("SaveAllowList: %v", err)
	}
	got := s.LoadAllowList()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadAllowList = %+v, want %+v", got, want)
	}
}

func TestAllowListMissingFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	got := s.LoadAllowList()
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty map for missing file, got %+v", got)
	}
}

func TestAllowListMalformedFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	if err := os.WriteFile(s.contactsPath, []byte("not json"), 0o600); err != nil {
		t.Fatalf("writing malformed file: %v", err)
	}
	got := s.LoadAllowList()
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty map for malformed file, got %+v", got)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	if err := s.SaveCredential([]byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAllowList(map[string]AllowListEntry{"1": {Key: "1"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := os.Stat(s.sessionPath); !os.IsNotExist(err) {
		t.Error("session file should be gone after reset")
	}
	if _, err := os.Stat(s.contactsPath); !os.IsNotExist(err) {
		t.Error("contacts file should be gone after reset")
	}
	// Resetting again is a no-op, not an error.
	if err := s.Reset(); err != nil {
		t.Errorf("second Reset: %v", err)
	}
}

func TestSessionStorageAdapter(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	storage := s.Credentials()
	ctx := context.Background()

	if _, err := storage.LoadSession(ctx); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("LoadSession on empty store = %v, want session.ErrNotFound", err)
	}

	if err := storage.StoreSession(ctx, []byte("blob")); err != nil {
		t.Fatalf("StoreSession: %v", err)
	}
	got, err := storage.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if string(got) != "blob" {
		t.Errorf("LoadSession = %q, want %q", got, "blob")
	}
}
