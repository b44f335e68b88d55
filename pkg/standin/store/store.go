// Package store persists the bot's two local artifacts: the opaque Telegram
// session credential and the allow-list of contacts the bot will talk to.
// Both live as flat files next to the config. Reads are tolerant: a missing
// or unreadable artifact yields an empty default so the bot can fall back to
// onboarding instead of crashing.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gotd/td/session"
)

// AllowListEntry is one allow-listed contact. The access hash is required by
// MTProto to address the peer across restarts without re-resolving the
// entity, so it is captured at onboarding time and persisted alongside the
// display metadata.
type AllowListEntry struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	UserID      int64  `json:"user_id"`
	AccessHash  int64  `json:"access_hash"`
}

// Store reads and writes the session credential and the allow-list file.
type Store struct {
	sessionPath  string
	contactsPath string
	logger       *slog.Logger
}

// New creates a Store backed by the given file paths.
func New(sessionPath, contactsPath string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessionPath:  sessionPath,
		contactsPath: contactsPath,
		logger:       logger.With("component", "store"),
	}
}

// LoadCredential returns the persisted session credential, or (nil, nil)
// when no credential has been saved yet.
func (s *Store) LoadCredential() ([]byte, error) {
	data, err := os.ReadFile(s.sessionPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session credential: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// SaveCredential durably overwrites the session credential. The write is
// atomic and fsynced: a crash after login but before this completes would
// force a full re-authentication, so the transport must not proceed to
// dialog or history fetches until this returns.
func (s *Store) SaveCredential(data []byte) error {
	if err := writeFileAtomic(s.sessionPath, data); err != nil {
		return fmt.Errorf("saving session credential: %w", err)
	}
	return nil
}

// LoadAllowList returns the persisted allow-list mapping. A missing file
// yields an empty map. A malformed file also yields an empty map; the
// operator re-runs onboarding rather than hand-repairing JSON.
func (s *Store) LoadAllowList() map[string]AllowListEntry {
	data, err := os.ReadFile(s.contactsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("allow-list unreadable, starting empty", "path", s.contactsPath, "error", err)
		}
		return map[string]AllowListEntry{}
	}

	var entries map[string]AllowListEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("allow-list malformed, starting empty", "path", s.contactsPath, "error", err)
		return map[string]AllowListEntry{}
	}
	if entries == nil {
		return map[string]AllowListEntry{}
	}
	return entries
}

// SaveAllowList overwrites the allow-list artifact with a snapshot of the
// given mapping. The file is indented JSON so the operator can inspect and
// prune it by hand.
func (s *Store) SaveAllowList(entries map[string]AllowListEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding allow-list: %w", err)
	}
	if err := writeFileAtomic(s.contactsPath, data); err != nil {
		return fmt.Errorf("saving allow-list: %w", err)
	}
	return nil
}

// Reset removes both artifacts so the next run re-authenticates and
// re-onboards. Missing files are not an error.
func (s *Store) Reset() error {
	var errs []error
	for _, path := range []string{s.sessionPath, s.contactsPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("removing %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

// Credentials exposes the credential artifact as a gotd session.Storage so
// the transport persists its own reconnect credential through this store.
func (s *Store) Credentials() session.Storage {
	return sessionStorage{store: s}
}

type sessionStorage struct {
	store *Store
}

func (ss sessionStorage) LoadSession(_ context.Context) ([]byte, error) {
	data, err := ss.store.LoadCredential()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, session.ErrNotFound
	}
	return data, nil
}

func (ss sessionStorage) StoreSession(_ context.Context, data []byte) error {
	return ss.store.SaveCredential(data)
}

// writeFileAtomic writes data to a temp file in the target directory, syncs
// it, and renames it over the destination. Artifacts are owner-only.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
