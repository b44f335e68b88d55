package convo

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/standinhq/standin/pkg/standin/store"
	"github.com/standinhq/standin/pkg/standin/transport"
)

func TestStoreSeedAndGet(t *testing.T) {
	t.Parallel()
	s := NewStore()

	if _, ok := s.Get("unknown"); ok {
		t.Error("Get on unregistered key should report ok=false")
	}

	s.Seed("42", []Record{{Role: RoleUser, Content: "hi"}})
	c, ok := s.Get("42")
	if !ok {
		t.Fatal("Get after Seed should find the conversation")
	}
	c.Lock()
	defer c.Unlock()
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if c.Key() != "42" {
		t.Errorf("Key = %q, want %q", c.Key(), "42")
	}
}

func TestConversationAppendOrdering(t *testing.T) {
	t.Parallel()
	s := NewStore()
	s.Seed("1", nil)
	c, _ := s.Get("1")

	c.Lock()
	c.Append(Record{Role: RoleUser, Content: "a"})
	c.Append(Record{Role: RoleAssistant, Content: "b"})
	c.Append(Record{Role: RoleUser, Content: "c"})
	got := c.Snapshot()
	c.Unlock()

	want := []Record{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
		{Role: RoleUser, Content: "c"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot = %+v, want %+v", got, want)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()
	s := NewStore()
	s.Seed("1", []Record{{Role: RoleUser, Content: "a"}})
	c, _ := s.Get("1")

	c.Lock()
	snap := c.Snapshot()
	snap[0].Content = "mutated"
	got := c.Snapshot()
	c.Unlock()

	if got[0].Content != "a" {
		t.Error("mutating a snapshot must not affect the stored history")
	}
}

func TestConcurrentAppendsSameContact(t *testing.T) {
	t.Parallel()
	s := NewStore()
	s.Seed("1", nil)
	c, _ := s.Get("1")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Lock()
			c.Append(Record{Role: RoleUser, Content: "x"})
			c.Unlock()
		}()
	}
	wg.Wait()

	c.Lock()
	defer c.Unlock()
	if c.Len() != 50 {
		t.Errorf("Len = %d, want 50", c.Len())
	}
}

func TestBuildHistory(t *testing.T) {
	t.Parallel()

	// Newest-first input, mixed senders, with blanks sprinkled in.
	fetched := []transport.Message{
		{SenderKey: "42", Text: "newest"},
		{SenderKey: "self", Text: "reply"},
		{SenderKey: "42", Text: "   "},
		{SenderKey: "42", Text: "oldest"},
	}

	got := BuildHistory("42", fetched)
	want := []Record{
		{Role: RoleUser, Content: "oldest"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "newest"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildHistory = %+v, want %+v", got, want)
	}
}

func TestBuildHistoryEmpty(t *testing.T) {
	t.Parallel()
	if got := BuildHistory("1", nil); len(got) != 0 {
		t.Errorf("BuildHistory(nil) = %+v, want empty", got)
	}
}

type fakeHistorySource struct {
	byUser map[int64][]transport.Message
	err    error
	limits []int
}

func (f *fakeHistorySource) History(_ context.Context, peer transport.Peer, limit int) ([]transport.Message, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	return f.byUser[peer.UserID], nil
}

func TestHydrate(t *testing.T) {
	t.Parallel()
	src := &fakeHistorySource{byUser: map[int64][]transport.Message{
		7: {
			{SenderKey: "7", Text: "hello"},
			{SenderKey: "me", Text: "hey"},
		},
	}}
	st := NewStore()
	entries := map[string]store.AllowListEntry{
		"7": {Key: "7", UserID: 7, AccessHash: 99},
	}

	if err := Hydrate(context.Background(), src, st, entries, 500, nil); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}

	c, ok := st.Get("7")
	if !ok {
		t.Fatal("contact should be registered after hydration")
	}
	c.Lock()
	got := c.Snapshot()
	c.Unlock()

	want := []Record{
		{Role: RoleAssistant, Content: "hey"},
		{Role: RoleUser, Content: "hello"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("hydrated history = %+v, want %+v", got, want)
	}
	if len(src.limits) != 1 || src.limits[0] != 500 {
		t.Errorf("fetch limits = %v, want [500]", src.limits)
	}
}

func TestHydrateFetchFailureStartsEmpty(t *testing.T) {
	t.Parallel()
	src := &fakeHistorySource{err: errors.New("flood wait")}
	st := NewStore()
	entries := map[string]store.AllowListEntry{"7": {Key: "7", UserID: 7}}

	if err := Hydrate(context.Background(), src, st, entries, 100, nil); err != nil {
		t.Fatalf("Hydrate should tolerate per-contact failures, got %v", err)
	}
	c, ok := st.Get("7")
	if !ok {
		t.Fatal("contact should still be registered")
	}
	c.Lock()
	defer c.Unlock()
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}
