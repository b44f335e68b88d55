// Package convo owns the in-memory conversation state: one ordered,
// role-tagged message history per allow-listed contact. The store hands out
// per-contact conversations with their own locks so concurrent inbound
// events for the same contact are processed strictly one at a time while
// independent contacts proceed in parallel.
package convo

import (
	"sync"
)

// Role tags a message record with its direction relative to the bot.
type Role string

const (
	// RoleUser marks a message sent by the allow-listed human.
	RoleUser Role = "user"
	// RoleAssistant marks a message sent by the bot (or, during
	// hydration, by the operator's own account).
	RoleAssistant Role = "assistant"
)

// Record is one immutable history entry.
type Record struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Store maps contact keys to their conversations. Conversations exist only
// for contacts registered at startup; the reply engine never creates one
// for an unknown sender.
type Store struct {
	mu     sync.Mutex
	convos map[string]*Conversation
}

// NewStore returns an empty conversation store.
func NewStore() *Store {
	return &Store{convos: make(map[string]*Conversation)}
}

// Seed registers a contact with its hydrated history, replacing any prior
// registration. Records must already be in chronological order.
func (s *Store) Seed(key string, records []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convos[key] = &Conversation{key: key, records: records}
}

// Get returns the conversation for key, or ok=false when the contact was
// never registered.
func (s *Store) Get(key string) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convos[key]
	return c, ok
}

// Keys returns the registered contact keys.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.convos))
	for k := range s.convos {
		keys = append(keys, k)
	}
	return keys
}

// Conversation is the ordered history for one contact. Append and Snapshot
// must be called with the conversation lock held; the lock is what
// serializes two rapid messages from the same contact into arrival order.
type Conversation struct {
	mu      sync.Mutex
	key     string
	records []Record
}

// Lock acquires the per-contact lock.
func (c *Conversation) Lock() { c.mu.Lock() }

// Unlock releases the per-contact lock.
func (c *Conversation) Unlock() { c.mu.Unlock() }

// Key returns the contact key this conversation belongs to.
func (c *Conversation) Key() string { return c.key }

// Append adds a record to the end of the history.
func (c *Conversation) Append(r Record) {
	c.records = append(c.records, r)
}

// Snapshot returns a copy of the history, oldest first.
func (c *Conversation) Snapshot() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of records.
func (c *Conversation) Len() int {
	return len(c.records)
}
