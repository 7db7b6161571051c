package conversation

import (
	"sync"
	"time"

	"concierge/pkg/api"
)

// DefaultMaxEntries is the prune threshold applied when the store is
// constructed with a non-positive bound.
const DefaultMaxEntries = 50

// Entry is one recorded turn of a conversation.
type Entry struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	ToolCalls []api.ToolCall `json:"tool_calls,omitempty"`
}

// NewEntry builds an entry stamped with the current time.
func NewEntry(role, content string) Entry {
	return Entry{Role: role, Content: content, Timestamp: time.Now()}
}

type state struct {
	entries      []Entry
	lastActivity time.Time
}

// Store holds per-conversation turn history. Appends are FIFO-pruned at
// maxEntries; conversations are process-local and never persisted.
//
// Distinct conversation ids may be accessed concurrently; the same id is
// expected to be serialized by its caller.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*state
	maxEntries    int
}

// NewStore creates a store pruning each conversation at maxEntries.
func NewStore(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Store{
		conversations: make(map[string]*state),
		maxEntries:    maxEntries,
	}
}

// Append records an entry, creating the conversation if absent, and prunes
// from the front until the length bound holds. Pruning never reorders.
func (s *Store) Append(id string, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.conversations[id]
	if !ok {
		st = &state{}
		s.conversations[id] = st
	}

	st.entries = append(st.entries, entry)
	st.lastActivity = time.Now()

	if over := len(st.entries) - s.maxEntries; over > 0 {
		st.entries = append([]Entry(nil), st.entries[over:]...)
	}
}

// Recent returns the last n entries (fewer if the conversation is shorter).
func (s *Store) Recent(id string, n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.conversations[id]
	if !ok || n <= 0 {
		return nil
	}

	entries := st.entries
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return cp
}

// All returns the full ordered entry list.
func (s *Store) All(id string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.conversations[id]
	if !ok {
		return nil
	}
	cp := make([]Entry, len(st.entries))
	copy(cp, st.entries)
	return cp
}

// Len reports the current entry count.
func (s *Store) Len(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.conversations[id]
	if !ok {
		return 0
	}
	return len(st.entries)
}

// LastActivity reports when the conversation last changed.
func (s *Store) LastActivity(id string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.conversations[id]
	if !ok {
		return time.Time{}, false
	}
	return st.lastActivity, true
}

// Clear removes one conversation.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
}

// ClearAll removes every conversation.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[string]*state)
}

// EstimateTokens is an advisory character-based token estimate (chars/4).
// It never gates pruning.
func (s *Store) EstimateTokens(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.conversations[id]
	if !ok {
		return 0
	}
	chars := 0
	for _, e := range st.entries {
		chars += len(e.Content)
	}
	return chars / 4
}
