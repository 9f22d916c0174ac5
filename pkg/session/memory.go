package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process AttributeStore for single-instance
// deployments and tests. Expired entries are dropped lazily on access and
// by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, sessionID, name, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[attributeKey(sessionID, name)] = memoryEntry{
		value:     value,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(sessionID, name), s.has(sessionID, name), nil
}

func (s *MemoryStore) Take(_ context.Context, sessionID, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attributeKey(sessionID, name)
	entry, ok := s.entries[key]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return "", false, nil
	}
	delete(s.entries, key)
	return entry.value, true, nil
}

func (s *MemoryStore) Remove(_ context.Context, sessionID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, attributeKey(sessionID, name))
	return nil
}

// Sweep removes expired entries. Intended to run on a schedule.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) get(sessionID, name string) string {
	entry, ok := s.entries[attributeKey(sessionID, name)]
	if !ok || s.now().After(entry.expiresAt) {
		return ""
	}
	return entry.value
}

func (s *MemoryStore) has(sessionID, name string) bool {
	entry, ok := s.entries[attributeKey(sessionID, name)]
	return ok && !s.now().After(entry.expiresAt)
}

func attributeKey(sessionID, name string) string {
	return sessionID + ":" + name
}
