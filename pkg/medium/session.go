package medium

import (
	"context"
	"sort"
	"sync"
)

// Session is an in-memory Medium whose records live for the lifetime of the
// process. It is safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	records map[string]string
}

var (
	sessionOnce sync.Once
	session     *Session
)

// NewSession returns an empty, independent session medium.
func NewSession() *Session {
	return &Session{records: map[string]string{}}
}

// SharedSession returns the process-wide session medium.
func SharedSession() *Session {
	sessionOnce.Do(func() {
		session = NewSession()
	})
	return session
}

func (s *Session) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	value, ok := s.records[key]
	s.mu.RUnlock()
	return value, ok, nil
}

func (s *Session) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.records[key] = value
	s.mu.Unlock()
	return nil
}

// RemoveItem deletes key. Missing keys are ignored.
func (s *Session) RemoveItem(key string) {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
}

// Keys returns the stored keys sorted alphabetically.
func (s *Session) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
