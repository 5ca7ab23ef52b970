package utils

import (
	"sync"
	"time"
)

// expiringSet is the single-instance fallback used when Redis is not configured.
type expiringSet struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newExpiringSet() *expiringSet {
	return &expiringSet{entries: map[string]time.Time{}}
}

func (s *expiringSet) add(key string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.entries[key] = expiresAt
}

func (s *expiringSet) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.entries[key]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(s.entries, key)
		return false
	}
	return true
}

// take reports whether key was present and unexpired, removing it either way.
func (s *expiringSet) take(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	return ok && time.Now().Before(exp)
}

func (s *expiringSet) sweepLocked() {
	now := time.Now()
	for k, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, k)
		}
	}
}
