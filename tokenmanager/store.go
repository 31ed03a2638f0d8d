package tokenmanager

import "sync/atomic"

// Store holds the current bearer credential. The zero value is an empty
// store ready for use. All methods are safe for concurrent use; readers
// always see either the previous or the new token, never a mix.
type Store struct {
	token atomic.Pointer[string]
}

// Get returns the cached token or "" when none is cached.
func (s *Store) Get() string {
	if p := s.token.Load(); p != nil {
		return *p
	}
	return ""
}

// Set replaces the cached token.
func (s *Store) Set(token string) {
	s.token.Store(&token)
}

// Clear drops the cached token so the next caller has to refresh.
func (s *Store) Clear() {
	s.token.Store(nil)
}
