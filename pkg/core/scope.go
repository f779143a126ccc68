package core

import "sync"

// Scope owns resources that must be released together. A Context embeds
// one so subscriptions and other handles acquired by hooks are released
// when the context is torn down.
//
// The zero value is ready to use.
type Scope struct {
	mu        sync.Mutex
	releasers []func()
	released  bool
}

// Manage registers release to run when the scope is released.
// Returns an unmanage function that removes the registration without
// running it. If the scope has already been released, release runs
// immediately.
func (s *Scope) Manage(release func()) (unmanage func()) {
	if release == nil {
		return func() {}
	}

	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		release()
		return func() {}
	}
	index := len(s.releasers)
	s.releasers = append(s.releasers, release)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if index < len(s.releasers) {
			s.releasers[index] = nil
		}
	}
}

// Release runs every registered release function in reverse order.
// Subsequent calls are no-ops.
func (s *Scope) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	releasers := s.releasers
	s.releasers = nil
	s.mu.Unlock()

	for i := len(releasers) - 1; i >= 0; i-- {
		if releasers[i] != nil {
			releasers[i]()
		}
	}
}

// IsReleased reports whether Release has been called.
func (s *Scope) IsReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
