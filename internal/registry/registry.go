// Package registry tracks the single open repository session of a process.
//
// A Slot is injected into the repository manager. The process-wide slot
// returned by Process exists only for bindings that cannot carry a slot of
// their own, such as a signal handler.
package registry

import (
	"fmt"
	"io"
	"sync"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

// Session is what a Slot can hold.
type Session interface {
	comparable
	io.Closer
}

// Slot holds at most one open session.
type Slot[T Session] struct {
	mu      sync.Mutex
	current T
	held    bool
}

func NewSlot[T Session]() *Slot[T] {
	return &Slot[T]{}
}

// Claim registers s. It fails with ErrAlreadyOpen while another session is held.
func (s *Slot[T]) Claim(session T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held {
		if s.current == session {
			return nil
		}
		return kerrors.ErrAlreadyOpen
	}
	s.current = session
	s.held = true
	return nil
}

// Release clears the slot if it still holds session.
func (s *Slot[T]) Release(session T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.held && s.current == session {
		var zero T
		s.current = zero
		s.held = false
	}
}

// Current returns the held session.
func (s *Slot[T]) Current() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.held
}

// With calls fn with the held session or returns ErrNoOpenRepository.
// The slot lock is not held while fn runs, so fn may close the session.
func (s *Slot[T]) With(fn func(T) error) error {
	session, ok := s.Current()
	if !ok {
		return kerrors.ErrNoOpenRepository
	}
	return fn(session)
}

// CloseCurrent closes and releases the held session. An empty slot is not an error.
func (s *Slot[T]) CloseCurrent() error {
	session, ok := s.Current()
	if !ok {
		return nil
	}

	err := session.Close()
	s.Release(session)
	if err != nil {
		return fmt.Errorf("closing current session: %w", err)
	}
	return nil
}

var (
	processOnce sync.Once
	processSlot *Slot[io.Closer]
)

// Process returns the process-wide slot.
func Process() *Slot[io.Closer] {
	processOnce.Do(func() {
		processSlot = NewSlot[io.Closer]()
	})
	return processSlot
}
