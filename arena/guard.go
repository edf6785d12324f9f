package arena

import (
	"errors"
	"fmt"
	"io"
)

// guard is a registered release of an external resource.
type guard struct {
	name    string
	release func() error
}

// Defer pushes a release function onto the arena's guard stack. Guards are
// released in reverse order of registration by PopOne, PopAll, the end of
// a recovery point, Reset and Release.
//
// When the guard cannot be registered, because the stack is at its
// maximum depth (ErrGuardStackFull) or a fault is already pending, release
// is invoked immediately and the fault is returned. A resource handed to
// Defer is therefore always released exactly once.
func (s *Scratch) Defer(name string, release func() error) error {
	a := s.a
	a.panicIfReleased()
	if release == nil {
		panic("arena: Defer with nil release function")
	}
	if a.fault == nil && len(a.guards) >= a.maxGuards {
		a.raise(CodeGuardStackFull, "defer "+name)
	}
	if a.fault != nil {
		a.release(guard{name: name, release: release})
		return a.fault
	}
	a.guards = append(a.guards, guard{name: name, release: release})
	return nil
}

// DeferCloser is Defer for an io.Closer.
func (s *Scratch) DeferCloser(name string, c io.Closer) error {
	return s.Defer(name, c.Close)
}

// PopOne pops the most recent guard and releases it, returning the release
// result. It is a no-op on an empty stack.
func (s *Scratch) PopOne() error {
	a := s.a
	a.panicIfReleased()
	if len(a.guards) == 0 {
		return nil
	}
	return a.release(a.pop())
}

// PopIgnore pops the most recent guard without releasing it, for
// resources already released by other means. It is a no-op on an empty
// stack.
func (s *Scratch) PopIgnore() {
	a := s.a
	a.panicIfReleased()
	if len(a.guards) > 0 {
		a.pop()
	}
}

// PopAll releases every guard in reverse order of registration and
// returns the joined release errors. It is safe on an empty stack.
func (s *Scratch) PopAll() error {
	s.a.panicIfReleased()
	return s.a.popAll()
}

// Guards returns the current depth of the guard stack.
func (s *Scratch) Guards() int {
	return len(s.a.guards)
}

func (a *Arena) pop() guard {
	last := len(a.guards) - 1
	g := a.guards[last]
	a.guards[last] = guard{}
	a.guards = a.guards[:last]
	return g
}

func (a *Arena) popAll() error {
	var errs []error
	for len(a.guards) > 0 {
		if err := a.release(a.pop()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Arena) release(g guard) error {
	err := g.release()
	if err == nil {
		return nil
	}
	if a.onRelease != nil {
		a.onRelease(g.name, err)
	}
	return fmt.Errorf("release %s: %w", g.name, err)
}
