package arena

import (
	"errors"
	"fmt"
)

// Fault codes carried by a Fault. Callers may raise their own codes with
// Scratch.Raise; those should stay clear of the values below.
const (
	CodeOutOfSpace     = 1
	CodeGuardStackFull = 2
)

var (
	// ErrAllocation reports that New could not obtain a backing buffer.
	ErrAllocation = errors.New("arena: cannot allocate backing buffer")

	// ErrOutOfSpace matches faults raised when the output and scratch
	// regions would overlap.
	ErrOutOfSpace = errors.New("arena: out of space")

	// ErrGuardStackFull matches faults raised when the guard stack is at
	// its maximum depth.
	ErrGuardStackFull = errors.New("arena: guard stack full")
)

// Fault is the error raised through an arena's fault channel. Once raised
// it is sticky: every later Appendf, Write, Alloc and Defer on any handle of
// the arena returns the same Fault until the recovery point handles it.
type Fault struct {
	Code int
	Op   string
}

func (f *Fault) Error() string {
	switch f.Code {
	case CodeOutOfSpace:
		return fmt.Sprintf("arena: out of space during %s", f.Op)
	case CodeGuardStackFull:
		return fmt.Sprintf("arena: guard stack full during %s", f.Op)
	default:
		return fmt.Sprintf("arena: fault %d during %s", f.Code, f.Op)
	}
}

// Is lets errors.Is match a Fault against ErrOutOfSpace and
// ErrGuardStackFull.
func (f *Fault) Is(target error) bool {
	switch target {
	case ErrOutOfSpace:
		return f.Code == CodeOutOfSpace
	case ErrGuardStackFull:
		return f.Code == CodeGuardStackFull
	}
	return false
}

// FaultCode extracts the fault code from err, if err carries a Fault.
func FaultCode(err error) (int, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code, true
	}
	return 0, false
}

// Recover establishes the arena's recovery point and runs pass with the
// root handle. It returns nil when pass completes, the Fault when one was
// raised during pass (whether or not pass returned it), and any other error
// returned by pass unchanged.
//
// Every guard still on the stack is released when pass ends, on every
// path. The fault is cleared before Recover returns so the caller can
// annotate the output. Only one recovery point may be active per arena.
func (a *Arena) Recover(pass func(Scratch) error) error {
	a.panicIfReleased()
	if a.recovering {
		panic("arena: recovery point already established")
	}
	a.recovering = true
	defer func() {
		a.recovering = false
		_ = a.popAll()
	}()

	err := pass(a.Scratch())
	if f := a.fault; f != nil {
		a.fault = nil
		return f
	}
	return err
}

// Raise signals code through the fault channel and returns the resulting
// Fault. If a fault is already pending, that fault is returned instead.
func (s *Scratch) Raise(code int) error {
	s.a.panicIfReleased()
	if code == 0 {
		panic("arena: fault code 0 is reserved")
	}
	return s.a.raise(code, "raise")
}

// Err returns the pending fault of the arena, or nil.
func (s *Scratch) Err() error {
	if f := s.a.fault; f != nil {
		return f
	}
	return nil
}

func (a *Arena) raise(code int, op string) *Fault {
	if a.fault == nil {
		a.fault = &Fault{Code: code, Op: op}
		a.faults++
	}
	return a.fault
}
