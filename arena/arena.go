package arena

import (
	"fmt"
	"math/bits"
	"unsafe"
)

const (
	// DefaultCapacity is the capacity used by report generation (512 KiB).
	DefaultCapacity = 512 << 10

	// MaxCapacity bounds the backing buffer of a single arena (1 GiB).
	MaxCapacity = 1 << 30

	// DefaultMaxGuards is the default depth of the guard stack.
	DefaultMaxGuards = 8
)

// Arena owns one contiguous buffer. The output region [0, output) grows
// upwards and is the rendered report; scratch allocations are carved from
// the top of the buffer through Scratch handles.
//
// Arena is not goroutine-safe. One arena serves one report pass; use Pool
// to reuse buffers across passes.
type Arena struct {
	buf       []byte
	output    int // shared append frontier
	low       int // lowest scratch cursor observed since the last Reset
	guards    []guard
	maxGuards int
	onRelease func(name string, err error)

	fault      *Fault
	faults     int
	recovering bool
}

// Scratch is a lightweight handle onto an Arena. It is meant to be copied:
// every copy shares the arena's output and guard stack but carries its own
// scratch cursor, so allocations made through a copy are reclaimed for the
// caller as soon as the copy goes out of use.
//
// Pass a Scratch by value to hand a callee a private scratch region, or by
// pointer when the callee's allocations must outlive the call.
type Scratch struct {
	a   *Arena
	end int
}

// Checkpoint is a saved scratch cursor, see Scratch.Save.
type Checkpoint struct {
	end int
}

// Option configures an Arena.
type Option func(*Arena)

// WithMaxGuards sets the depth of the guard stack. Values <= 0 select
// DefaultMaxGuards.
func WithMaxGuards(n int) Option {
	return func(a *Arena) {
		if n > 0 {
			a.maxGuards = n
		}
	}
}

// WithReleaseHook installs fn to observe every failed guard release.
func WithReleaseHook(fn func(name string, err error)) Option {
	return func(a *Arena) {
		a.onRelease = fn
	}
}

// New allocates an arena with a backing buffer of capacity bytes.
// It fails with ErrAllocation when capacity is not in (0, MaxCapacity].
func New(capacity int, opts ...Option) (*Arena, error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: capacity %d out of range (0, %d]", ErrAllocation, capacity, MaxCapacity)
	}
	a := &Arena{maxGuards: DefaultMaxGuards}
	for _, opt := range opts {
		opt(a)
	}
	a.buf = make([]byte, capacity)
	a.low = capacity
	a.guards = make([]guard, 0, a.maxGuards)
	return a, nil
}

// Scratch returns the root handle of the arena. Its scratch cursor starts
// at the top of the buffer.
func (a *Arena) Scratch() Scratch {
	a.panicIfReleased()
	return Scratch{a: a, end: len(a.buf)}
}

// Output returns the report written so far. The slice aliases the arena
// buffer and is only valid until Reset or Release.
func (a *Arena) Output() []byte {
	a.panicIfReleased()
	return a.buf[:a.output:a.output]
}

// String returns a copy of the output.
func (a *Arena) String() string {
	return string(a.Output())
}

// Annotate appends note to the output once a pass has ended. When the
// output is too full for note, its tail is overwritten so the output always
// ends with note. Scratch memory is ignored: no pass is running.
func (a *Arena) Annotate(note string) {
	a.panicIfReleased()
	if a.recovering {
		panic("arena: Annotate called inside a recovery point")
	}
	if len(note) > len(a.buf) {
		note = note[:len(a.buf)]
	}
	if a.output+len(note) > len(a.buf) {
		a.output = len(a.buf) - len(note)
	}
	a.output += copy(a.buf[a.output:], note)
}

// Reset releases outstanding guards, clears any pending fault and rewinds
// both cursors so the buffer can serve another pass.
func (a *Arena) Reset() {
	a.panicIfReleased()
	if a.recovering {
		panic("arena: Reset called inside a recovery point")
	}
	_ = a.popAll()
	a.output = 0
	a.low = len(a.buf)
	a.fault = nil
}

// Release releases outstanding guards and drops the backing buffer.
// Any subsequent operation panics.
func (a *Arena) Release() {
	if a.buf == nil {
		return
	}
	_ = a.popAll()
	a.buf = nil
	a.guards = nil
}

// Appendf formats according to format and appends the result to the
// output. The byte budget is the gap between the output and this handle's
// scratch cursor. Output that would not fit raises ErrOutOfSpace and leaves
// the output cursor where it was.
func (s *Scratch) Appendf(format string, args ...any) error {
	a := s.a
	a.panicIfReleased()
	if a.fault != nil {
		return a.fault
	}
	free := s.free()
	out := fmt.Appendf(a.buf[a.output:a.output:a.output+free], format, args...)
	if len(out) > free {
		return a.raise(CodeOutOfSpace, "append")
	}
	a.output += len(out)
	return nil
}

// Write appends p to the output verbatim. It implements io.Writer with the
// same budget rules as Appendf.
func (s *Scratch) Write(p []byte) (int, error) {
	a := s.a
	a.panicIfReleased()
	if a.fault != nil {
		return 0, a.fault
	}
	if len(p) > s.free() {
		return 0, a.raise(CodeOutOfSpace, "write")
	}
	n := copy(a.buf[a.output:], p)
	a.output += n
	return n, nil
}

// Alloc carves size*count zeroed bytes from the scratch end of the arena.
// The scratch cursor moves down by the request and is then rounded down so
// the returned memory is aligned to align, which must be a power of two.
// A request that would cross the output cursor raises ErrOutOfSpace and
// leaves both cursors unchanged. Zero-sized requests return nil.
//
// The memory stays valid until the handle is rewound past it, the arena is
// reset, or the arena is released.
func (s *Scratch) Alloc(size, align, count int) ([]byte, error) {
	a := s.a
	a.panicIfReleased()
	if size < 0 || count < 0 {
		panic("arena: negative allocation size")
	}
	if align <= 0 || align&(align-1) != 0 {
		panic("arena: alignment must be a positive power of two")
	}
	if a.fault != nil {
		return nil, a.fault
	}

	hi, n := bits.Mul(uint(size), uint(count))
	if hi != 0 || n > uint(s.free()) {
		return nil, a.raise(CodeOutOfSpace, "alloc")
	}
	if n == 0 {
		return nil, nil
	}

	base := uintptr(unsafe.Pointer(unsafe.SliceData(a.buf)))
	addr := (base + uintptr(s.end) - uintptr(n)) &^ uintptr(align-1)
	if addr < base+uintptr(a.output) {
		return nil, a.raise(CodeOutOfSpace, "alloc")
	}

	end := int(addr - base)
	b := a.buf[end : end+int(n) : end+int(n)]
	clear(b)
	s.end = end
	if end < a.low {
		a.low = end
	}
	return b, nil
}

// AllocBytes is Alloc(1, 1, n).
func (s *Scratch) AllocBytes(n int) ([]byte, error) {
	return s.Alloc(1, 1, n)
}

// Save returns the current scratch cursor of the handle.
func (s *Scratch) Save() Checkpoint {
	return Checkpoint{end: s.end}
}

// Rewind moves the scratch cursor back to c, releasing every scratch
// allocation made through this handle since c was saved. The released
// memory is not cleared.
func (s *Scratch) Rewind(c Checkpoint) {
	a := s.a
	a.panicIfReleased()
	if c.end < a.output || c.end > len(a.buf) {
		panic(fmt.Sprintf("arena: rewind to %d outside [%d, %d]", c.end, a.output, len(a.buf)))
	}
	s.end = c.end
}

// Free returns the number of bytes between the output cursor and this
// handle's scratch cursor.
func (s *Scratch) Free() int {
	s.a.panicIfReleased()
	return s.free()
}

// Arena returns the arena behind the handle.
func (s *Scratch) Arena() *Arena {
	return s.a
}

func (s *Scratch) free() int {
	// A stale handle may sit below output that grew through a wider handle.
	return max(s.end-s.a.output, 0)
}

// panicIfReleased panics if the arena has been released.
func (a *Arena) panicIfReleased() {
	if a.buf == nil {
		panic("arena: use after Release()")
	}
}
