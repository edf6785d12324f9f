// Package arena implements a fixed-capacity, dual-ended memory arena used
// to render one host report without per-call heap allocation.
//
// # Overview
//
// One buffer serves two purposes at once:
//
//   - The low end is an append-only output region. Appendf and Write add
//     text to it; together it is the finished report.
//   - The high end serves transient scratch allocations. Alloc, AllocBytes,
//     Alloc[T] and AllocSlice[T] carve zeroed, aligned memory downwards.
//
// The closer the two cursors get, the less room is left for either. Running
// out of room is a fault, never a silent truncation.
//
// # Basic Usage
//
//	a, err := arena.New(arena.DefaultCapacity)
//	if err != nil {
//		return err
//	}
//	defer a.Release()
//
//	err = a.Recover(func(s arena.Scratch) error {
//		if err := s.Appendf("[date]\n%s", now); err != nil {
//			return err
//		}
//		rows, err := arena.AllocSlice[row](&s, n)
//		...
//	})
//	if code, ok := arena.FaultCode(err); ok {
//		a.Annotate(fmt.Sprintf("\n(problem, code %d)", code))
//	}
//	send(a.Output())
//
// # Handles
//
// Scratch is a cheap value. Copies share the output and the guard stack
// but each copy has its own scratch cursor: pass a copy to a collector and
// everything it allocates is reclaimed for the caller when it returns. Save
// and Rewind reclaim scratch inside a loop.
//
// # Guards
//
// Defer registers the release of an external resource (file, registry key,
// service handle). PopOne, PopIgnore and PopAll unwind the stack in LIFO
// order, and the end of a recovery point releases whatever is left, so a
// resource is released exactly once however the pass ends.
//
// # Faults
//
// Every operation that can run out of room returns a *Fault. The fault is
// sticky: after it is raised, every later operation on the arena returns it
// without effect, until the recovery point established by Recover handles
// it. Errors can be tested with errors.Is against ErrOutOfSpace and
// ErrGuardStackFull.
//
// # Thread Safety
//
// Arena and Scratch are not goroutine-safe; one arena belongs to one report
// pass. Pool is safe for concurrent use and hands each pass its own arena.
package arena
