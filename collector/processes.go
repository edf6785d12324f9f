package collector

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/axians/clientlog/arena"
)

// ProcessSample is the first half of a CPU measurement. Starting it early
// lets the sampling window overlap with the other sections.
type ProcessSample struct {
	start time.Time
	times []ProcessTime // sorted by Pid
	err   error
}

// StartProcesses takes the first CPU reading of every process. The reading
// lives in the scratch region of s, so s must outlive the sample. The
// returned error is non-nil only when the report must be aborted.
func StartProcesses(ctx context.Context, env *Env, s *arena.Scratch) (*ProcessSample, error) {
	ps := &ProcessSample{start: env.now()}
	times, err := env.System.ProcessTimes(ctx)
	if err != nil {
		env.logger().Warn("process sample failed", "error", err)
		ps.err = err
		return ps, nil
	}
	ps.times, err = arena.AllocSlice[ProcessTime](s, len(times))
	if err != nil {
		return nil, err
	}
	copy(ps.times, times)
	slices.SortFunc(ps.times, func(a, b ProcessTime) int { return cmp.Compare(a.Pid, b.Pid) })
	return ps, nil
}

// cpuAt returns the CPU time of pid at the start of the sample. A process
// missing from the sample started after it and counts from zero.
func (ps *ProcessSample) cpuAt(pid int32) float64 {
	i, ok := slices.BinarySearchFunc(ps.times, pid, func(t ProcessTime, pid int32) int {
		return cmp.Compare(t.Pid, pid)
	})
	if !ok {
		return 0
	}
	return ps.times[i].CPU
}

type procRow struct {
	Pid  int32
	Name string // arena backed
	User string // arena backed
	CPU  float64
	Mem  uint64
}

// Processes renders [processes], [topprocessescpu] and [topprocessesmemory]
// from the sample in env, or from a sample of its own when there is none.
func Processes(ctx context.Context, env *Env, s arena.Scratch) error {
	sample := env.Processes
	if sample == nil {
		var err error
		if sample, err = StartProcesses(ctx, env, &s); err != nil {
			return err
		}
	}

	rows, qerr := sample.finish(ctx, env, &s)
	if qerr != nil && !isSourceErr(qerr) {
		return qerr
	}

	top := env.Limits.TopProcesses
	tables := []struct {
		header string
		cmp    func(a, b procRow) int
		limit  int
	}{
		{"[processes]", byName, len(rows)},
		{"\n[topprocessescpu]", byCPU, top},
		{"\n[topprocessesmemory]", byMemory, top},
	}
	for _, t := range tables {
		if err := s.Appendf("%s", t.header); err != nil {
			return err
		}
		if qerr != nil {
			if err := s.Appendf("\n(Unable to query processes)"); err != nil {
				return err
			}
			continue
		}
		slices.SortStableFunc(rows, t.cmp)
		if err := appendProcessTable(&s, rows, t.limit); err != nil {
			return err
		}
	}
	return nil
}

// sourceErr marks a failure of the process source rather than of the report.
type sourceErr struct{ error }

func isSourceErr(err error) bool {
	_, ok := err.(sourceErr)
	return ok
}

// finish waits for the rest of the sampling window and builds the rows on
// the scratch region of s.
func (ps *ProcessSample) finish(ctx context.Context, env *Env, s *arena.Scratch) ([]procRow, error) {
	if ps.err != nil {
		return nil, sourceErr{ps.err}
	}
	window := env.Limits.ProcessSample
	if wait := ps.start.Add(window).Sub(env.now()); wait > 0 {
		select {
		case <-env.after(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	procs, err := env.System.Processes(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		env.logger().Warn("process listing failed", "error", err)
		return nil, sourceErr{err}
	}
	elapsed := env.now().Sub(ps.start)
	if elapsed <= 0 {
		elapsed = window
	}

	rows, err := arena.AllocSlice[procRow](s, len(procs))
	if err != nil {
		return nil, err
	}
	for i, p := range procs {
		r := &rows[i]
		r.Pid = p.Pid
		r.Mem = p.RSS
		start := ps.cpuAt(p.Pid)
		switch {
		case p.CPU < 0 || start < 0:
			r.CPU = UnknownCPU
		case elapsed > 0:
			r.CPU = max(p.CPU-start, 0) / elapsed.Seconds() * 100
		}
		if r.Name, err = s.CopyString(p.Name); err != nil {
			return nil, err
		}
		if r.User, err = s.CopyString(p.User); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (e *Env) after(d time.Duration) <-chan time.Time {
	if e.Clock == nil {
		return time.After(d)
	}
	return e.Clock.After(d)
}

func appendProcessTable(s *arena.Scratch, rows []procRow, limit int) error {
	if err := s.Appendf("\n%-31s\t%6s\t%-31s\t%7s\t%12s", "PROCESS", "PID", "USER", "CPU", "MEMORY"); err != nil {
		return err
	}
	if limit <= 0 {
		limit = len(rows)
	}
	n := 0
	for i := range rows {
		if n >= limit {
			break
		}
		r := &rows[i]
		// The idle pseudo-process does not count towards the limit.
		if r.Pid == 0 {
			continue
		}
		n++
		mem := "-"
		if r.Mem > 0 {
			mem = PrettyBytes(r.Mem, 0)
		}
		cpu := "-"
		if r.CPU >= 0 {
			cpu = fmt.Sprintf("%5.1f %%", r.CPU)
		}
		if err := s.Appendf("\n%-31s\t%6d\t%-31s\t%7s\t%12s",
			ClampString(r.Name, 31), r.Pid, ClampString(r.User, 31), cpu, mem); err != nil {
			return err
		}
	}
	return nil
}

func byName(a, b procRow) int {
	if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return cmp.Compare(a.Pid, b.Pid)
}

func byCPU(a, b procRow) int {
	if c := cmp.Compare(b.CPU, a.CPU); c != 0 {
		return c
	}
	return byName(a, b)
}

func byMemory(a, b procRow) int {
	if c := cmp.Compare(b.Mem, a.Mem); c != 0 {
		return c
	}
	return byName(a, b)
}
