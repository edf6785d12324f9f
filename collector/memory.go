package collector

import (
	"context"

	"github.com/axians/clientlog/arena"
)

// Memory renders [winmemory]: physical memory and the page file.
func Memory(ctx context.Context, env *Env, s arena.Scratch) error {
	if err := s.Appendf("[winmemory]"); err != nil {
		return err
	}
	m, err := env.System.Memory(ctx)
	if err != nil {
		env.logger().Warn("memory status unavailable", "error", err)
		return s.Appendf("\n(Unable to get memory status)")
	}

	if err := s.Appendf("\n%8s  %-13s\t%-15s\t%-15s\t%-15s", "", "TOTAL", "USED", "FREE", "MEMORY USAGE"); err != nil {
		return err
	}
	if err := memoryRow(&s, "Physical", m.Total, m.Available); err != nil {
		return err
	}
	return memoryRow(&s, "Pagefile", m.SwapTotal, m.SwapFree)
}

func memoryRow(s *arena.Scratch, label string, total, free uint64) error {
	free = min(free, total)
	used := total - free
	var pct float64
	if total > 0 {
		pct = 100 * float64(used) / float64(total)
	}
	return s.Appendf("\n%8s  %-13s\t%-15s\t%-15s\t%-.2f%%",
		label, PrettyBytes(total, 0), PrettyBytes(used, 2), PrettyBytes(free, 2), pct)
}
