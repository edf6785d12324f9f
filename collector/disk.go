package collector

import (
	"context"

	"github.com/axians/clientlog/arena"
)

// DiskInfo renders [diskinfo]: one block per mounted partition.
func DiskInfo(ctx context.Context, env *Env, s arena.Scratch) error {
	if err := s.Appendf("[diskinfo]"); err != nil {
		return err
	}
	disks, err := env.System.Disks(ctx)
	if err != nil {
		env.logger().Warn("disks unavailable", "error", err)
		return indent(&s, 0, "(Unable to enumerate disks)")
	}
	for _, d := range disks {
		if err := indent(&s, 0, "%s", d.Device); err != nil {
			return err
		}
		if err := indent(&s, 1, "Mounted on:  %s", d.Mountpoint); err != nil {
			return err
		}
		if d.Fstype != "" {
			if err := indent(&s, 1, "File system: %s", d.Fstype); err != nil {
				return err
			}
		}
		if d.UsageErr != nil {
			if err := indent(&s, 1, "(Unable to get usage info)"); err != nil {
				return err
			}
			continue
		}
		if err := indent(&s, 1, "Total space: %s", PrettyBytes(d.Total, 0)); err != nil {
			return err
		}
		if err := indent(&s, 1, "Free space:  %s", PrettyBytes(d.Free, 0)); err != nil {
			return err
		}
	}
	return nil
}
