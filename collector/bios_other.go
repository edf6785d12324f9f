//go:build !windows

package collector

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/axians/clientlog/arena"
)

// dmiRoot holds the firmware attributes exported by the kernel.
var dmiRoot = "/sys/class/dmi/id"

// dmiValueSize bounds a single attribute, read into scratch.
const dmiValueSize = 256

// BIOS renders [bios] from the DMI attributes. The directory and every
// attribute file are held as guards while open.
func BIOS(_ context.Context, env *Env, s arena.Scratch) error {
	if err := s.Appendf("[bios]"); err != nil {
		return err
	}
	dir, err := os.Open(dmiRoot)
	if err != nil {
		env.logger().Warn("dmi attributes unavailable", "error", err)
		return s.Appendf("\n(Unable to open '%s')", dmiRoot)
	}
	if err := s.DeferCloser("dmi directory", dir); err != nil {
		return err
	}
	defer s.PopOne()

	buf, err := s.AllocBytes(dmiValueSize)
	if err != nil {
		return err
	}
	for _, f := range biosFields {
		v, ok, err := readDMI(&s, filepath.Join(dmiRoot, f.DMI), buf)
		if err != nil {
			return err
		}
		if err := appendBIOSField(&s, f.Key, v, ok); err != nil {
			return err
		}
	}
	return nil
}

// readDMI reads one attribute into buf. The error is non-nil only when the
// guard cannot be registered.
func readDMI(s *arena.Scratch, path string, buf []byte) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, nil
	}
	if err := s.DeferCloser(filepath.Base(path), f); err != nil {
		return "", false, err
	}
	n, rerr := f.Read(buf)
	_ = s.PopOne()
	if rerr != nil || n == 0 {
		return "", false, nil
	}
	return string(bytes.TrimSpace(buf[:n])), true, nil
}
