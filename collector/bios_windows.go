//go:build windows

package collector

import (
	"context"

	"golang.org/x/sys/windows/registry"

	"github.com/axians/clientlog/arena"
)

const biosKey = `HARDWARE\DESCRIPTION\System\BIOS`

// BIOS renders [bios] from the registry. The key is held as a guard.
func BIOS(_ context.Context, env *Env, s arena.Scratch) error {
	if err := s.Appendf("[bios]"); err != nil {
		return err
	}
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, biosKey, registry.QUERY_VALUE)
	if err != nil {
		env.logger().Warn("bios registry key unavailable", "error", err)
		return s.Appendf("\n(Unable to open registry key 'HKEY_LOCAL_MACHINE\\%s')", biosKey)
	}
	if err := s.Defer("registry key", k.Close); err != nil {
		return err
	}
	defer s.PopOne()

	for _, f := range biosFields {
		v, _, err := k.GetStringValue(f.Key)
		if err := appendBIOSField(&s, f.Key, v, err == nil); err != nil {
			return err
		}
	}
	return nil
}
