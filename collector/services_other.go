//go:build !windows

package collector

import (
	"context"

	"github.com/axians/clientlog/arena"
)

// systemctl is the service manager queried by RunningServices.
var systemctl = []string{"systemctl", "list-units", "--type=service", "--state=running", "--no-pager", "--no-legend", "--plain"}

// RunningServices renders [runningservices] from systemd.
func RunningServices(ctx context.Context, env *Env, s arena.Scratch) error {
	if err := s.Appendf("[runningservices]\n"); err != nil {
		return err
	}
	return RunCommand(ctx, s, env.Limits.CommandTimeout, systemctl[0], systemctl[1:]...)
}
