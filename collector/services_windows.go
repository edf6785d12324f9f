//go:build windows

package collector

import (
	"context"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/axians/clientlog/arena"
)

// RunningServices renders [runningservices] from the service control
// manager. The manager and every opened service are held as guards.
func RunningServices(ctx context.Context, env *Env, s arena.Scratch) error {
	if err := s.Appendf("[runningservices]"); err != nil {
		return err
	}
	if err := s.Appendf("\n%6s \t%-23s\t%-63s\t%s", "PID", "SERVICE", "DISPLAY NAME", "STATUS"); err != nil {
		return err
	}

	m, err := mgr.Connect()
	if err != nil {
		env.logger().Warn("service manager unavailable", "error", err)
		return s.Appendf("\n(Unable to get services: %v)", err)
	}
	if err := s.Defer("service manager", m.Disconnect); err != nil {
		return err
	}
	defer s.PopOne()

	names, err := m.ListServices()
	if err != nil {
		env.logger().Warn("service listing failed", "error", err)
		return s.Appendf("\n(Unable to get services: %v)", err)
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := appendService(&s, m, name); err != nil {
			return err
		}
	}
	return nil
}

func appendService(s *arena.Scratch, m *mgr.Mgr, name string) error {
	service, err := m.OpenService(name)
	if err != nil {
		return nil
	}
	if err := s.Defer("service "+name, service.Close); err != nil {
		return err
	}
	defer s.PopOne()

	status, err := service.Query()
	if err != nil || status.State == svc.Stopped {
		return nil
	}
	display := name
	if cfg, err := service.Config(); err == nil && cfg.DisplayName != "" {
		display = cfg.DisplayName
	}
	return s.Appendf("\n%6d \t%-23s\t%-63s\t%s", status.ProcessId, name, display, serviceState(status.State))
}

func serviceState(state svc.State) string {
	switch state {
	case svc.ContinuePending:
		return "Unpausing"
	case svc.PausePending:
		return "Pausing"
	case svc.StartPending:
		return "Starting"
	case svc.StopPending:
		return "Stopping"
	case svc.Paused:
		return "Paused"
	case svc.Running:
		return "Running"
	case svc.Stopped:
		return "Stopped"
	}
	return "Unknown"
}
