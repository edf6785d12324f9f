package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/axians/clientlog/arena"
)

// OSVersion renders [osversion].
func OSVersion(ctx context.Context, env *Env, s arena.Scratch) error {
	if err := s.Appendf("[osversion]"); err != nil {
		return err
	}
	info, err := env.System.Host(ctx)
	if err != nil {
		env.logger().Warn("host info unavailable", "error", err)
		return s.Appendf("\nNot supported")
	}
	return s.Appendf("\n%s %s, kernel %s (%s)", info.Platform, info.PlatformVersion, info.KernelVersion, info.KernelArch)
}

// Uptime renders [winuptime] as days, hours and minutes since boot.
func Uptime(ctx context.Context, env *Env, s arena.Scratch) error {
	if err := s.Appendf("[winuptime]"); err != nil {
		return err
	}
	info, err := env.System.Host(ctx)
	if err != nil || info.BootTime.IsZero() {
		env.logger().Warn("boot time unavailable", "error", err)
		return s.Appendf("\n(Unable to get boot time)")
	}
	up := max(env.now().Sub(info.BootTime), 0)
	days := up / (24 * time.Hour)
	hours := (up % (24 * time.Hour)) / time.Hour
	minutes := (up % time.Hour) / time.Minute
	return s.Appendf("\nup %d days, %02d:%02d, since %s", int64(days), int64(hours), int64(minutes),
		PrettyTime(info.BootTime.UTC(), TimeDateTime))
}

// Who renders [who], listing at most Limits.WhoSessions sessions (all of
// them when the limit is not positive).
func Who(ctx context.Context, env *Env, s arena.Scratch) error {
	if err := s.Appendf("[who]"); err != nil {
		return err
	}
	sessions, err := env.System.Sessions(ctx)
	if err != nil {
		env.logger().Warn("sessions unavailable", "error", err)
	}
	if len(sessions) == 0 {
		return s.Appendf("\nN/A")
	}

	if err := s.Appendf("\n%-15s\t%-15s\t%4s\t%-7s\t%12s\t%-20s",
		"USERNAME", "SESSIONNAME", "ID", "STATE", "IDLE TIME", "LOGON TIME"); err != nil {
		return err
	}
	shown := len(sessions)
	if limit := env.Limits.WhoSessions; limit > 0 {
		shown = min(shown, limit)
	}
	for _, sess := range sessions[:shown] {
		logon := "-"
		if !sess.Logon.IsZero() {
			logon = PrettyTime(sess.Logon, TimeDateTime)
		}
		if err := s.Appendf("\n%-15s\t%-15s\t%4d\t%-7s\t%12s\t%-20s",
			ClampString(sess.User, 15),
			ClampString(sess.Terminal, 15),
			sess.ID,
			ClampString(sess.State, 7),
			idleTime(sess.Idle),
			logon); err != nil {
			return err
		}
	}
	if len(sessions) > shown {
		return s.Appendf("\n(...with up to %d more sessions truncated for brevity.)", len(sessions)-shown)
	}
	return nil
}

func idleTime(d time.Duration) string {
	const day = 24 * time.Hour
	switch {
	case d < 0:
		return "-"
	case d >= 99*day:
		return "99+ days"
	case d >= 5*time.Minute:
		return fmt.Sprintf("%2dd %2dh %2dm", int64(d/day), int64(d%day/time.Hour), int64(d%time.Hour/time.Minute))
	}
	return "(Active)"
}
