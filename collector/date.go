package collector

import (
	"context"

	"github.com/axians/clientlog/arena"
)

// Date renders [date] as local date and time.
func Date(_ context.Context, env *Env, s arena.Scratch) error {
	return s.Appendf("[date]\n%s", PrettyTime(env.now(), TimeDateTime))
}

// Clock renders [clock] with local and UTC time.
func Clock(_ context.Context, env *Env, s arena.Scratch) error {
	now := env.now()
	if err := s.Appendf("[clock]"); err != nil {
		return err
	}
	if err := s.Appendf("\nlocal:\t%s", now.Format("2006-01-02 15:04:05 MST")); err != nil {
		return err
	}
	return s.Appendf("\nUTC:\t%s UTC", PrettyTime(now.UTC(), TimeDateTime))
}

// ClientVersion renders [clientversion].
func ClientVersion(_ context.Context, env *Env, s arena.Scratch) error {
	if err := s.Appendf("[clientversion]"); err != nil {
		return err
	}
	if env.Package == "" || env.Version == "" {
		return s.Appendf("\nMrBig version unknown")
	}
	return s.Appendf("\n%s version %s", env.Package, env.Version)
}
