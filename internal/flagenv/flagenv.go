// Package flagenv fills pflag flags from environment variables.
package flagenv

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/spf13/pflag"
)

// Level defines a slog level flag on fs.
func Level(fs *pflag.FlagSet, name, shorthand string, value slog.Level, usage string) *slog.LevelVar {
	level := new(slog.LevelVar)
	def := new(slog.LevelVar)
	def.Set(value)
	fs.TextVarP(level, name, shorthand, def, usage)
	return level
}

// Parse sets the flags of fs from the variables in environ (as returned by
// os.Environ) that start with prefix. PREFIX_LOG_LEVEL sets --log-level.
// Unknown variables are reported as warnings; invalid values are errors.
func Parse(fs *pflag.FlagSet, prefix string, environ []string) (warnings []string, err error) {
	for _, env := range environ {
		k, v, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		s, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		n := strings.Map(func(r rune) rune {
			if r == '_' {
				return '-'
			}
			return unicode.ToLower(r)
		}, s)
		f := fs.Lookup(n)
		if f == nil {
			warnings = append(warnings, fmt.Sprintf("env %s: unknown flag --%s", k, n))
			continue
		}
		if err := fs.Set(n, v); err != nil {
			return warnings, fmt.Errorf("env %s: flag --%s: invalid argument: %w", k, n, err)
		}
	}
	return warnings, nil
}
