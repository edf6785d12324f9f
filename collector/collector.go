// Package collector renders the sections of a host report into an arena.
//
// Every section is a Func. A Func receives its own copy of the arena handle:
// it appends its section to the shared output, may allocate scratch freely
// (reclaimed when it returns) and must pop every guard it pushes. Failures
// of a single data source are rendered into the section as a parenthesised
// note; only errors that abort the report (arena faults, cancellation) are
// returned.
package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/axians/clientlog/arena"
	"github.com/axians/clientlog/internal/clock"
)

// Func renders one section of the report.
type Func func(ctx context.Context, env *Env, s arena.Scratch) error

// Limits bounds the amount of work and output of the collectors.
type Limits struct {
	WhoSessions    int           // sessions listed by [who]; negative lists all
	TopProcesses   int           // rows of the top process tables; negative lists all
	ProcessSample  time.Duration // CPU sampling window of the process tables
	CommandTimeout time.Duration // deadline of external commands
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		WhoSessions:    5,
		TopProcesses:   20,
		ProcessSample:  time.Second,
		CommandTimeout: time.Second,
	}
}

// WithDefaults returns l with every zero field taken from DefaultLimits.
// Use a negative WhoSessions or TopProcesses to list every row.
func (l Limits) WithDefaults() Limits {
	def := DefaultLimits()
	if l.WhoSessions == 0 {
		l.WhoSessions = def.WhoSessions
	}
	if l.TopProcesses == 0 {
		l.TopProcesses = def.TopProcesses
	}
	if l.ProcessSample == 0 {
		l.ProcessSample = def.ProcessSample
	}
	if l.CommandTimeout <= 0 {
		l.CommandTimeout = def.CommandTimeout
	}
	return l
}

// Env is the environment shared by the collectors of one report.
type Env struct {
	Logger  *slog.Logger
	Clock   clock.Clock
	System  System
	Limits  Limits
	Package string // client package name, see ClientVersion
	Version string // client version, see ClientVersion

	// Processes is the sample started at the beginning of the report, if
	// any. Without it the process section samples on its own.
	Processes *ProcessSample
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

func (e *Env) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}

// Section names a collector.
type Section struct {
	Name    string
	Collect Func
}

var sections = []Section{
	{"date", Date},
	{"clientversion", ClientVersion},
	{"osversion", OSVersion},
	{"winuptime", Uptime},
	{"who", Who},
	{"diskinfo", DiskInfo},
	{"winmemory", Memory},
	{"ipconfig", IPConfig},
	{"winports", Ports},
	{"processes", Processes},
	{"runningservices", RunningServices},
	{"bios", BIOS},
}

// Sections returns the known sections in report order. The [clock] section
// is not listed: it always closes a report.
func Sections() []Section {
	return append([]Section(nil), sections...)
}

// SectionNames returns the names of Sections.
func SectionNames() []string {
	names := make([]string, len(sections))
	for i, sec := range sections {
		names[i] = sec.Name
	}
	return names
}

// Lookup returns the section called name.
func Lookup(name string) (Section, bool) {
	for _, sec := range sections {
		if sec.Name == name {
			return sec, true
		}
	}
	return Section{}, false
}

// indent appends a new line indented by level steps of four spaces and
// then the formatted text.
func indent(s *arena.Scratch, level int, format string, args ...any) error {
	if err := s.Appendf("\n%*s", level*4, ""); err != nil {
		return err
	}
	return s.Appendf(format, args...)
}
