package clientlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/axians/clientlog/arena"
	"github.com/axians/clientlog/collector"
	"github.com/axians/clientlog/internal/clock"
	"github.com/axians/clientlog/transport"
)

// Package is the client package name printed in [clientversion].
const Package = "clientlog"

// ErrNoMachine is returned when Options.Machine is empty.
var ErrNoMachine = errors.New("clientlog: machine name required")

// Options configures a report pass. Only Machine is required.
type Options struct {
	Machine   string
	Capacity  int      // arena size; default arena.DefaultCapacity
	MaxGuards int      // guard stack depth; default arena.DefaultMaxGuards
	Sections  []string // enabled sections in order; nil enables all
	Limits    collector.Limits
	Version   string

	Logger *slog.Logger
	Clock  clock.Clock
	System collector.System

	// Pool supplies the arena when set. Capacity and MaxGuards are then
	// taken from the pool.
	Pool *arena.Pool
}

// Report is the result of one pass.
type Report struct {
	Machine   string
	Text      []byte
	FaultCode int // zero when the pass completed
	Metrics   arena.Metrics
	Duration  time.Duration
}

// Faulted reports whether the pass was cut short by an arena fault.
func (r *Report) Faulted() bool { return r.FaultCode != 0 }

// NewPool returns an arena pool sized by opts, whose arenas log failed
// guard releases to opts.Logger.
func NewPool(opts Options, maxIdle int) *arena.Pool {
	opts.setDefaults()
	return arena.NewPool(opts.Capacity, maxIdle, opts.arenaOptions()...)
}

func (o *Options) setDefaults() {
	if o.Capacity == 0 {
		o.Capacity = arena.DefaultCapacity
	}
	o.Limits = o.Limits.WithDefaults()
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.System == nil {
		o.System = collector.NewSystem()
	}
}

func (o *Options) arenaOptions() []arena.Option {
	logger := o.Logger
	return []arena.Option{
		arena.WithMaxGuards(o.MaxGuards),
		arena.WithReleaseHook(func(name string, err error) {
			logger.Warn("resource release failed", "resource", name, "error", err)
		}),
	}
}

func (o *Options) sections() ([]collector.Section, error) {
	if o.Sections == nil {
		return collector.Sections(), nil
	}
	out := make([]collector.Section, 0, len(o.Sections))
	for _, name := range o.Sections {
		sec, ok := collector.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("clientlog: unknown section %q", name)
		}
		out = append(out, sec)
	}
	return out, nil
}

// Generate runs one report pass and returns a copy of the report.
//
// A pass cut short by an arena fault is not an error: the partial report
// ends with the fault note and FaultCode is set. Errors are returned for
// invalid options, when no arena can be obtained and when ctx ends.
func Generate(ctx context.Context, opts Options) (*Report, error) {
	var report *Report
	err := generate(ctx, &opts, func(r *Report) error {
		r.Text = append([]byte(nil), r.Text...)
		report = r
		return nil
	})
	return report, err
}

// Run generates one report and sends it with sender. The report is sent
// straight from the arena, which is released or returned to the pool once
// Send returns.
func Run(ctx context.Context, opts Options, sender transport.Sender) error {
	opts.setDefaults()
	logger := opts.Logger.With("run", uuid.New().String())
	opts.Logger = logger

	return generate(ctx, &opts, func(r *Report) error {
		if err := sender.Send(ctx, r.Machine, r.Text); err != nil {
			return fmt.Errorf("send report: %w", err)
		}
		logger.Info("report sent", "machine", r.Machine, "bytes", len(r.Text))
		return nil
	})
}

// generate runs a pass and calls done with a report whose Text aliases the
// arena. The arena is given back when done returns.
func generate(ctx context.Context, opts *Options, done func(*Report) error) error {
	opts.setDefaults()
	if opts.Machine == "" {
		return ErrNoMachine
	}
	sections, err := opts.sections()
	if err != nil {
		return err
	}

	a, err := opts.arena()
	if err != nil {
		return err
	}
	defer opts.giveBack(a)

	env := &collector.Env{
		Logger:  opts.Logger,
		Clock:   opts.Clock,
		System:  opts.System,
		Limits:  opts.Limits,
		Package: Package,
		Version: opts.Version,
	}
	start := opts.Clock.Now()
	err = a.Recover(func(s arena.Scratch) error {
		return pass(ctx, env, &s, opts.Machine, sections)
	})

	code, faulted := arena.FaultCode(err)
	if err != nil && !faulted {
		return err
	}
	if faulted {
		opts.Logger.Warn("report cut short", "machine", opts.Machine, "error", err, "code", code)
		a.Annotate(fmt.Sprintf("\n(Clientlog ran into a problem, error code %d)", code))
	}

	r := &Report{
		Machine:   opts.Machine,
		Text:      a.Output(),
		FaultCode: code,
		Metrics:   a.Metrics(),
		Duration:  opts.Clock.Now().Sub(start),
	}
	opts.Logger.Info("report generated",
		"machine", r.Machine,
		"bytes", len(r.Text),
		"fault_code", r.FaultCode,
		"scratch_peak", r.Metrics.ScratchPeak,
		"utilization", r.Metrics.Utilization,
		"duration", r.Duration,
	)
	return done(r)
}

func pass(ctx context.Context, env *collector.Env, s *arena.Scratch, machine string, sections []collector.Section) error {
	for _, sec := range sections {
		if sec.Name != "processes" {
			continue
		}
		sample, err := collector.StartProcesses(ctx, env, s)
		if err != nil {
			return err
		}
		env.Processes = sample
		break
	}

	if err := s.Appendf("client %s.%s %s\n", machine, runtime.GOOS, runtime.GOOS); err != nil {
		return err
	}
	for _, sec := range sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sec.Collect(ctx, env, *s); err != nil {
			return err
		}
		if err := s.Appendf("\n"); err != nil {
			return err
		}
	}
	return collector.Clock(ctx, env, *s)
}

func (o *Options) arena() (*arena.Arena, error) {
	if o.Pool != nil {
		return o.Pool.Get()
	}
	return arena.New(o.Capacity, o.arenaOptions()...)
}

func (o *Options) giveBack(a *arena.Arena) {
	if o.Pool != nil {
		o.Pool.Put(a)
		return
	}
	a.Release()
}
