// Command clientlog sends the MrBig client report of this host to a
// display, once or at an interval.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"github.com/axians/clientlog"
	"github.com/axians/clientlog/config"
	"github.com/axians/clientlog/internal/clock"
	"github.com/axians/clientlog/internal/flagenv"
	"github.com/axians/clientlog/transport"
)

// version is set at build time.
var version = "dev"

const envPrefix = "CLIENTLOG_"

var (
	ConfigPath = pflag.StringP("config", "c", "", "config file (yaml)")
	Machine    = pflag.StringP("machine", "m", "", "machine name the report is filed under (default: host name)")
	Display    = pflag.StringP("display", "d", "", "display host[:port] (default: write the report to stdout)")
	Interval   = pflag.DurationP("interval", "i", 0, "send a report every interval (0 to send once)")
	SpoolDir   = pflag.String("spool", "", "directory keeping reports that could not be sent")
	LogLevel   = flagenv.Level(pflag.CommandLine, "log-level", "L", slog.LevelInfo, "log level")
	LogJSON    = pflag.Bool("log-json", false, "use json logs")
	Version    = pflag.Bool("version", false, "print the version and exit")
	Help       = pflag.BoolP("help", "h", false, "show this help text")
)

func main() {
	warnings, err := flagenv.Parse(pflag.CommandLine, envPrefix, os.Environ())
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, w)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	pflag.Parse()

	if *Help || pflag.NArg() != 0 {
		fmt.Printf("usage: %s [options]\n%s", os.Args[0], pflag.CommandLine.FlagUsages())
		if *Help {
			return
		}
		os.Exit(2)
	}
	if *Version {
		fmt.Printf("%s %s\n", clientlog.Package, version)
		return
	}

	var logger *slog.Logger
	if *LogJSON {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: LogLevel,
		}))
	} else {
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level: LogLevel,
		}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("clientlog failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := clientlog.Options{
		Machine:   cfg.Machine,
		Capacity:  cfg.Capacity,
		MaxGuards: cfg.MaxGuards,
		Sections:  cfg.Sections,
		Limits:    cfg.Limits.Collector(),
		Version:   version,
		Logger:    logger,
		Clock:     clock.Real(),
	}
	sender := newSender(cfg, logger)

	if cfg.Interval == 0 {
		return clientlog.Run(ctx, opts, sender)
	}

	opts.Pool = clientlog.NewPool(opts, 1)
	logger.Info("sending reports", "machine", cfg.Machine, "display", cfg.Display, "interval", cfg.Interval)
	ticker := opts.Clock.NewTicker(cfg.Interval)
	defer ticker.Stop()
	for {
		if err := clientlog.Run(ctx, opts, sender); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !errors.Is(err, transport.ErrSpooled) {
				logger.Error("report failed", "error", err)
			}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// loadConfig reads the config file, if any, and applies the flags set on
// the command line or through the environment.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *ConfigPath != "" {
		var err error
		if cfg, err = config.LoadFile(*ConfigPath); err != nil {
			return nil, err
		}
	}
	if pflag.CommandLine.Changed("machine") {
		cfg.Machine = *Machine
	}
	if pflag.CommandLine.Changed("display") {
		cfg.Display = *Display
	}
	if pflag.CommandLine.Changed("interval") {
		cfg.Interval = *Interval
	}
	if pflag.CommandLine.Changed("spool") {
		cfg.Spool.Dir = *SpoolDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newSender(cfg *config.Config, logger *slog.Logger) transport.Sender {
	if cfg.Display == "" {
		return transport.NewWriter(os.Stdout)
	}
	var sender transport.Sender = &transport.TCP{
		Addr:        cfg.Display,
		DialTimeout: cfg.Send.Timeout,
		MaxElapsed:  cfg.Send.MaxElapsed,
		Logger:      logger,
	}
	if cfg.Spool.Dir != "" {
		sender = &transport.Spool{
			Next:     sender,
			Dir:      cfg.Spool.Dir,
			MaxFiles: cfg.Spool.MaxFiles,
			Logger:   logger,
		}
	}
	return sender
}
