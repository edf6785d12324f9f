// Package config loads the clientlog configuration file.
//
// The file is YAML. Every field has a default, so an empty file (or none at
// all) yields a working configuration that writes one report to stdout:
//
//	machine: web01
//	display: mrbig.example.com:1984
//	interval: 5m
//	sections: [date, osversion, winuptime, diskinfo, processes]
//	limits:
//	  who_sessions: 5
//	  top_processes: 20
//	spool:
//	  dir: /var/spool/clientlog
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/axians/clientlog/arena"
	"github.com/axians/clientlog/collector"
	"github.com/axians/clientlog/transport"
)

// Config is the complete clientlog configuration.
type Config struct {
	// Machine is the name the report is filed under. Default: the host name.
	Machine string `yaml:"machine"`

	// Display is host[:port] of the display. Empty writes reports to stdout.
	Display string `yaml:"display"`

	// Capacity is the arena size in bytes. Default: 512 KiB.
	Capacity int `yaml:"capacity"`

	// MaxGuards is the depth of the resource guard stack. Default: 8.
	MaxGuards int `yaml:"max_guards"`

	// Interval between reports. Zero sends one report and exits.
	Interval time.Duration `yaml:"interval"`

	// Sections lists the enabled sections in report order. Default: all.
	// [clock] always closes the report and cannot be listed.
	Sections []string `yaml:"sections"`

	Limits LimitsConfig `yaml:"limits"`
	Spool  SpoolConfig  `yaml:"spool"`
	Send   SendConfig   `yaml:"send"`
}

type LimitsConfig struct {
	WhoSessions    int           `yaml:"who_sessions"`
	TopProcesses   int           `yaml:"top_processes"`
	ProcessSample  time.Duration `yaml:"process_sample"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// Collector returns the limits in the form collectors use.
func (l LimitsConfig) Collector() collector.Limits {
	return collector.Limits{
		WhoSessions:    l.WhoSessions,
		TopProcesses:   l.TopProcesses,
		ProcessSample:  l.ProcessSample,
		CommandTimeout: l.CommandTimeout,
	}
}

type SpoolConfig struct {
	// Dir keeps reports that could not be sent. Empty disables spooling.
	Dir string `yaml:"dir"`

	// MaxFiles bounds the spool; the oldest reports are dropped first.
	MaxFiles int `yaml:"max_files"`
}

type SendConfig struct {
	// Timeout bounds one connection attempt to the display.
	Timeout time.Duration `yaml:"timeout"`

	// MaxElapsed bounds all retries of one report.
	MaxElapsed time.Duration `yaml:"max_elapsed"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	machine, _ := os.Hostname()
	limits := collector.DefaultLimits()
	return &Config{
		Machine:   machine,
		Capacity:  arena.DefaultCapacity,
		MaxGuards: arena.DefaultMaxGuards,
		Sections:  collector.SectionNames(),
		Limits: LimitsConfig{
			WhoSessions:    limits.WhoSessions,
			TopProcesses:   limits.TopProcesses,
			ProcessSample:  limits.ProcessSample,
			CommandTimeout: limits.CommandTimeout,
		},
		Spool: SpoolConfig{
			MaxFiles: transport.DefaultMaxFiles,
		},
		Send: SendConfig{
			Timeout:    10 * time.Second,
			MaxElapsed: time.Minute,
		},
	}
}

// LoadFile reads the file at path over the defaults and validates the
// result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data over the defaults and validates the result.
// Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document keeps the defaults.
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Machine == "" {
		errs = append(errs, errors.New("machine: required (host name unavailable)"))
	}
	if c.Capacity <= 0 || c.Capacity > arena.MaxCapacity {
		errs = append(errs, fmt.Errorf("capacity: %d out of range (1..%d)", c.Capacity, arena.MaxCapacity))
	}
	if c.MaxGuards < 1 {
		errs = append(errs, fmt.Errorf("max_guards: %d must be at least 1", c.MaxGuards))
	}
	if c.Interval < 0 {
		errs = append(errs, fmt.Errorf("interval: %s is negative", c.Interval))
	}
	seen := make(map[string]bool, len(c.Sections))
	for _, name := range c.Sections {
		switch {
		case name == "clock":
			errs = append(errs, errors.New("sections: clock always ends the report and cannot be listed"))
		case seen[name]:
			errs = append(errs, fmt.Errorf("sections: %q listed twice", name))
		default:
			if _, ok := collector.Lookup(name); !ok {
				errs = append(errs, fmt.Errorf("sections: unknown section %q", name))
			}
		}
		seen[name] = true
	}
	if c.Limits.WhoSessions < 0 {
		errs = append(errs, errors.New("limits.who_sessions: must not be negative"))
	}
	if c.Limits.TopProcesses < 0 {
		errs = append(errs, errors.New("limits.top_processes: must not be negative"))
	}
	if c.Limits.ProcessSample < 0 {
		errs = append(errs, errors.New("limits.process_sample: must not be negative"))
	}
	if c.Limits.CommandTimeout <= 0 {
		errs = append(errs, errors.New("limits.command_timeout: must be positive"))
	}
	if c.Spool.MaxFiles < 0 {
		errs = append(errs, errors.New("spool.max_files: must not be negative"))
	}
	if c.Send.Timeout < 0 || c.Send.MaxElapsed < 0 {
		errs = append(errs, errors.New("send: timeouts must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
