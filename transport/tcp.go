package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultPort is the port the display listens on for client reports.
const DefaultPort = 1984

const (
	defaultDialTimeout = 10 * time.Second
	defaultMaxElapsed  = time.Minute
)

// TCP sends each report over a fresh connection to a display. Failed
// attempts are retried with exponential backoff until MaxElapsed passes or
// the context ends.
type TCP struct {
	// Addr is host or host:port of the display.
	Addr string
	// DialTimeout bounds one connection attempt including the write.
	DialTimeout time.Duration
	// MaxElapsed bounds all attempts of one Send. Zero means one minute.
	MaxElapsed time.Duration
	Logger     *slog.Logger

	// dial is replaced in tests.
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewTCP returns a TCP sender for addr.
func NewTCP(addr string, logger *slog.Logger) *TCP {
	return &TCP{Addr: addr, Logger: logger}
}

// ErrNoDisplay is returned when a TCP sender has no address.
var ErrNoDisplay = errors.New("transport: no display address")

// address returns Addr with the default port filled in.
func (t *TCP) address() (string, error) {
	if t.Addr == "" {
		return "", ErrNoDisplay
	}
	if _, _, err := net.SplitHostPort(t.Addr); err == nil {
		return t.Addr, nil
	}
	return net.JoinHostPort(t.Addr, strconv.Itoa(DefaultPort)), nil
}

func (t *TCP) Send(ctx context.Context, machine string, report []byte) error {
	addr, err := t.address()
	if err != nil {
		return err
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = t.MaxElapsed
	if b.MaxElapsedTime <= 0 {
		b.MaxElapsedTime = defaultMaxElapsed
	}

	attempt := 0
	op := func() error {
		attempt++
		return t.sendOnce(ctx, addr, report)
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("report send failed, will retry",
			"machine", machine,
			"display", addr,
			"attempt", attempt,
			"backoff", next,
			"error", err,
		)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("send report to %s: %w", addr, err)
	}
	logger.Debug("report sent", "machine", machine, "display", addr, "bytes", len(report), "attempts", attempt)
	return nil
}

func (t *TCP) sendOnce(ctx context.Context, addr string, report []byte) error {
	timeout := t.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dial := t.dial
	if dial == nil {
		var d net.Dialer
		dial = d.DialContext
	}
	conn, err := dial(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	if _, err := conn.Write(report); err != nil {
		return err
	}
	return conn.Close()
}
