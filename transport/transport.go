// Package transport delivers finished reports to the display.
package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Sender delivers one report for machine. Implementations must not retain
// report after Send returns: it may be backed by a pooled arena.
type Sender interface {
	Send(ctx context.Context, machine string, report []byte) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, machine string, report []byte) error

func (f SenderFunc) Send(ctx context.Context, machine string, report []byte) error {
	return f(ctx, machine, report)
}

// Writer writes every report to W followed by a newline.
type Writer struct {
	mu sync.Mutex
	W  io.Writer
}

// NewWriter returns a Writer sending to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{W: w}
}

func (w *Writer) Send(ctx context.Context, _ string, report []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.W.Write(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if _, err := io.WriteString(w.W, "\n"); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
