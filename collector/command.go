package collector

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"github.com/axians/clientlog/arena"
)

// commandBufSize is the read buffer for command output, taken from scratch.
const commandBufSize = 512

// RunCommand runs name with args and appends its combined stdout and
// stderr to the output. Failures to start or finish the command within
// timeout are appended as notes; the returned error is non-nil only when
// the report must be aborted. A timeout that is not positive selects the
// default command timeout.
//
// The running process is registered as a guard so an aborted report never
// leaves it behind.
func RunCommand(ctx context.Context, s arena.Scratch, timeout time.Duration, name string, args ...string) error {
	if timeout <= 0 {
		timeout = DefaultLimits().CommandTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, name, args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return s.Appendf("(Failed to run command, %v.)", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return s.Appendf("(Failed to run command, could not create process from '%s'.)", name)
	}
	if err := s.Defer("command "+name, func() error {
		_ = cmd.Process.Kill()
		return ignoreExit(cmd.Wait())
	}); err != nil {
		return err
	}

	// Unblock the reader when the deadline passes even if a child of the
	// process still holds the pipe open.
	stop := context.AfterFunc(cctx, func() { _ = out.Close() })
	defer stop()

	buf, err := s.AllocBytes(commandBufSize)
	if err != nil {
		return err
	}
	written := 0
	for {
		n, rerr := out.Read(buf)
		if n > 0 {
			if _, err := s.Write(buf[:n]); err != nil {
				return err
			}
			written += n
		}
		if rerr != nil {
			break
		}
	}

	werr := cmd.Wait()
	s.PopIgnore()
	switch {
	case errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		return s.Appendf("(Failed to run command, process took more than %dms to run.)", timeout.Milliseconds())
	case ctx.Err() != nil:
		return ctx.Err()
	case werr != nil && !isExit(werr):
		return s.Appendf("(Failed to run command, %v.)", werr)
	case written == 0:
		return s.Appendf("(No output)")
	}
	return nil
}

// A non-zero exit status is not a failure of the command runner.
func isExit(err error) bool {
	var exit *exec.ExitError
	return errors.As(err, &exit)
}

func ignoreExit(err error) error {
	if err == nil || isExit(err) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}
