//go:build !windows

package collector

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axians/clientlog/arena"
)

func runCommand(t *testing.T, capacity int, timeout time.Duration, name string, args ...string) (string, error) {
	t.Helper()
	env, _ := newEnv(&fakeSystem{})
	return render(t, capacity, env, func(ctx context.Context, _ *Env, s arena.Scratch) error {
		return RunCommand(ctx, s, timeout, name, args...)
	})
}

func TestRunCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"stdout", []string{"-c", "printf hello"}, "hello"},
		{"stderr joins stdout", []string{"-c", "printf out; printf err >&2"}, "outerr"},
		{"non-zero exit keeps output", []string{"-c", "printf partial; exit 3"}, "partial"},
		{"no output", []string{"-c", "true"}, "(No output)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, 4096, 5*time.Second, "sh", tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRunCommandLargeOutput(t *testing.T) {
	// More than one read buffer of output.
	out, err := runCommand(t, 8192, 5*time.Second, "sh", "-c", "i=0; while [ $i -lt 200 ]; do printf 0123456789; i=$((i+1)); done")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("0123456789", 200), out)
}

func TestRunCommandZeroTimeoutUsesDefault(t *testing.T) {
	out, err := runCommand(t, 4096, 0, "sh", "-c", "printf hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestRunCommandTimeout(t *testing.T) {
	start := time.Now()
	out, err := runCommand(t, 4096, 100*time.Millisecond, "sh", "-c", "sleep 10")
	require.NoError(t, err)
	assert.Equal(t, "(Failed to run command, process took more than 100ms to run.)", out)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunCommandMissingBinary(t *testing.T) {
	out, err := runCommand(t, 4096, time.Second, "clientlog-no-such-binary")
	require.NoError(t, err)
	assert.Equal(t, "(Failed to run command, could not create process from 'clientlog-no-such-binary'.)", out)
}

func TestRunCommandOutOfSpace(t *testing.T) {
	a, err := arena.New(700)
	require.NoError(t, err)
	defer a.Release()

	err = a.Recover(func(s arena.Scratch) error {
		return RunCommand(context.Background(), s, 5*time.Second, "sh", "-c", "head -c 4096 /dev/zero")
	})
	code, ok := arena.FaultCode(err)
	require.True(t, ok)
	assert.Equal(t, arena.CodeOutOfSpace, code)
	assert.Zero(t, a.Metrics().Guards, "the process guard must be released by the recovery point")
}

func TestRunningServices(t *testing.T) {
	saved := systemctl
	t.Cleanup(func() { systemctl = saved })
	systemctl = []string{"sh", "-c", "printf 'cron.service loaded active running Regular background program processing daemon'"}

	env, _ := newEnv(&fakeSystem{})
	out, err := render(t, 4096, env, RunningServices)
	require.NoError(t, err)
	assert.Equal(t, "[runningservices]\ncron.service loaded active running Regular background program processing daemon", out)
}
