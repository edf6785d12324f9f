package collector

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axians/clientlog/arena"
)

func processSystem() *fakeSystem {
	return &fakeSystem{
		times: []ProcessTime{
			{Pid: 2, CPU: 2.0},
			{Pid: 1, CPU: 1.0},
		},
		procs: []Process{
			{Pid: 0, Name: "Idle", CPU: 99},
			{Pid: 1, Name: "beta", User: "root", CPU: 1.5, RSS: 100 << 20},
			{Pid: 2, Name: "Alpha", User: "daemon", CPU: 2.1, RSS: 10 << 20},
			{Pid: 3, Name: "gamma", CPU: 0.2},
		},
	}
}

// section returns the text of the report section starting with header.
func section(out, header string) string {
	i := strings.Index(out, header)
	if i < 0 {
		return ""
	}
	rest := out[i+len(header):]
	if j := strings.Index(rest, "\n["); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

func rowOrder(t *testing.T, table string, names ...string) {
	t.Helper()
	last := -1
	for _, name := range names {
		i := strings.Index(table, "\n"+name+" ")
		require.GreaterOrEqual(t, i, 0, "row %q missing from %q", name, table)
		assert.Greater(t, i, last, "row %q out of order", name)
		last = i
	}
}

func TestProcesses(t *testing.T) {
	env, fc := newEnv(processSystem())
	env.Limits.TopProcesses = 2

	a, err := arena.New(8192)
	require.NoError(t, err)
	defer a.Release()

	err = a.Recover(func(s arena.Scratch) error {
		sample, err := StartProcesses(context.Background(), env, &s)
		if err != nil {
			return err
		}
		env.Processes = sample
		fc.Advance(time.Second)
		return Processes(context.Background(), env, s)
	})
	require.NoError(t, err)
	out := a.String()

	assert.True(t, strings.HasPrefix(out, "[processes]\nPROCESS"))
	assert.NotContains(t, out, "Idle", "pid 0 is never listed")

	all := section(out, "[processes]")
	rowOrder(t, all, "Alpha", "beta", "gamma")
	assert.Contains(t, all, "\nbeta                           \t     1\troot                           \t 50.0 %\t   100.00 MB")
	assert.Contains(t, all, "\ngamma                          \t     3\t-                              \t 20.0 %\t           -")

	cpu := section(out, "[topprocessescpu]")
	rowOrder(t, cpu, "beta", "gamma")
	assert.NotContains(t, cpu, "Alpha")

	mem := section(out, "[topprocessesmemory]")
	rowOrder(t, mem, "beta", "Alpha")
	assert.NotContains(t, mem, "gamma")
}

func TestProcessesWaitsForSampleWindow(t *testing.T) {
	env, fc := newEnv(processSystem())

	done := make(chan string, 1)
	go func() {
		out, err := render(t, 8192, env, Processes)
		assert.NoError(t, err)
		done <- out
	}()

	fc.WaitForTimers(1)
	select {
	case <-done:
		t.Fatal("process tables rendered before the sample window elapsed")
	default:
	}
	fc.Advance(time.Second)

	select {
	case out := <-done:
		assert.Contains(t, out, "[topprocessesmemory]")
	case <-time.After(5 * time.Second):
		t.Fatal("process section did not finish")
	}
}

func TestProcessesCancelled(t *testing.T) {
	env, fc := newEnv(processSystem())
	ctx, cancel := context.WithCancel(context.Background())

	a, err := arena.New(8192)
	require.NoError(t, err)
	defer a.Release()

	go func() {
		fc.WaitForTimers(1)
		cancel()
	}()
	err = a.Recover(func(s arena.Scratch) error {
		return Processes(ctx, env, s)
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessesSourceErrors(t *testing.T) {
	tests := []struct {
		name string
		sys  *fakeSystem
	}{
		{"sample failed", &fakeSystem{timesErr: errors.New("denied")}},
		{"listing failed", &fakeSystem{procsErr: errors.New("denied")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, _ := newEnv(tt.sys)
			env.Limits.ProcessSample = 0
			out, err := render(t, 4096, env, Processes)
			require.NoError(t, err)
			assert.Equal(t, 3, strings.Count(out, "(Unable to query processes)"))
			assert.Contains(t, out, "[topprocessescpu]")
		})
	}
}

func TestProcessRowsLiveInScratch(t *testing.T) {
	env, _ := newEnv(processSystem())
	env.Limits.ProcessSample = 0

	a, err := arena.New(8192)
	require.NoError(t, err)
	defer a.Release()

	err = a.Recover(func(s arena.Scratch) error {
		before := s.Free()
		if err := Processes(context.Background(), env, s); err != nil {
			return err
		}
		// The collector's copy took the scratch; the caller's cursor did not move.
		assert.Equal(t, before-len(a.Output()), s.Free())
		return nil
	})
	require.NoError(t, err)
	assert.Greater(t, a.Metrics().ScratchPeak, 0)
}

func TestProcessesUnknownCPU(t *testing.T) {
	sys := &fakeSystem{
		times: []ProcessTime{
			{Pid: 1, CPU: UnknownCPU},
			{Pid: 2, CPU: 4.0},
		},
		procs: []Process{
			// Lifetime CPU far beyond the window: only the start reading failed.
			{Pid: 1, Name: "backup", User: "root", CPU: 5000},
			{Pid: 2, Name: "sshd", User: "root", CPU: UnknownCPU},
			{Pid: 3, Name: "late", User: "root", CPU: 0.5},
		},
	}
	env, _ := newEnv(sys)
	env.Limits.ProcessSample = 0
	env.Limits.TopProcesses = 1

	out, err := render(t, 8192, env, Processes)
	require.NoError(t, err)

	all := section(out, "[processes]")
	assert.Contains(t, all, "\nbackup                         \t     1\troot                           \t      -\t           -")
	assert.Contains(t, all, "\nsshd                           \t     2\troot                           \t      -\t           -")
	assert.NotContains(t, out, "5000")

	// A process missing from the first reading started during the window.
	cpu := section(out, "[topprocessescpu]")
	rowOrder(t, cpu, "late")
	assert.NotContains(t, cpu, "backup")
}
