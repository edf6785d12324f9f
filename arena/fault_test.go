package arena

import (
	"errors"
	"strings"
	"testing"
)

func TestRecoverOutOfSpace(t *testing.T) {
	a, _ := New(64)
	released := map[string]int{}
	track := func(name string) func() error {
		return func() error {
			released[name]++
			return nil
		}
	}

	reached := false
	err := a.Recover(func(s Scratch) error {
		s.Defer("key", track("key"))
		s.Defer("handle", track("handle"))
		if err := s.Appendf("%s", strings.Repeat("x", 65)); err != nil {
			return err
		}
		reached = true
		return nil
	})

	if reached {
		t.Error("pass continued past the overflowing append")
	}
	code, ok := FaultCode(err)
	if !ok || code != CodeOutOfSpace {
		t.Fatalf("Recover = %v, want fault code %d", err, CodeOutOfSpace)
	}
	for _, name := range []string{"key", "handle"} {
		if released[name] != 1 {
			t.Errorf("guard %q released %d times, want 1", name, released[name])
		}
	}
}

func TestFaultIsSticky(t *testing.T) {
	a, _ := New(32)
	var seen []error
	err := a.Recover(func(s Scratch) error {
		_, first := s.AllocBytes(64)
		seen = append(seen, first)

		// Ignore the fault and keep going, as a careless collector might.
		seen = append(seen, s.Appendf("more"))
		_, werr := s.Write([]byte("x"))
		seen = append(seen, werr)
		_, aerr := s.AllocBytes(1)
		seen = append(seen, aerr)
		seen = append(seen, s.Err())
		return nil
	})

	if !errors.Is(err, ErrOutOfSpace) {
		t.Fatalf("Recover = %v, want ErrOutOfSpace", err)
	}
	for i, e := range seen {
		if e != seen[0] {
			t.Errorf("operation %d returned %v, want the pending fault", i, e)
		}
	}
	if len(a.Output()) != 0 {
		t.Errorf("output written while fault pending: %q", a.Output())
	}
}

func TestDeferWhileFaultPending(t *testing.T) {
	a, _ := New(16)
	released := 0
	a.Recover(func(s Scratch) error {
		s.AllocBytes(32)
		err := s.Defer("late", func() error { released++; return nil })
		if !errors.Is(err, ErrOutOfSpace) {
			t.Errorf("Defer with pending fault = %v", err)
		}
		if s.Guards() != 0 {
			t.Errorf("guard registered with pending fault")
		}
		return nil
	})
	if released != 1 {
		t.Errorf("late guard released %d times, want 1", released)
	}
}

func TestRecoverClearsFault(t *testing.T) {
	a, _ := New(16)
	a.Recover(func(s Scratch) error {
		_, err := s.AllocBytes(17)
		return err
	})

	err := a.Recover(func(s Scratch) error {
		return s.Appendf("ok")
	})
	if err != nil {
		t.Fatalf("second pass = %v, want nil", err)
	}
}

func TestRecoverPassError(t *testing.T) {
	a, _ := New(64)
	plain := errors.New("collector failed")
	released := 0
	err := a.Recover(func(s Scratch) error {
		s.Defer("g", func() error { released++; return nil })
		return plain
	})
	if err != plain {
		t.Errorf("Recover = %v, want %v", err, plain)
	}
	if _, ok := FaultCode(err); ok {
		t.Error("plain error reported as fault")
	}
	if released != 1 {
		t.Errorf("guard released %d times on error path", released)
	}
}

func TestRecoverSuccessReleasesGuards(t *testing.T) {
	a, _ := New(64)
	released := 0
	err := a.Recover(func(s Scratch) error {
		s.Defer("g", func() error { released++; return nil })
		return s.Appendf("done")
	})
	if err != nil || released != 1 {
		t.Errorf("Recover = %v, released = %d", err, released)
	}
}

func TestRecoverNestedPanics(t *testing.T) {
	a, _ := New(64)
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on nested recovery point")
		}
	}()
	a.Recover(func(s Scratch) error {
		return a.Recover(func(Scratch) error { return nil })
	})
}

func TestRaise(t *testing.T) {
	a, _ := New(64)
	err := a.Recover(func(s Scratch) error {
		first := s.Raise(7)
		if second := s.Raise(9); second != first {
			t.Errorf("second Raise = %v, want first fault %v", second, first)
		}
		return nil
	})
	if code, ok := FaultCode(err); !ok || code != 7 {
		t.Errorf("Recover = %v, want code 7", err)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on Raise(0)")
		}
	}()
	s := a.Scratch()
	s.Raise(0)
}

func TestFaultError(t *testing.T) {
	tests := []struct {
		fault *Fault
		want  string
		is    error
	}{
		{&Fault{Code: CodeOutOfSpace, Op: "append"}, "arena: out of space during append", ErrOutOfSpace},
		{&Fault{Code: CodeGuardStackFull, Op: "defer key"}, "arena: guard stack full during defer key", ErrGuardStackFull},
		{&Fault{Code: 5, Op: "raise"}, "arena: fault 5 during raise", nil},
	}

	for _, tt := range tests {
		if got := tt.fault.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
		if tt.is != nil && !errors.Is(tt.fault, tt.is) {
			t.Errorf("errors.Is(%v, %v) = false", tt.fault, tt.is)
		}
	}
	if errors.Is(&Fault{Code: CodeOutOfSpace}, ErrGuardStackFull) {
		t.Error("out-of-space fault matched ErrGuardStackFull")
	}
}

func TestAnnotateInsideRecoverPanics(t *testing.T) {
	a, _ := New(64)
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic")
		}
	}()
	a.Recover(func(Scratch) error {
		a.Annotate("x")
		return nil
	})
}
