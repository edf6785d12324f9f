package arena

import (
	"fmt"
)

// Example demonstrates one report pass: text goes to the output while
// working memory comes from scratch.
func Example() {
	a, err := New(1024)
	if err != nil {
		panic(err)
	}
	defer a.Release()

	err = a.Recover(func(s Scratch) error {
		if err := s.Appendf("[processes]\n"); err != nil {
			return err
		}
		pids, err := AllocSlice[int32](&s, 3)
		if err != nil {
			return err
		}
		for i := range pids {
			pids[i] = int32(4 * (i + 1))
		}
		for _, pid := range pids {
			if err := s.Appendf("%6d\n", pid); err != nil {
				return err
			}
		}
		return nil
	})
	fmt.Println(err)
	fmt.Print(a.String())

	// Output:
	// <nil>
	// [processes]
	//      4
	//      8
	//     12
}

// ExampleArena_Recover demonstrates a pass that runs out of space and the
// output being annotated afterwards.
func ExampleArena_Recover() {
	a, _ := New(16)
	defer a.Release()

	err := a.Recover(func(s Scratch) error {
		if err := s.Appendf("[date]\n"); err != nil {
			return err
		}
		return s.Appendf("%s", "this line does not fit")
	})
	if code, ok := FaultCode(err); ok {
		a.Annotate(fmt.Sprintf("\n(code %d)", code))
	}
	fmt.Printf("%q\n", a.String())

	// Output:
	// "[date]\n\n(code 1)"
}

// ExampleScratch_Defer demonstrates guards being released in reverse order
// when the pass ends.
func ExampleScratch_Defer() {
	a, _ := New(64)
	defer a.Release()

	a.Recover(func(s Scratch) error {
		for _, name := range []string{"registry key", "service manager", "file"} {
			s.Defer(name, func() error {
				fmt.Println("released", name)
				return nil
			})
		}
		return nil
	})

	// Output:
	// released file
	// released service manager
	// released registry key
}

// ExampleScratch_Rewind demonstrates reclaiming scratch inside a loop.
func ExampleScratch_Rewind() {
	a, _ := New(256)
	defer a.Release()
	s := a.Scratch()

	mark := s.Save()
	for i := 0; i < 3; i++ {
		buf, _ := s.AllocBytes(100)
		buf[0] = byte(i)
		fmt.Printf("round %d free: %d\n", i, s.Free())
		s.Rewind(mark)
	}

	// Output:
	// round 0 free: 156
	// round 1 free: 156
	// round 2 free: 156
}

// ExampleArena_Metrics demonstrates monitoring arena usage.
func ExampleArena_Metrics() {
	a, _ := New(1024)
	defer a.Release()
	s := a.Scratch()

	s.Appendf("hello")
	AllocSlice[int64](&s, 4)

	m := a.Metrics()
	fmt.Printf("Output: %d bytes\n", m.OutputBytes)
	fmt.Printf("Scratch peak: %d bytes\n", m.ScratchPeak)
	fmt.Printf("Utilization: %.1f%%\n", m.Utilization*100)

	// Output:
	// Output: 5 bytes
	// Scratch peak: 32 bytes
	// Utilization: 3.6%
}
