package arena_test

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"testing"

	"github.com/axians/clientlog/arena"
)

type conn struct {
	pid  int32
	port uint32
	ip   [16]byte
}

func connections(n int) []conn {
	conns := make([]conn, n)
	for i := range conns {
		conns[i] = conn{pid: int32(n - i), port: uint32(1024 + i*7%4096)}
		conns[i].ip[15] = byte(i % 8)
	}
	return conns
}

// BenchmarkReportScenarios renders report shaped output: sorted tables,
// copied strings and guarded resources.
func BenchmarkReportScenarios(b *testing.B) {
	conns := connections(512)

	b.Run("PortsTable", func(b *testing.B) {
		b.Run("Arena", func(b *testing.B) {
			a, _ := arena.New(256 << 10)
			defer a.Release()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				a.Recover(func(s arena.Scratch) error {
					order, err := arena.AllocSlice[int32](&s, len(conns))
					if err != nil {
						return err
					}
					for j := range order {
						order[j] = int32(j)
					}
					slices.SortFunc(order, func(x, y int32) int {
						cx, cy := &conns[x], &conns[y]
						if c := bytes.Compare(cx.ip[:], cy.ip[:]); c != 0 {
							return c
						}
						if c := cmp.Compare(cx.pid, cy.pid); c != 0 {
							return c
						}
						return cmp.Compare(cx.port, cy.port)
					})
					for _, j := range order {
						c := &conns[j]
						if err := s.Appendf("\n%-23s\t%6d\t%5d", "0.0.0.0", c.pid, c.port); err != nil {
							return err
						}
					}
					return nil
				})
				a.Reset()
			}
		})

		b.Run("Builtin", func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				order := make([]int32, len(conns))
				for j := range order {
					order[j] = int32(j)
				}
				slices.SortFunc(order, func(x, y int32) int {
					cx, cy := &conns[x], &conns[y]
					if c := bytes.Compare(cx.ip[:], cy.ip[:]); c != 0 {
						return c
					}
					if c := cmp.Compare(cx.pid, cy.pid); c != 0 {
						return c
					}
					return cmp.Compare(cx.port, cy.port)
				})
				var buf []byte
				for _, j := range order {
					c := &conns[j]
					buf = fmt.Appendf(buf, "\n%-23s\t%6d\t%5d", "0.0.0.0", c.pid, c.port)
				}
				_ = buf
			}
		})
	})

	b.Run("CopyStrings", func(b *testing.B) {
		names := make([]string, 256)
		for i := range names {
			names[i] = fmt.Sprintf("process-%04d.exe", i)
		}

		b.Run("Arena", func(b *testing.B) {
			a, _ := arena.New(64 << 10)
			defer a.Release()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				a.Recover(func(s arena.Scratch) error {
					for _, n := range names {
						if _, err := s.CopyString(n); err != nil {
							return err
						}
					}
					return nil
				})
				a.Reset()
			}
		})

		b.Run("Builtin", func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				out := make([]string, len(names))
				for j, n := range names {
					out[j] = string([]byte(n))
				}
				_ = out
			}
		})
	})

	b.Run("GuardChurn", func(b *testing.B) {
		release := func() error { return nil }

		b.Run("Arena", func(b *testing.B) {
			a, _ := arena.New(4 << 10)
			defer a.Release()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				a.Recover(func(s arena.Scratch) error {
					for j := 0; j < 64; j++ {
						if err := s.Defer("key", release); err != nil {
							return err
						}
						if err := s.Defer("value", release); err != nil {
							return err
						}
						s.PopOne()
						s.PopOne()
					}
					return nil
				})
			}
		})

		b.Run("Builtin_Defer", func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				for j := 0; j < 64; j++ {
					func() {
						defer release()
						defer release()
					}()
				}
			}
		})
	})
}
