package arena_test

import (
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/axians/clientlog/arena"
)

// BenchmarkConcurrencyPatterns compares ways of giving concurrent report
// passes their own arena.
func BenchmarkConcurrencyPatterns(b *testing.B) {
	pass := func(s arena.Scratch) error {
		for i := 0; i < 32; i++ {
			if err := s.Appendf("%-31s\t%6d\n", "worker", i); err != nil {
				return err
			}
		}
		return nil
	}

	b.Run("Pool_Parallel", func(b *testing.B) {
		p := arena.NewPool(64<<10, runtime.GOMAXPROCS(0))

		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				a, err := p.Get()
				if err != nil {
					b.Error(err)
					return
				}
				a.Recover(pass)
				p.Put(a)
			}
		})
	})

	b.Run("Arena_PerGoroutine", func(b *testing.B) {
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			a, _ := arena.New(64 << 10)
			defer a.Release()
			for pb.Next() {
				a.Recover(pass)
				a.Reset()
			}
		})
	})

	b.Run("Arena_PerPass", func(b *testing.B) {
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				a, _ := arena.New(64 << 10)
				a.Recover(pass)
				a.Release()
			}
		})
	})

	b.Run("SyncPool_Builtin", func(b *testing.B) {
		sp := sync.Pool{New: func() any {
			buf := make([]byte, 0, 64<<10)
			return &buf
		}}

		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				bp := sp.Get().(*[]byte)
				buf := (*bp)[:0]
				for i := 0; i < 32; i++ {
					buf = append(buf, "worker\n"...)
				}
				*bp = buf
				sp.Put(bp)
			}
		})
	})
}

// BenchmarkPoolContention measures Get/Put under increasing goroutine counts.
func BenchmarkPoolContention(b *testing.B) {
	for _, workers := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			p := arena.NewPool(4<<10, workers)
			var wg sync.WaitGroup
			per := b.N/workers + 1

			b.ResetTimer()
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < per; i++ {
						a, _ := p.Get()
						p.Put(a)
					}
				}()
			}
			wg.Wait()
		})
	}
}
