package arena

import (
	"sync"
)

// Pool hands out arenas of one capacity and takes them back for reuse.
// An arena is owned by exactly one report pass between Get and Put; the
// pool itself is safe for concurrent use.
type Pool struct {
	mu       sync.Mutex
	capacity int
	opts     []Option
	free     []*Arena
	maxIdle  int
}

// NewPool creates a pool of arenas with the given capacity and options.
// At most maxIdle released arenas are retained; values <= 0 keep one.
func NewPool(capacity, maxIdle int, opts ...Option) *Pool {
	if maxIdle <= 0 {
		maxIdle = 1
	}
	return &Pool{capacity: capacity, opts: opts, maxIdle: maxIdle}
}

// Get returns an idle arena, or a new one when none is idle.
func (p *Pool) Get() (*Arena, error) {
	p.mu.Lock()
	if n := len(p.free); n > 0 {
		a := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.mu.Unlock()
		return a, nil
	}
	p.mu.Unlock()
	return New(p.capacity, p.opts...)
}

// Put resets a and keeps it for a later Get. Arenas that were released or
// do not match the pool's capacity are dropped.
func (p *Pool) Put(a *Arena) {
	if a == nil || a.buf == nil || len(a.buf) != p.capacity {
		return
	}
	a.Reset()

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) >= p.maxIdle {
		a.Release()
		return
	}
	p.free = append(p.free, a)
}

// Idle returns the number of arenas waiting in the pool.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
