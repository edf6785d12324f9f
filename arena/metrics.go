package arena

// SizeInUse returns the bytes taken by the output plus the deepest scratch
// region reached since the last Reset, alignment padding included.
func (a *Arena) SizeInUse() int {
	if a.buf == nil {
		return 0
	}
	return a.output + (len(a.buf) - a.low)
}

// Capacity returns the size of the backing buffer in bytes.
func (a *Arena) Capacity() int {
	return len(a.buf)
}

// Utilization returns the ratio of bytes in use to capacity (0.0 to 1.0).
// Returns 0.0 if the arena has no capacity.
func (a *Arena) Utilization() float64 {
	capacity := a.Capacity()
	if capacity == 0 {
		return 0
	}
	return float64(a.SizeInUse()) / float64(capacity)
}

// Metrics returns a snapshot of arena statistics.
func (a *Arena) Metrics() Metrics {
	m := Metrics{
		Capacity:    a.Capacity(),
		Guards:      len(a.guards),
		MaxGuards:   a.maxGuards,
		Faults:      a.faults,
		Utilization: a.Utilization(),
	}
	if a.buf != nil {
		m.OutputBytes = a.output
		m.ScratchPeak = len(a.buf) - a.low
	}
	return m
}

// Metrics contains statistical information about an arena.
type Metrics struct {
	Capacity    int     // Size of the backing buffer
	OutputBytes int     // Bytes of report text written
	ScratchPeak int     // Deepest scratch usage since the last Reset
	Guards      int     // Guards currently registered
	MaxGuards   int     // Depth of the guard stack
	Faults      int     // Faults raised over the arena's lifetime
	Utilization float64 // Ratio of used to total capacity (0.0-1.0)
}
