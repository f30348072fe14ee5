package checker

import "time"

// Batch defaults. They are tuned for a browser-era backend and kept as policy.
const (
	DefaultBatchSize = 20
	DefaultMinBatch  = 5
	DefaultMaxBatch  = 100
	DefaultDelay     = 150 * time.Millisecond
)

// Policy controls chunking and pacing.
type Policy struct {
	BatchSize int
	// Delay is the pause between chunks. Zero means DefaultDelay; negative disables it.
	Delay    time.Duration
	MinBatch int
	MaxBatch int
}

// DefaultPolicy returns the default policy.
func DefaultPolicy() Policy {
	return Policy{
		BatchSize: DefaultBatchSize,
		Delay:     DefaultDelay,
		MinBatch:  DefaultMinBatch,
		MaxBatch:  DefaultMaxBatch,
	}
}

// Normalize fills zero values and clamps BatchSize into [MinBatch, MaxBatch].
func (p Policy) Normalize() Policy {
	if p.MinBatch <= 0 {
		p.MinBatch = DefaultMinBatch
	}
	if p.MaxBatch <= 0 {
		p.MaxBatch = DefaultMaxBatch
	}
	if p.MaxBatch < p.MinBatch {
		p.MaxBatch = p.MinBatch
	}
	if p.BatchSize == 0 {
		p.BatchSize = DefaultBatchSize
	}
	p.BatchSize = min(max(p.BatchSize, p.MinBatch), p.MaxBatch)

	switch {
	case p.Delay == 0:
		p.Delay = DefaultDelay
	case p.Delay < 0:
		p.Delay = 0
	}
	return p
}
