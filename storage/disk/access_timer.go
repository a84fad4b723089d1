package disk

import (
	"math/rand"
	"time"

	"github.com/ymakino/MegatronDB/common"
)

// AccessTimer produces the simulated latency of one block access:
// seek and rotational delay drawn uniformly from [0, 2*mean], plus the
// fixed transfer time. It is a cost model, not real timing.
type AccessTimer struct {
	seekMs     float64
	rotationMs float64
	transferMs float64
	rnd        *rand.Rand
}

func NewAccessTimer(cfg *common.DiskConfig) *AccessTimer {
	return NewAccessTimerWithSource(cfg, rand.NewSource(time.Now().UnixNano()))
}

// NewAccessTimerWithSource takes an explicit random source so tests
// can pin the sampled values.
func NewAccessTimerWithSource(cfg *common.DiskConfig, src rand.Source) *AccessTimer {
	return &AccessTimer{
		seekMs:     cfg.SeekTimeMs,
		rotationMs: cfg.RotationalLatencyMs,
		transferMs: cfg.TransferTimeMs,
		rnd:        rand.New(src),
	}
}

// Sample returns one access latency in milliseconds.
func (t *AccessTimer) Sample() float64 {
	seek := t.rnd.Float64() * 2 * t.seekMs
	rotation := t.rnd.Float64() * 2 * t.rotationMs
	return seek + rotation + t.transferMs
}

// Bounds returns the inclusive range every sample falls into.
func (t *AccessTimer) Bounds() (min, max float64) {
	return t.transferMs, 2*t.seekMs + 2*t.rotationMs + t.transferMs
}
