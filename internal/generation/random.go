package generation

import (
	"math"
	"math/rand/v2"
	"sync"
)

// Random is the source of randomness used by the sampler and scorer.
// *rand.Rand from math/rand/v2 satisfies it, but is not safe for concurrent use.
type Random interface {
	Float64() float64
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }
func (globalRandom) IntN(n int) int   { return rand.IntN(n) }

// lockedRandom serialises access to a seeded generator.
type lockedRandom struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededRandom returns a deterministic, goroutine-safe source.
func NewSeededRandom(seed uint64) Random {
	return &lockedRandom{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRandom) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64()
}

func (l *lockedRandom) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.IntN(n)
}

// sampleOnGrid draws uniformly from [min, max] restricted to multiples of 1/scale,
// so the rounded value never leaves the range. ok is false when the range holds no
// grid point; min is returned in that case.
func sampleOnGrid(rng Random, min, max, scale float64) (value float64, ok bool) {
	lo := math.Ceil(min*scale - 1e-9)
	hi := math.Floor(max*scale + 1e-9)
	if lo > hi {
		return min, false
	}
	steps := math.Round(lo + rng.Float64()*(hi-lo))
	if steps < lo {
		steps = lo
	}
	if steps > hi {
		steps = hi
	}
	return steps / scale, true
}
