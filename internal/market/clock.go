package market

import (
	"math/rand"
	"sync"
	"time"
)

// Clock supplies the current timestamp for trade stamps and the 24-hour
// volume window. Injected so tests can pin time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock implementation of Clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Rand supplies uniform samples for the drift simulator and cosmetic
// jitter. Injected so tests can make drift deterministic.
type Rand interface {
	// Uniform returns a sample drawn uniformly from [min, max).
	Uniform(min, max float64) float64
}

// UniformRand is the default Rand backed by math/rand. Safe for
// concurrent use.
type UniformRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRand creates a Rand seeded from the given value. Seed with
// time.Now().UnixNano() for production use.
func NewRand(seed int64) *UniformRand {
	return &UniformRand{rng: rand.New(rand.NewSource(seed))}
}

// Uniform returns a sample drawn uniformly from [min, max).
func (r *UniformRand) Uniform(min, max float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return min + r.rng.Float64()*(max-min)
}
