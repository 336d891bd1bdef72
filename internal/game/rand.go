package game

import (
	"math/rand/v2"
	"sync"
)

// Rand is the source of randomness of the engine. Implementations must be safe for concurrent use.
type Rand interface {
	// IntN returns a uniform int in [0, n).
	IntN(n int) int
	// Perm returns a random permutation of [0, n).
	Perm(n int) []int
}

type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Perm(n int) []int { return rand.Perm(n) }

// DefaultRand returns a Rand backed by the runtime-seeded global generator.
func DefaultRand() Rand { return globalRand{} }

type seededRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededRand returns a reproducible Rand, used by tests and replays.
func NewSeededRand(seed uint64) Rand {
	return &seededRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededRand) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

func (s *seededRand) Perm(n int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Perm(n)
}

// between returns a uniform int in [lo, hi].
func between(r Rand, lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}
