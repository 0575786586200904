package pdf

import (
	"math/rand/v2"
	"sync"
)

// lockedSource serialises access to an underlying rand.Source.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// NewSource returns a PCG source seeded from seed that may be shared by
// goroutines. Distributions built on it can be sampled concurrently.
func NewSource(seed uint64) rand.Source {
	return &lockedSource{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

// sourceOrDefault returns src, or a randomly seeded source when src is nil.
func sourceOrDefault(src rand.Source) rand.Source {
	if src == nil {
		return NewSource(rand.Uint64())
	}
	return src
}
