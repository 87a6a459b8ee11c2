package synthetic

import (
	"math/rand"
	"sync"
	"time"
)

// SeededSource draws uniformly distributed integers from a seeded PRNG.
// Equal seeds produce equal sequences.
type SeededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource creates a reproducible value source
func NewSeededSource(seed int64) *SeededSource {
	return &SeededSource{rng: rand.New(rand.NewSource(seed))}
}

// NewRandomSource creates a value source seeded from the wall clock
func NewRandomSource() *SeededSource {
	return NewSeededSource(time.Now().UnixNano())
}

// IntRange returns an integer in [lo, hi). It returns lo when the range is
// empty.
func (s *SeededSource) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rng.Intn(hi-lo)
}

// ScriptedSource replays a fixed list of values, cycling when exhausted.
// Values outside the requested range are clamped into it.
type ScriptedSource struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewScriptedSource creates a source that returns values in order
func NewScriptedSource(values ...int) *ScriptedSource {
	return &ScriptedSource{values: values}
}

// IntRange returns the next scripted value clamped into [lo, hi)
func (s *ScriptedSource) IntRange(lo, hi int) int {
	if hi <= lo || len(s.values) == 0 {
		return lo
	}
	s.mu.Lock()
	v := s.values[s.next%len(s.values)]
	s.next++
	s.mu.Unlock()

	switch {
	case v < lo:
		return lo
	case v >= hi:
		return hi - 1
	}
	return v
}
