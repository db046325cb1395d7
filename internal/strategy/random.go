package strategy

import (
	"fmt"
	"math/rand"
)

// RandomSampler visits a random subset of a grid without repetition. The
// same seed always produces the same sequence.
type RandomSampler struct {
	grid  *Grid
	n     int
	seed  int64
	order []int
	pos   int
}

// NewRandomSampler draws n distinct combinations from grid. n is capped at the
// grid size.
func NewRandomSampler(grid *Grid, n int, seed int64) (*RandomSampler, error) {
	if grid == nil {
		return nil, fmt.Errorf("grid is required")
	}
	if n <= 0 {
		return nil, fmt.Errorf("sample size must be positive, got %d", n)
	}
	if n > grid.Size() {
		n = grid.Size()
	}
	s := &RandomSampler{grid: grid, n: n, seed: seed}
	s.Reset()
	return s, nil
}

// Next returns the next sampled configuration.
func (s *RandomSampler) Next() (Config, bool) {
	if s.pos >= len(s.order) {
		return Config{}, false
	}
	cfg, ok := s.grid.At(s.order[s.pos])
	s.pos++
	return cfg, ok
}

// Reset replays the sample from the beginning.
func (s *RandomSampler) Reset() {
	rng := rand.New(rand.NewSource(s.seed))
	s.order = rng.Perm(s.grid.Size())[:s.n]
	s.pos = 0
}

// Size returns the sample size.
func (s *RandomSampler) Size() int {
	return s.n
}
