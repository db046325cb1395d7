package strategy

import (
	"fmt"

	"github.com/yourusername/stock-screener/internal/models"
)

// LevelGrid lists the candidate values for one entry tier.
type LevelGrid struct {
	Level       models.Level `json:"level" mapstructure:"level"`
	MinScores   []float64    `json:"min_scores" mapstructure:"min_scores"`
	Holds       []int        `json:"holds" mapstructure:"holds"`
	StopLosses  []float64    `json:"stop_losses" mapstructure:"stop_losses"`
	TakeProfits []float64    `json:"take_profits" mapstructure:"take_profits"`
}

// Size is the Cartesian product size of the tier.
func (lg LevelGrid) Size() int {
	return len(lg.MinScores) * len(lg.Holds) * len(lg.StopLosses) * len(lg.TakeProfits)
}

func (lg LevelGrid) validate() error {
	if !lg.Level.Valid() {
		return fmt.Errorf("grid level: %w: %q", models.ErrInvalidLevel, lg.Level)
	}
	if lg.Size() == 0 {
		return fmt.Errorf("grid for %s has an empty dimension", lg.Level)
	}
	for _, v := range lg.MinScores {
		if err := validateMinScore(v); err != nil {
			return fmt.Errorf("grid for %s: %w", lg.Level, err)
		}
	}
	for _, v := range lg.Holds {
		if err := validateMaxHold(v); err != nil {
			return fmt.Errorf("grid for %s: %w", lg.Level, err)
		}
	}
	for _, v := range lg.StopLosses {
		if err := validateStopLoss(v); err != nil {
			return fmt.Errorf("grid for %s: %w", lg.Level, err)
		}
	}
	for _, v := range lg.TakeProfits {
		if err := validateTakeProfit(v); err != nil {
			return fmt.Errorf("grid for %s: %w", lg.Level, err)
		}
	}
	return nil
}

// at decodes a mixed-radix index, take profit varying fastest.
func (lg LevelGrid) at(i int) Config {
	tp := lg.TakeProfits[i%len(lg.TakeProfits)]
	i /= len(lg.TakeProfits)
	sl := lg.StopLosses[i%len(lg.StopLosses)]
	i /= len(lg.StopLosses)
	hold := lg.Holds[i%len(lg.Holds)]
	i /= len(lg.Holds)
	score := lg.MinScores[i]
	return Config{EntryLevel: lg.Level, MinScore: score, MaxHold: hold, StopLoss: sl, TakeProfit: tp}
}

// Grid is a lazy Cartesian enumeration over one or more tiers. It is not
// safe for concurrent use; give each consumer its own Grid.
type Grid struct {
	levels []LevelGrid
	size   int
	pos    int
}

// NewGrid validates every candidate value up front.
func NewGrid(levels ...LevelGrid) (*Grid, error) {
	if len(levels) == 0 {
		return nil, fmt.Errorf("grid requires at least one level")
	}
	g := &Grid{levels: make([]LevelGrid, len(levels))}
	for i, lg := range levels {
		if err := lg.validate(); err != nil {
			return nil, err
		}
		g.levels[i] = lg
		g.size += lg.Size()
	}
	return g, nil
}

// DefaultLevelGrids is the optimizer's reference search space (425 combinations).
func DefaultLevelGrids() []LevelGrid {
	takeProfits := []float64{0.25, 0.30, 0.35, 0.40, 0.50}
	return []LevelGrid{
		{
			Level:       models.LevelStrongBuy,
			MinScores:   []float64{8.5, 9.0, 9.5},
			Holds:       []int{5, 7, 10, 14, 20},
			StopLosses:  []float64{0.03, 0.05, 0.07},
			TakeProfits: takeProfits,
		},
		{
			Level:       models.LevelBuy,
			MinScores:   []float64{6.5, 7.0, 7.5, 8.0},
			Holds:       []int{7, 10, 14, 20, 30},
			StopLosses:  []float64{0.05, 0.07},
			TakeProfits: append([]float64(nil), takeProfits...),
		},
	}
}

// DefaultGrid builds a Grid over DefaultLevelGrids.
func DefaultGrid() *Grid {
	g, err := NewGrid(DefaultLevelGrids()...)
	if err != nil {
		panic(err)
	}
	return g
}

// At returns the i-th configuration without moving the cursor.
func (g *Grid) At(i int) (Config, bool) {
	if i < 0 || i >= g.size {
		return Config{}, false
	}
	for _, lg := range g.levels {
		n := lg.Size()
		if i < n {
			return lg.at(i), true
		}
		i -= n
	}
	return Config{}, false
}

// Next returns the next configuration.
func (g *Grid) Next() (Config, bool) {
	cfg, ok := g.At(g.pos)
	if ok {
		g.pos++
	}
	return cfg, ok
}

// Reset rewinds the cursor.
func (g *Grid) Reset() {
	g.pos = 0
}

// Size returns the total number of combinations.
func (g *Grid) Size() int {
	return g.size
}
