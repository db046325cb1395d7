package strategy

import "github.com/yourusername/stock-screener/internal/models"

// LevelThreshold pairs an entry tier with its minimum score.
type LevelThreshold struct {
	Level    models.Level `json:"level"`
	MinScore float64      `json:"min_score"`
}

// LevelTable is an ordered, read-only level to min-score mapping.
type LevelTable struct {
	entries []LevelThreshold
}

// NewLevelTable copies entries into a new table.
func NewLevelTable(entries ...LevelThreshold) LevelTable {
	cp := make([]LevelThreshold, len(entries))
	copy(cp, entries)
	return LevelTable{entries: cp}
}

// CanonicalLevels is the comparison table: STRONG_BUY 8.0, BUY 5.0, WATCH 3.0.
func CanonicalLevels() LevelTable {
	return NewLevelTable(
		LevelThreshold{Level: models.LevelStrongBuy, MinScore: 8.0},
		LevelThreshold{Level: models.LevelBuy, MinScore: 5.0},
		LevelThreshold{Level: models.LevelWatch, MinScore: 3.0},
	)
}

// Entries returns a copy of the table rows in order.
func (t LevelTable) Entries() []LevelThreshold {
	cp := make([]LevelThreshold, len(t.entries))
	copy(cp, t.entries)
	return cp
}

// MinScore looks up the threshold for level.
func (t LevelTable) MinScore(level models.Level) (float64, bool) {
	for _, e := range t.entries {
		if e.Level == level {
			return e.MinScore, true
		}
	}
	return 0, false
}

// Len returns the number of rows.
func (t LevelTable) Len() int {
	return len(t.entries)
}
