package models

import (
	"fmt"
	"strings"
)

// Level is the signal tier assigned to a bar by the composite scorer.
type Level string

const (
	LevelStrongBuy Level = "STRONG_BUY"
	LevelBuy       Level = "BUY"
	LevelWatch     Level = "WATCH"
	LevelHold      Level = "HOLD"
)

var levelRank = map[Level]int{
	LevelStrongBuy: 0,
	LevelBuy:       1,
	LevelWatch:     2,
	LevelHold:      3,
}

// Levels returns all tiers in rank order.
func Levels() []Level {
	return []Level{LevelStrongBuy, LevelBuy, LevelWatch, LevelHold}
}

// Rank orders tiers for sorting, strongest first. Unknown levels sort last.
func (l Level) Rank() int {
	if r, ok := levelRank[l]; ok {
		return r
	}
	return len(levelRank)
}

// Valid reports whether l is one of the known tiers.
func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

func (l Level) String() string {
	return string(l)
}

// ParseLevel converts a case-insensitive tier name into a Level.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return l, nil
}

// LevelForScore maps a composite score to its tier.
func LevelForScore(score float64) Level {
	switch {
	case score >= 8:
		return LevelStrongBuy
	case score >= 5:
		return LevelBuy
	case score >= 3:
		return LevelWatch
	default:
		return LevelHold
	}
}
