package models

import "errors"

// Custom errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicateKey     = errors.New("duplicate key violation")
	ErrInvalidID        = errors.New("invalid ID format")
	ErrInvalidLevel     = errors.New("invalid signal level")
	ErrUnknownTimeframe = errors.New("unknown timeframe")
	ErrInvalidSymbol    = errors.New("invalid symbol")
	ErrEmptySeries      = errors.New("empty price series")
)
