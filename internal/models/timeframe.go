package models

import (
	"fmt"
	"sort"
	"time"
)

// Timeframe describes how bars are requested for one trading style.
type Timeframe struct {
	Name     string `json:"name"`
	Interval string `json:"interval"`
	Period   string `json:"period"`
	Lookback int    `json:"lookback"`
	Label    string `json:"label"`
}

const (
	TimeframeDayTrading = "day_trading"
	TimeframeShortSwing = "short_swing"
	TimeframeLongSwing  = "long_swing"
)

var timeframes = map[string]Timeframe{
	TimeframeDayTrading: {Name: TimeframeDayTrading, Interval: "5m", Period: "5d", Lookback: 5, Label: "Day trading"},
	TimeframeShortSwing: {Name: TimeframeShortSwing, Interval: "1d", Period: "3mo", Lookback: 20, Label: "Short swing"},
	TimeframeLongSwing:  {Name: TimeframeLongSwing, Interval: "1d", Period: "1y", Lookback: 60, Label: "Long swing"},
}

// LookupTimeframe returns the named timeframe.
func LookupTimeframe(name string) (Timeframe, error) {
	tf, ok := timeframes[name]
	if !ok {
		return Timeframe{}, fmt.Errorf("%w: %q", ErrUnknownTimeframe, name)
	}
	return tf, nil
}

// TimeframeNames lists the known timeframe names in sorted order.
func TimeframeNames() []string {
	names := make([]string, 0, len(timeframes))
	for name := range timeframes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Intraday reports whether the timeframe uses sub-daily bars.
func (t Timeframe) Intraday() bool {
	d, err := ParseInterval(t.Interval)
	return err == nil && d < 24*time.Hour
}

// ParseInterval converts an interval such as "5m", "1h" or "1d" into a duration.
func ParseInterval(interval string) (time.Duration, error) {
	var n int
	var unit string
	if _, err := fmt.Sscanf(interval, "%d%s", &n, &unit); err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	switch unit {
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "wk":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case "mo":
		return time.Duration(n) * 30 * 24 * time.Hour, nil
	case "y":
		return time.Duration(n) * 365 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid interval unit %q", interval)
	}
}

// AllTimeframes returns every timeframe, shortest bars first.
func AllTimeframes() []Timeframe {
	return []Timeframe{
		timeframes[TimeframeDayTrading],
		timeframes[TimeframeShortSwing],
		timeframes[TimeframeLongSwing],
	}
}
