// Package notify delivers new-signal alerts to chat services.
package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yourusername/stock-screener/internal/models"
)

// DefaultMaxSignals is how many alerts a message lists before summarizing.
const DefaultMaxSignals = 10

var levelMarker = map[models.Level]string{
	models.LevelStrongBuy: "🟢",
	models.LevelBuy:       "🔵",
	models.LevelWatch:     "🟡",
}

var levelName = map[models.Level]string{
	models.LevelStrongBuy: "Strong buy",
	models.LevelBuy:       "Buy",
	models.LevelWatch:     "Watch",
	models.LevelHold:      "Hold",
}

// FilterByLevel keeps alerts at minLevel or stronger. An empty minLevel keeps all.
func FilterByLevel(alerts []models.SignalAlert, minLevel models.Level) []models.SignalAlert {
	if minLevel == "" {
		return alerts
	}
	out := make([]models.SignalAlert, 0, len(alerts))
	for _, a := range alerts {
		if a.Level.Rank() <= minLevel.Rank() {
			out = append(out, a)
		}
	}
	return out
}

// FormatAlerts renders alerts as an HTML-safe chat message. At most
// maxSignals alerts are listed; the rest are counted on a trailing line.
func FormatAlerts(alerts []models.SignalAlert, maxSignals int, now time.Time) string {
	if len(alerts) == 0 {
		return "No new buy signals."
	}
	if maxSignals <= 0 {
		maxSignals = DefaultMaxSignals
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔔 New buy signals (%d)\n\n", len(alerts))

	shown := alerts
	if len(shown) > maxSignals {
		shown = shown[:maxSignals]
	}
	for _, a := range shown {
		marker, ok := levelMarker[a.Level]
		if !ok {
			marker = "⚪"
		}
		name, ok := levelName[a.Level]
		if !ok {
			name = string(a.Level)
		}
		fmt.Fprintf(&b, "%s <b>%s</b>: %s %s\n", marker, html.EscapeString(a.Symbol), name, html.EscapeString(a.Change()))
		fmt.Fprintf(&b, "   Score: %.1f/10\n", a.Score)
		fmt.Fprintf(&b, "   Price: $%.2f\n\n", a.Price)
	}
	if extra := len(alerts) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "... and %d more\n", extra)
	}
	fmt.Fprintf(&b, "\n⏰ %s", now.Format("2006-01-02 15:04:05"))
	return b.String()
}
