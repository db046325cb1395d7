package backtest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// EquityPoint represents a point in the equity curve
type EquityPoint struct {
	Time     time.Time `json:"time"`
	Value    float64   `json:"value"`
	Drawdown float64   `json:"drawdown"`
}

// EquityCurve is the mark-to-market value of a run at each bar close
type EquityCurve []EquityPoint

// MaxDrawdown is the largest peak-to-trough decline as a fraction
func (e EquityCurve) MaxDrawdown() float64 {
	maxDD := 0.0
	for _, p := range e {
		if p.Drawdown > maxDD {
			maxDD = p.Drawdown
		}
	}
	return maxDD
}

// ToCSV exports equity curve to CSV string
func (e EquityCurve) ToCSV() string {
	var buf bytes.Buffer
	buf.WriteString("time,value,drawdown\n")
	for _, point := range e {
		buf.WriteString(point.Time.Format(time.RFC3339))
		buf.WriteString(",")
		buf.WriteString(formatFloat(point.Value))
		buf.WriteString(",")
		buf.WriteString(formatFloat(point.Drawdown))
		buf.WriteString("\n")
	}
	return buf.String()
}

// ToJSON exports equity curve to JSON string
func (e EquityCurve) ToJSON() string {
	data, _ := json.Marshal(e)
	return string(data)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
