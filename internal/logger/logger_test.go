package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		return nil
	}
	return logEntry
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		environment string
		wantLevel   logrus.Level
		wantJSON    bool
	}{
		{"debug development", "debug", "development", logrus.DebugLevel, false},
		{"warn production", "warn", "production", logrus.WarnLevel, true},
		{"invalid level", "loud", "staging", logrus.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := NewLogger(tt.level, tt.environment)
			assert.Equal(t, tt.wantLevel, log.GetLevel())
			_, isJSON := log.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}

func TestBacktestLoggerResult(t *testing.T) {
	log, buf := setupTestLogger()
	NewBacktestLogger(log).LogBacktestResult("AAPL", "BUY_score6.0_hold5_sl0.05_tp0.1", 4, 50, 12.5, 3.2)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "backtest", logEntry["component"])
	assert.Equal(t, "AAPL", logEntry["symbol"])
	assert.Equal(t, float64(4), logEntry["trades"])
}

func TestBacktestLoggerSweepCompleted(t *testing.T) {
	tests := []struct {
		name    string
		partial bool
		level   string
	}{
		{"complete", false, "info"},
		{"partial", true, "warning"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := setupTestLogger()
			NewBacktestLogger(log).LogSweepCompleted(425, 12, 50, tt.partial, 2*time.Second)

			logEntry := parseLogOutput(buf)
			require.NotNil(t, logEntry)
			assert.Equal(t, tt.level, logEntry["level"])
			assert.Equal(t, float64(425), logEntry["total_tested"])
			assert.Equal(t, tt.partial, logEntry["partial"])
		})
	}
}

func TestBacktestLoggerSymbolSkipped(t *testing.T) {
	log, buf := setupTestLogger()
	NewBacktestLogger(log).LogSymbolSkipped("ZZZZ", "fetch_failed", errors.New("not found"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "not found", logEntry["error"])
	assert.Equal(t, "warning", logEntry["level"])
}

func TestScanLoggerNewSignal(t *testing.T) {
	log, buf := setupTestLogger()
	NewScanLogger(log).LogNewSignal("NVDA", "STRONG_BUY", "BUY", 8.4, 120.5)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "scan", logEntry["component"])
	assert.Equal(t, "STRONG_BUY", logEntry["signal_level"])
	assert.Equal(t, "info", logEntry["level"])
	assert.Equal(t, "BUY", logEntry["previous_level"])
}

func TestScanLoggerNotificationFailure(t *testing.T) {
	log, buf := setupTestLogger()
	NewScanLogger(log).LogNotification("telegram", 3, errors.New("timeout"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "error", logEntry["level"])
	assert.Equal(t, "telegram", logEntry["channel"])
}
