package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ScanLogger provides dedicated logging for scans and alerts.
type ScanLogger struct {
	*logrus.Entry
}

// NewScanLogger creates a new scan logger.
func NewScanLogger(baseLogger *logrus.Logger) *ScanLogger {
	return &ScanLogger{
		Entry: baseLogger.WithField("component", "scan"),
	}
}

// LogScanStarted logs the start of a scan.
func (sl *ScanLogger) LogScanStarted(timeframe string, symbols int) {
	sl.WithFields(logrus.Fields{
		"timeframe": timeframe,
		"symbols":   symbols,
	}).Info("Scan started")
}

// LogScanCompleted logs the result of a scan.
func (sl *ScanLogger) LogScanCompleted(timeframe string, scanned, signals, failed int, duration time.Duration) {
	sl.WithFields(logrus.Fields{
		"timeframe":   timeframe,
		"scanned":     scanned,
		"signals":     signals,
		"failed":      failed,
		"duration_ms": duration.Milliseconds(),
	}).Info("Scan completed")
}

// LogNewSignal logs a signal that is new or changed level.
func (sl *ScanLogger) LogNewSignal(symbol, level, previousLevel string, score, price float64) {
	sl.WithFields(logrus.Fields{
		"symbol":         symbol,
		"signal_level":   level,
		"previous_level": previousLevel,
		"score":          score,
		"price":          price,
	}).Info("New signal detected")
}

// LogNotification logs a notification attempt.
func (sl *ScanLogger) LogNotification(channel string, signals int, err error) {
	entry := sl.WithFields(logrus.Fields{
		"channel": channel,
		"signals": signals,
	})
	if err != nil {
		entry.WithError(err).Error("Notification failed")
		return
	}
	entry.Info("Notification sent")
}
