// Package scheduler runs the screening pass on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/service"
)

// ScanRunner runs one monitor pass.
type ScanRunner interface {
	ScanOnce(ctx context.Context, symbols []string, tf models.Timeframe) (*service.MonitorReport, error)
}

// UniverseFunc resolves the symbols to scan at job time.
type UniverseFunc func(ctx context.Context) []string

// Scheduler manages scheduled scan jobs
type Scheduler struct {
	cron            *cron.Cron
	runner          ScanRunner
	universe        UniverseFunc
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	jobTimeout      time.Duration
	gracefulTimeout time.Duration
}

// NewScheduler creates a new scheduler. An empty timezone means UTC.
func NewScheduler(runner ScanRunner, universe UniverseFunc, timezone string, logger *logrus.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("scan runner is required")
	}
	if universe == nil {
		return nil, fmt.Errorf("symbol universe is required")
	}
	loc := time.UTC
	if timezone != "" {
		l, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
		}
		loc = l
	}
	if logger == nil {
		logger = logrus.New()
	}
	entry := logger.WithField("component", "scheduler")

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{entry}), cron.SkipIfStillRunning(cronLogger{entry})),
		),
		runner:          runner,
		universe:        universe,
		logger:          entry,
		jobIDs:          make([]cron.EntryID, 0),
		jobTimeout:      30 * time.Minute,
		gracefulTimeout: 30 * time.Second,
	}, nil
}

// ScheduleScan schedules a monitor pass over the universe for tf.
func (s *Scheduler) ScheduleScan(cronExpression string, tf models.Timeframe) (cron.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return 0, fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		s.RunNow(ctx, tf)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"cron":      cronExpression,
		"timeframe": tf.Name,
	}).Info("Scheduled scan job")

	return entryID, nil
}

// RunNow runs one pass immediately and logs the outcome.
func (s *Scheduler) RunNow(ctx context.Context, tf models.Timeframe) (*service.MonitorReport, error) {
	symbols := s.universe(ctx)
	if len(symbols) == 0 {
		s.logger.Warn("Scheduled scan skipped: empty universe")
		return nil, fmt.Errorf("empty symbol universe")
	}

	report, err := s.runner.ScanOnce(ctx, symbols, tf)
	if err != nil {
		s.logger.WithError(err).WithField("timeframe", tf.Name).Error("Scheduled scan failed")
		return report, err
	}
	s.logger.WithFields(logrus.Fields{
		"timeframe": tf.Name,
		"signals":   len(report.Scan.Signals),
		"new":       len(report.Alerts),
	}).Info("Scheduled scan completed")
	return report, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops the scheduler, waiting up to the graceful timeout for a
// running job.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler stop timed out after %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the time of the next scheduled job run
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(jobID cron.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot remove job while scheduler is running")
	}

	s.cron.Remove(jobID)
	for i, id := range s.jobIDs {
		if id == jobID {
			s.jobIDs = append(s.jobIDs[:i], s.jobIDs[i+1:]...)
			break
		}
	}
	s.logger.WithField("job_id", jobID).Info("Removed job")

	return nil
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(kvFields(keysAndValues)).Error(msg)
}

func kvFields(keysAndValues []interface{}) logrus.Fields {
	fields := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
