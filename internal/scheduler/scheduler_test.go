package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/service"
)

// MockScanRunner mocks the monitor
type MockScanRunner struct {
	mock.Mock
}

func (m *MockScanRunner) ScanOnce(ctx context.Context, symbols []string, tf models.Timeframe) (*service.MonitorReport, error) {
	args := m.Called(ctx, symbols, tf)
	report, _ := args.Get(0).(*service.MonitorReport)
	return report, args.Error(1)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func fixedUniverse(symbols ...string) UniverseFunc {
	return func(context.Context) []string { return symbols }
}

func shortSwing(t *testing.T) models.Timeframe {
	tf, err := models.LookupTimeframe(models.TimeframeShortSwing)
	require.NoError(t, err)
	return tf
}

func TestNewSchedulerValidation(t *testing.T) {
	_, err := NewScheduler(nil, fixedUniverse("AAA"), "", nil)
	assert.Error(t, err)

	_, err = NewScheduler(new(MockScanRunner), nil, "", nil)
	assert.Error(t, err)

	_, err = NewScheduler(new(MockScanRunner), fixedUniverse("AAA"), "Mars/Olympus", nil)
	assert.Error(t, err)

	s, err := NewScheduler(new(MockScanRunner), fixedUniverse("AAA"), "UTC", quietLogger())
	require.NoError(t, err)
	assert.False(t, s.IsRunning())
}

func TestScheduleScanRejectsBadExpression(t *testing.T) {
	s, err := NewScheduler(new(MockScanRunner), fixedUniverse("AAA"), "", quietLogger())
	require.NoError(t, err)

	_, err = s.ScheduleScan("every tuesday", shortSwing(t))
	assert.Error(t, err)
	assert.Empty(t, s.Entries())
}

func TestStartRequiresJobs(t *testing.T) {
	s, err := NewScheduler(new(MockScanRunner), fixedUniverse("AAA"), "", quietLogger())
	require.NoError(t, err)
	assert.Error(t, s.Start())
}

func TestSchedulerLifecycle(t *testing.T) {
	s, err := NewScheduler(new(MockScanRunner), fixedUniverse("AAA"), "", quietLogger())
	require.NoError(t, err)

	id, err := s.ScheduleScan("30 16 * * 1-5", shortSwing(t))
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 1)
	assert.True(t, s.NextRun().IsZero())

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.False(t, s.NextRun().IsZero())
	assert.Error(t, s.Start())

	_, err = s.ScheduleScan("@hourly", shortSwing(t))
	assert.Error(t, err)
	assert.Error(t, s.RemoveJob(id))

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop())

	require.NoError(t, s.RemoveJob(id))
	assert.Empty(t, s.Entries())
}

func TestRunNow(t *testing.T) {
	tf := shortSwing(t)
	runner := new(MockScanRunner)
	report := &service.MonitorReport{
		Scan:   &service.ScanResult{Signals: []models.Signal{{Symbol: "AAA", Level: models.LevelBuy}}},
		Alerts: []models.SignalAlert{{Signal: models.Signal{Symbol: "AAA", Level: models.LevelBuy}}},
	}
	runner.On("ScanOnce", mock.Anything, []string{"AAA", "BBB"}, tf).Return(report, nil).Once()

	s, err := NewScheduler(runner, fixedUniverse("AAA", "BBB"), "", quietLogger())
	require.NoError(t, err)

	got, err := s.RunNow(context.Background(), tf)
	require.NoError(t, err)
	assert.Same(t, report, got)
	runner.AssertExpectations(t)
}

func TestRunNowPropagatesFailure(t *testing.T) {
	tf := shortSwing(t)
	runner := new(MockScanRunner)
	runner.On("ScanOnce", mock.Anything, mock.Anything, tf).Return(nil, errors.New("scan already in progress"))

	s, err := NewScheduler(runner, fixedUniverse("AAA"), "", quietLogger())
	require.NoError(t, err)

	_, err = s.RunNow(context.Background(), tf)
	assert.EqualError(t, err, "scan already in progress")
}

func TestRunNowEmptyUniverse(t *testing.T) {
	runner := new(MockScanRunner)
	s, err := NewScheduler(runner, fixedUniverse(), "", quietLogger())
	require.NoError(t, err)

	_, err = s.RunNow(context.Background(), shortSwing(t))
	assert.Error(t, err)
	runner.AssertNotCalled(t, "ScanOnce", mock.Anything, mock.Anything, mock.Anything)
}

func TestKVFields(t *testing.T) {
	fields := kvFields([]interface{}{"entry", 3, "next", "soon", "dangling"})
	assert.Equal(t, logrus.Fields{"entry": 3, "next": "soon"}, fields)
}
