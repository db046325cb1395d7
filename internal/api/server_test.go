package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/service"
)

var scanTime = time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)

type fakeMonitor struct {
	last    *service.MonitorReport
	running bool
	history service.SignalHistory
}

func (f *fakeMonitor) Last() *service.MonitorReport   { return f.last }
func (f *fakeMonitor) Running() bool                  { return f.running }
func (f *fakeMonitor) History() service.SignalHistory { return f.history }

// MockTrigger mocks the scheduler
type MockTrigger struct {
	mock.Mock
}

func (m *MockTrigger) RunNow(ctx context.Context, tf models.Timeframe) (*service.MonitorReport, error) {
	args := m.Called(ctx, tf)
	report, _ := args.Get(0).(*service.MonitorReport)
	return report, args.Error(1)
}

func (m *MockTrigger) IsRunning() bool    { return true }
func (m *MockTrigger) NextRun() time.Time { return scanTime.Add(time.Hour) }

// MockPerformance mocks the performance analyzer
type MockPerformance struct {
	mock.Mock
}

func (m *MockPerformance) Analyze(ctx context.Context, symbols []string, tf models.Timeframe) (*service.PerformanceReport, error) {
	args := m.Called(ctx, symbols, tf)
	report, _ := args.Get(0).(*service.PerformanceReport)
	return report, args.Error(1)
}

type fakeScans struct {
	latest  []*models.SignalRecord
	history []*models.SignalRecord
	symbol  string
}

func (f *fakeScans) SaveScan(ctx context.Context, snapshot *models.ScanSnapshot, records []models.SignalRecord, prices []models.DailyPrice) error {
	return nil
}
func (f *fakeScans) GetRecent(ctx context.Context, limit int) ([]*models.ScanSnapshot, error) {
	return nil, nil
}
func (f *fakeScans) GetSignals(ctx context.Context, scanID uuid.UUID) ([]*models.SignalRecord, error) {
	return nil, nil
}
func (f *fakeScans) GetSymbolHistory(ctx context.Context, symbol string, limit int) ([]*models.SignalRecord, error) {
	f.symbol = symbol
	return f.history, nil
}
func (f *fakeScans) GetLatestSignals(ctx context.Context, minScore float64, limit int) ([]*models.SignalRecord, error) {
	return f.latest, nil
}

type fakePrices struct {
	days int
	top  []*models.TopPerformer
}

func (f *fakePrices) Upsert(ctx context.Context, prices []models.DailyPrice) error { return nil }
func (f *fakePrices) GetBySymbol(ctx context.Context, symbol string, days int) ([]*models.DailyPrice, error) {
	return nil, nil
}
func (f *fakePrices) GetTopPerformers(ctx context.Context, days, limit int) ([]*models.TopPerformer, error) {
	f.days = days
	return f.top, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func shortSwing(t *testing.T) models.Timeframe {
	tf, err := models.LookupTimeframe(models.TimeframeShortSwing)
	require.NoError(t, err)
	return tf
}

func newTestServer(t *testing.T, mon *fakeMonitor, trigger *MockTrigger, perf PerformanceSource) *Server {
	t.Helper()
	s, err := NewServer(Config{
		ScanCron:    "0 * * * *",
		Timeframe:   shortSwing(t),
		Universe:    func(context.Context) []string { return []string{"AAA", "BBB", "CCC"} },
		Monitor:     mon,
		Trigger:     trigger,
		Performance: perf,
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	return s
}

func doRequest(t *testing.T, h http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)
	_, err = NewServer(Config{Monitor: &fakeMonitor{}})
	assert.Error(t, err)
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, &fakeMonitor{}, new(MockTrigger), nil)
	rec, _ := doRequest(t, s.Handler(), http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Scheduler running")
	assert.Contains(t, rec.Body.String(), "Universe: 3 symbols")
	assert.Contains(t, rec.Body.String(), "not run yet")

	rec, _ = doRequest(t, s.Handler(), http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatus(t *testing.T) {
	mon := &fakeMonitor{
		last:    &service.MonitorReport{Scan: &service.ScanResult{StartedAt: scanTime}},
		history: service.SignalHistory{"AAA": {Level: models.LevelBuy}},
	}
	s := newTestServer(t, mon, new(MockTrigger), nil)

	rec, body := doRequest(t, s.Handler(), http.MethodGet, "/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, true, body["scheduler_running"])
	assert.Equal(t, "short_swing", body["timeframe"])
	assert.Equal(t, 3.0, body["symbol_count"])
	assert.Equal(t, 1.0, body["tracked_signals"])
	assert.Equal(t, "2024-05-01T14:00:00Z", body["last_scan"])
}

func TestSignalsSorted(t *testing.T) {
	mon := &fakeMonitor{history: service.SignalHistory{
		"AAA": {Level: models.LevelBuy, Score: 7.6, Price: 10, LastSeen: scanTime},
		"BBB": {Level: models.LevelStrongBuy, Score: 8.2, Price: 20, Date: scanTime},
		"CCC": {Level: models.LevelBuy, Score: 7.9, Price: 30, LastSeen: scanTime},
	}}
	s := newTestServer(t, mon, new(MockTrigger), nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/signals", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Signals []SignalView `json:"signals"`
		Count   int          `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 3, body.Count)
	assert.Equal(t, "BBB", body.Signals[0].Symbol)
	assert.True(t, scanTime.Equal(body.Signals[0].LastSeen))
	assert.Equal(t, "CCC", body.Signals[1].Symbol)
	assert.Equal(t, "AAA", body.Signals[2].Symbol)
}

func TestScanTrigger(t *testing.T) {
	tf := shortSwing(t)
	trigger := new(MockTrigger)
	report := &service.MonitorReport{
		Scan:   &service.ScanResult{Scanned: 3, Signals: []models.Signal{{Symbol: "AAA"}}},
		Alerts: []models.SignalAlert{{Signal: models.Signal{Symbol: "AAA", Level: models.LevelBuy}}},
	}
	trigger.On("RunNow", mock.Anything, tf).Return(report, nil).Twice()
	s := newTestServer(t, &fakeMonitor{}, trigger, nil)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec, body := doRequest(t, s.Handler(), method, "/scan")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "success", body["status"])
		assert.Equal(t, 3.0, body["scanned"])
		assert.Len(t, body["new_signals"], 1)
	}
	trigger.AssertExpectations(t)
}

func TestScanTriggerConflictAndError(t *testing.T) {
	trigger := new(MockTrigger)
	s := newTestServer(t, &fakeMonitor{running: true}, trigger, nil)
	rec, _ := doRequest(t, s.Handler(), http.MethodPost, "/scan")
	assert.Equal(t, http.StatusConflict, rec.Code)
	trigger.AssertNotCalled(t, "RunNow", mock.Anything, mock.Anything)

	trigger.On("RunNow", mock.Anything, mock.Anything).Return(nil, errors.New("empty symbol universe"))
	s = newTestServer(t, &fakeMonitor{}, trigger, nil)
	rec, body := doRequest(t, s.Handler(), http.MethodPost, "/scan")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "empty symbol universe", body["message"])
}

func TestPerformanceSamplesTrackedSymbols(t *testing.T) {
	tf := shortSwing(t)
	perf := new(MockPerformance)
	perf.On("Analyze", mock.Anything, []string{"AAA", "ZZZ"}, tf).
		Return(&service.PerformanceReport{Timeframe: tf.Name, AnalyzedSymbols: 2}, nil)

	mon := &fakeMonitor{history: service.SignalHistory{"ZZZ": {}, "AAA": {}}}
	s := newTestServer(t, mon, new(MockTrigger), perf)

	rec, body := doRequest(t, s.Handler(), http.MethodGet, "/performance")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["sample_size"])
	assert.Equal(t, 2.0, body["total_symbols"])
	perf.AssertExpectations(t)
}

func TestPerformanceFallsBackToUniverse(t *testing.T) {
	tf := shortSwing(t)
	perf := new(MockPerformance)
	perf.On("Analyze", mock.Anything, []string{"AAA", "BBB", "CCC"}, tf).Return(nil, context.DeadlineExceeded)
	s := newTestServer(t, &fakeMonitor{}, new(MockTrigger), perf)

	rec, body := doRequest(t, s.Handler(), http.MethodGet, "/performance")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["error"], "deadline")
}

func TestStoreRoutesWithoutDatabase(t *testing.T) {
	s := newTestServer(t, &fakeMonitor{}, new(MockTrigger), nil)
	for _, path := range []string{"/signals/latest", "/signals/history/AAPL", "/top", "/performance"} {
		rec, _ := doRequest(t, s.Handler(), http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestStoreRoutes(t *testing.T) {
	scans := &fakeScans{
		latest:  []*models.SignalRecord{{Symbol: "AAA", Level: models.LevelBuy, Score: 7.1}},
		history: []*models.SignalRecord{{Symbol: "BRK-B", Level: models.LevelWatch}},
	}
	prices := &fakePrices{top: []*models.TopPerformer{{Symbol: "AAA", ReturnPct: 12.5}}}
	s, err := NewServer(Config{
		Timeframe: shortSwing(t),
		Universe:  func(context.Context) []string { return nil },
		Monitor:   &fakeMonitor{},
		Trigger:   new(MockTrigger),
		Scans:     scans,
		Prices:    prices,
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	h := s.Handler()

	rec, body := doRequest(t, h, http.MethodGet, "/signals/latest?min_score=6.5&limit=5")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["count"])

	rec, _ = doRequest(t, h, http.MethodGet, "/signals/latest?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = doRequest(t, h, http.MethodGet, "/signals/history/brk.b")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BRK-B", body["symbol"])
	assert.Equal(t, "BRK-B", scans.symbol)

	rec, _ = doRequest(t, h, http.MethodGet, "/signals/history/$SPX")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = doRequest(t, h, http.MethodGet, "/top?period=month")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30.0, body["days"])
	assert.Equal(t, 30, prices.days)

	rec, _ = doRequest(t, h, http.MethodGet, "/top?period=year")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(t, &fakeMonitor{}, new(MockTrigger), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stock_screener_websocket_clients")
}

func TestWebsocketBroadcast(t *testing.T) {
	s := newTestServer(t, &fakeMonitor{}, new(MockTrigger), nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	defer s.Hub().Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.Hub().ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.Hub().BroadcastAlerts(nil)
	s.Hub().BroadcastAlerts([]models.SignalAlert{
		{Signal: models.Signal{Symbol: "AAA", Level: models.LevelStrongBuy, Score: 8.4}, PreviousLevel: models.LevelBuy},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg AlertMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "signals", msg.Type)
	require.Len(t, msg.Alerts, 1)
	assert.Equal(t, "AAA", msg.Alerts[0].Symbol)
	assert.Equal(t, models.LevelBuy, msg.Alerts[0].PreviousLevel)

	conn.Close()
	require.Eventually(t, func() bool { return s.Hub().ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
