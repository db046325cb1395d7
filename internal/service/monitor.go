package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/stock-screener/internal/logger"
	"github.com/yourusername/stock-screener/internal/metrics"
	"github.com/yourusername/stock-screener/internal/models"
)

// HistoryEntry is the last signal seen for a symbol.
type HistoryEntry struct {
	Level    models.Level `json:"level"`
	Score    float64      `json:"score"`
	Price    float64      `json:"price"`
	Date     time.Time    `json:"date"`
	LastSeen time.Time    `json:"last_seen"`
}

// SignalHistory maps symbols to their last seen signal.
type SignalHistory map[string]HistoryEntry

// HistoryFromSignals builds the history recorded after a scan.
func HistoryFromSignals(signals []models.Signal, seen time.Time) SignalHistory {
	h := make(SignalHistory, len(signals))
	for _, s := range signals {
		h[s.Symbol] = HistoryEntry{
			Level:    s.Level,
			Score:    s.Score,
			Price:    s.Price,
			Date:     s.Timestamp,
			LastSeen: seen,
		}
	}
	return h
}

// HistoryStore persists signal history between runs.
type HistoryStore interface {
	Load(ctx context.Context) (SignalHistory, error)
	Save(ctx context.Context, history SignalHistory) error
}

// FileHistoryStore keeps history as a JSON document on disk.
type FileHistoryStore struct {
	path string
}

// NewFileHistoryStore creates a store at path.
func NewFileHistoryStore(path string) *FileHistoryStore {
	return &FileHistoryStore{path: path}
}

// Load reads the history. A missing file yields an empty history.
func (f *FileHistoryStore) Load(ctx context.Context) (SignalHistory, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return SignalHistory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	h := SignalHistory{}
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", f.path, err)
	}
	return h, nil
}

// Save replaces the history file atomically.
func (f *FileHistoryStore) Save(ctx context.Context, history SignalHistory) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return os.Rename(tmp, f.path)
}

// DetectNewSignals returns signals whose symbol was not in previous or whose
// level differs from the previous one, strongest first.
func DetectNewSignals(previous SignalHistory, current []models.Signal) []models.SignalAlert {
	alerts := make([]models.SignalAlert, 0)
	for _, s := range current {
		prev, seen := previous[s.Symbol]
		switch {
		case !seen:
			alerts = append(alerts, models.SignalAlert{Signal: s})
		case prev.Level != s.Level:
			alerts = append(alerts, models.SignalAlert{Signal: s, PreviousLevel: prev.Level})
		}
	}
	sortAlerts(alerts)
	return alerts
}

func sortAlerts(alerts []models.SignalAlert) {
	signals := make([]models.Signal, len(alerts))
	prev := make(map[string]models.Level, len(alerts))
	for i, a := range alerts {
		signals[i] = a.Signal
		prev[a.Symbol] = a.PreviousLevel
	}
	SortSignals(signals)
	for i, s := range signals {
		alerts[i] = models.SignalAlert{Signal: s, PreviousLevel: prev[s.Symbol]}
	}
}

// Notifier delivers alerts to an outside channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alerts []models.SignalAlert) error
}

// Broadcaster pushes alerts to connected clients.
type Broadcaster interface {
	BroadcastAlerts(alerts []models.SignalAlert)
}

// ScanStore persists a finished scan.
type ScanStore interface {
	SaveScan(ctx context.Context, snapshot *models.ScanSnapshot, records []models.SignalRecord, prices []models.DailyPrice) error
}

// MonitorReport is the outcome of one monitoring pass.
type MonitorReport struct {
	Scan   *ScanResult          `json:"scan"`
	Alerts []models.SignalAlert `json:"alerts"`
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithNotifiers adds notification channels.
func WithNotifiers(n ...Notifier) MonitorOption {
	return func(m *Monitor) {
		m.notifiers = append(m.notifiers, n...)
	}
}

// WithBroadcaster sets the live push target.
func WithBroadcaster(b Broadcaster) MonitorOption {
	return func(m *Monitor) {
		m.broadcaster = b
	}
}

// WithScanStore persists each scan with signals.
func WithScanStore(s ScanStore) MonitorOption {
	return func(m *Monitor) {
		m.store = s
	}
}

// Monitor repeats scans and reports signals that are new since the last one.
type Monitor struct {
	scanner     *Scanner
	history     HistoryStore
	notifiers   []Notifier
	broadcaster Broadcaster
	store       ScanStore
	log         *logger.ScanLogger

	mu       sync.RWMutex
	previous SignalHistory
	last     *MonitorReport
	running  bool
}

// NewMonitor creates a monitor and loads any stored history. A nil history
// store keeps history in memory only.
func NewMonitor(ctx context.Context, scanner *Scanner, history HistoryStore, log *logrus.Logger, opts ...MonitorOption) (*Monitor, error) {
	if scanner == nil {
		return nil, fmt.Errorf("scanner is required")
	}
	if log == nil {
		log = logrus.New()
	}
	m := &Monitor{
		scanner:  scanner,
		history:  history,
		log:      logger.NewScanLogger(log),
		previous: SignalHistory{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if history != nil {
		prev, err := history.Load(ctx)
		if err != nil {
			m.log.WithError(err).Warn("Could not load signal history, starting empty")
		} else {
			m.previous = prev
		}
	}
	return m, nil
}

// ScanOnce runs a scan, reports new signals and replaces the history with
// the current signals. Notification and persistence failures are logged and
// do not fail the pass.
func (m *Monitor) ScanOnce(ctx context.Context, symbols []string, tf models.Timeframe) (*MonitorReport, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil, fmt.Errorf("scan already in progress")
	}
	m.running = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	scan, err := m.scanner.Scan(ctx, symbols, tf)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	m.mu.RLock()
	alerts := DetectNewSignals(m.previous, scan.Signals)
	m.mu.RUnlock()

	for _, a := range alerts {
		m.log.LogNewSignal(a.Symbol, a.Level.String(), a.PreviousLevel.String(), a.Score, a.Price)
	}
	metrics.RecordNewSignals(len(alerts))

	m.persist(ctx, scan)
	if len(alerts) > 0 {
		m.deliver(ctx, alerts)
	}

	current := HistoryFromSignals(scan.Signals, time.Now().UTC())
	if m.history != nil {
		if err := m.history.Save(ctx, current); err != nil {
			m.log.WithError(err).Warn("Could not save signal history")
		}
	}

	report := &MonitorReport{Scan: scan, Alerts: alerts}
	m.mu.Lock()
	m.previous = current
	m.last = report
	m.mu.Unlock()
	return report, nil
}

func (m *Monitor) persist(ctx context.Context, scan *ScanResult) {
	if m.store == nil || len(scan.Signals) == 0 {
		return
	}
	if err := m.store.SaveScan(ctx, scan.Snapshot(), scan.Records(), scan.DailyPrices()); err != nil {
		m.log.WithError(err).WithField("scan_id", scan.ID).Error("Failed to save scan")
	}
}

func (m *Monitor) deliver(ctx context.Context, alerts []models.SignalAlert) {
	if m.broadcaster != nil {
		m.broadcaster.BroadcastAlerts(alerts)
	}
	for _, n := range m.notifiers {
		err := n.Notify(ctx, alerts)
		metrics.RecordNotification(n.Name(), err)
		m.log.LogNotification(n.Name(), len(alerts), err)
	}
}

// Last returns the most recent report, or nil before the first pass.
func (m *Monitor) Last() *MonitorReport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Running reports whether a pass is in progress.
func (m *Monitor) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// History returns a copy of the signals seen in the last pass.
func (m *Monitor) History() SignalHistory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := make(SignalHistory, len(m.previous))
	for k, v := range m.previous {
		cp[k] = v
	}
	return cp
}
