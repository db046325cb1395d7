// Package api serves the dashboard: monitor status, current signals,
// signal performance, on-demand scans, metrics and a websocket feed of new
// signals.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/stock-screener/internal/datasource"
	"github.com/yourusername/stock-screener/internal/metrics"
	"github.com/yourusername/stock-screener/internal/models"
	"github.com/yourusername/stock-screener/internal/repository"
	"github.com/yourusername/stock-screener/internal/service"
)

// MaxPerformanceSample caps how many symbols /performance backtests.
const MaxPerformanceSample = 100

// SignalSource exposes the monitor's state.
type SignalSource interface {
	Last() *service.MonitorReport
	Running() bool
	History() service.SignalHistory
}

// ScanTrigger runs an on-demand pass and reports the schedule.
type ScanTrigger interface {
	RunNow(ctx context.Context, tf models.Timeframe) (*service.MonitorReport, error)
	IsRunning() bool
	NextRun() time.Time
}

// PerformanceSource backtests signal tiers over a symbol set.
type PerformanceSource interface {
	Analyze(ctx context.Context, symbols []string, tf models.Timeframe) (*service.PerformanceReport, error)
}

// Config wires the dashboard. Scans and Prices are optional; without them
// the stored-history routes answer 503.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ScanCron     string
	Timeframe    models.Timeframe
	Universe     func(ctx context.Context) []string

	Monitor     SignalSource
	Trigger     ScanTrigger
	Performance PerformanceSource
	Scans       repository.ScanRepository
	Prices      repository.PriceRepository
	Hub         *Hub
	Logger      *logrus.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	cfg    Config
	logger *logrus.Entry
	server *http.Server
	now    func() time.Time
}

// NewServer validates the wiring and builds the server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Monitor == nil {
		return nil, fmt.Errorf("monitor is required")
	}
	if cfg.Trigger == nil {
		return nil, fmt.Errorf("scan trigger is required")
	}
	if cfg.Universe == nil {
		return nil, fmt.Errorf("symbol universe is required")
	}
	if cfg.Timeframe.Name == "" {
		return nil, fmt.Errorf("timeframe is required")
	}
	if cfg.Hub == nil {
		cfg.Hub = NewHub(cfg.Logger)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Server{
		cfg:    cfg,
		logger: logger.WithField("component", "api"),
		now:    time.Now,
	}, nil
}

// Hub returns the websocket hub, for use as the monitor's broadcaster.
func (s *Server) Hub() *Hub {
	return s.cfg.Hub
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /signals", s.handleSignals)
	mux.HandleFunc("GET /signals/latest", s.handleLatestSignals)
	mux.HandleFunc("GET /signals/history/{symbol}", s.handleSymbolHistory)
	mux.HandleFunc("GET /top", s.handleTopPerformers)
	mux.HandleFunc("GET /performance", s.handlePerformance)
	mux.HandleFunc("GET /scan", s.handleScan)
	mux.HandleFunc("POST /scan", s.handleScan)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /ws", s.cfg.Hub.ServeWS)
	return s.logRequests(mux)
}

// Start listens in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.WithField("addr", s.cfg.Addr).Info("Dashboard server starting")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Dashboard server error")
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()
	return nil
}

// Shutdown closes websocket clients and drains HTTP requests.
func (s *Server) Shutdown() error {
	s.cfg.Hub.Close()
	if s.server == nil {
		return nil
	}
	s.logger.Info("Dashboard server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("Request served")
	})
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Stock signal monitor</title>
<style>
body { font-family: Arial, sans-serif; margin: 40px; background: #f5f5f5; }
.container { max-width: 800px; margin: 0 auto; background: white; padding: 30px; border-radius: 10px; }
.status { padding: 15px; margin: 20px 0; border-radius: 5px; background: #d4edda; color: #155724; }
.info { padding: 15px; background: #d1ecf1; color: #0c5460; border-radius: 5px; }
</style>
</head>
<body>
<div class="container">
<h1>Stock signal monitor</h1>
<div class="status">{{if .SchedulerRunning}}Scheduler running{{else}}Scheduler stopped{{end}}</div>
<div class="info">
<h3>Server</h3>
<p>Schedule: {{.ScanCron}}</p>
<p>Timeframe: {{.Timeframe}}</p>
<p>Universe: {{.SymbolCount}} symbols</p>
<p>Last scan: {{.LastScan}}</p>
<p>Next scan: {{.NextScan}}</p>
</div>
<h3>Endpoints</h3>
<ul>
<li><a href="/status">/status</a> server status</li>
<li><a href="/signals">/signals</a> current signals</li>
<li><a href="/performance">/performance</a> signal performance</li>
<li><a href="/scan">/scan</a> scan now</li>
<li><a href="/metrics">/metrics</a> Prometheus metrics</li>
</ul>
</div>
</body>
</html>
`))

type indexData struct {
	SchedulerRunning bool
	ScanCron         string
	Timeframe        string
	SymbolCount      int
	LastScan         string
	NextScan         string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		SchedulerRunning: s.cfg.Trigger.IsRunning(),
		ScanCron:         s.cfg.ScanCron,
		Timeframe:        s.cfg.Timeframe.Name,
		SymbolCount:      len(s.cfg.Universe(r.Context())),
		LastScan:         "not run yet",
		NextScan:         "not scheduled",
	}
	if last := s.cfg.Monitor.Last(); last != nil && last.Scan != nil {
		data.LastScan = fmt.Sprintf("%s, %d signals tracked", last.Scan.StartedAt.Format(time.RFC3339), len(last.Scan.Signals))
	}
	if next := s.cfg.Trigger.NextRun(); !next.IsZero() {
		data.NextScan = next.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.WithError(err).Error("Failed to render index")
	}
}

// StatusResponse is the /status body.
type StatusResponse struct {
	Status           string    `json:"status"`
	SchedulerRunning bool      `json:"scheduler_running"`
	ScanInProgress   bool      `json:"scan_in_progress"`
	ScanCron         string    `json:"scan_cron,omitempty"`
	Timeframe        string    `json:"timeframe"`
	SymbolCount      int       `json:"symbol_count"`
	TrackedSignals   int       `json:"tracked_signals"`
	WebsocketClients int       `json:"websocket_clients"`
	LastScan         time.Time `json:"last_scan,omitempty"`
	NextScan         time.Time `json:"next_scan,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:           "running",
		SchedulerRunning: s.cfg.Trigger.IsRunning(),
		ScanInProgress:   s.cfg.Monitor.Running(),
		ScanCron:         s.cfg.ScanCron,
		Timeframe:        s.cfg.Timeframe.Name,
		SymbolCount:      len(s.cfg.Universe(r.Context())),
		TrackedSignals:   len(s.cfg.Monitor.History()),
		WebsocketClients: s.cfg.Hub.ClientCount(),
		NextScan:         s.cfg.Trigger.NextRun(),
		Timestamp:        s.now().UTC(),
	}
	if last := s.cfg.Monitor.Last(); last != nil && last.Scan != nil {
		resp.LastScan = last.Scan.StartedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// SignalView is one tracked signal in the /signals body.
type SignalView struct {
	Symbol   string       `json:"symbol"`
	Level    models.Level `json:"level"`
	Score    float64      `json:"score"`
	Price    float64      `json:"price"`
	LastSeen time.Time    `json:"last_seen"`
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	history := s.cfg.Monitor.History()
	views := make([]SignalView, 0, len(history))
	for sym, h := range history {
		seen := h.LastSeen
		if seen.IsZero() {
			seen = h.Date
		}
		views = append(views, SignalView{Symbol: sym, Level: h.Level, Score: h.Score, Price: h.Price, LastSeen: seen})
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].Level.Rank() != views[j].Level.Rank() {
			return views[i].Level.Rank() < views[j].Level.Rank()
		}
		if views[i].Score != views[j].Score {
			return views[i].Score > views[j].Score
		}
		return views[i].Symbol < views[j].Symbol
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"signals":   views,
		"count":     len(views),
		"timestamp": s.now().UTC(),
	})
}

func (s *Server) handleLatestSignals(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Scans == nil {
		writeError(w, http.StatusServiceUnavailable, "database is not configured")
		return
	}
	minScore, err := floatParam(r, "min_score", repository.DefaultLatestSignalScore)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.cfg.Scans.GetLatestSignals(r.Context(), minScore, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load latest signals")
		writeError(w, http.StatusInternalServerError, "failed to load signals")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"signals": records,
		"count":   len(records),
	})
}

func (s *Server) handleSymbolHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Scans == nil {
		writeError(w, http.StatusServiceUnavailable, "database is not configured")
		return
	}
	symbol := datasource.NormalizeSymbol(r.PathValue("symbol"))
	if err := datasource.ValidateSymbol(symbol); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(r, "limit", 30)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.cfg.Scans.GetSymbolHistory(r.Context(), symbol, limit)
	if err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Error("Failed to load signal history")
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"history": records,
	})
}

func (s *Server) handleTopPerformers(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Prices == nil {
		writeError(w, http.StatusServiceUnavailable, "database is not configured")
		return
	}
	days, err := repository.PeriodDays(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := intParam(r, "limit", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	top, err := s.cfg.Prices.GetTopPerformers(r.Context(), days, limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load top performers")
		writeError(w, http.StatusInternalServerError, "failed to load top performers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":       days,
		"performers": top,
	})
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Performance == nil {
		writeError(w, http.StatusServiceUnavailable, "performance analysis is not configured")
		return
	}

	symbols := make([]string, 0)
	for sym := range s.cfg.Monitor.History() {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	if len(symbols) == 0 {
		symbols = s.cfg.Universe(r.Context())
	}
	total := len(symbols)
	if len(symbols) > MaxPerformanceSample {
		symbols = symbols[:MaxPerformanceSample]
	}

	report, err := s.cfg.Performance.Analyze(r.Context(), symbols, s.cfg.Timeframe)
	if err != nil {
		s.logger.WithError(err).Error("Performance analysis failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":     err.Error(),
			"timestamp": s.now().UTC(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"performance":   report,
		"sample_size":   len(symbols),
		"total_symbols": total,
		"timestamp":     s.now().UTC(),
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Monitor.Running() {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"status":  "error",
			"message": "scan already in progress",
		})
		return
	}

	report, err := s.cfg.Trigger.RunNow(r.Context(), s.cfg.Timeframe)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status":    "error",
			"message":   err.Error(),
			"timestamp": s.now().UTC(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"scanned":     report.Scan.Scanned,
		"signals":     len(report.Scan.Signals),
		"new_signals": report.Alerts,
		"timestamp":   s.now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return v, nil
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}
