// Package health provides liveness and readiness endpoints over HTTP and the
// standard gRPC health service.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// CheckFunc is an extra readiness check. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Server serves /health, /ready and /live, and optionally grpc.health.v1.
type Server struct {
	serviceName string
	version     string
	commit      string
	port        int
	grpcPort    int
	server      *http.Server
	grpcServer  *grpc.Server
	grpcHealth  *grpchealth.Server
	logger      *logrus.Logger
	db          DatabasePinger
	checks      map[string]CheckFunc
	mu          sync.RWMutex
	ready       bool
}

// Config holds the configuration for the health server. A zero GRPCPort
// disables the gRPC listener.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        int
	GRPCPort    int
	Logger      *logrus.Logger
	DB          DatabasePinger
	Checks      map[string]CheckFunc
}

// NewServer creates a new health check server.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == 0 {
		port = 8081
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}

	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(cfg.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		commit:      cfg.Commit,
		port:        port,
		grpcPort:    cfg.GRPCPort,
		grpcHealth:  hs,
		logger:      logger,
		db:          cfg.DB,
		checks:      cfg.Checks,
	}
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.grpcHealth.SetServingStatus("", status)
	s.grpcHealth.SetServingStatus(s.serviceName, status)
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// GRPCHealth exposes the gRPC health implementation for registration on
// another server.
func (s *Server) GRPCHealth() healthpb.HealthServer {
	return s.grpcHealth
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)
	return mux
}

// Start starts the listeners in the background. They shut down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + strconv.Itoa(s.port),
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var lis net.Listener
	if s.grpcPort > 0 {
		var err error
		lis, err = net.Listen("tcp", ":"+strconv.Itoa(s.grpcPort))
		if err != nil {
			return fmt.Errorf("grpc health listener: %w", err)
		}
		s.grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.grpcHealth)
	}

	go func() {
		s.logger.WithFields(logrus.Fields{
			"port":    s.port,
			"service": s.serviceName,
		}).Info("Health check server starting")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("Health check server error")
		}
	}()

	if s.grpcServer != nil {
		go func() {
			s.logger.WithField("port", s.grpcPort).Info("gRPC health service starting")
			if err := s.grpcServer.Serve(lis); err != nil {
				s.logger.WithError(err).Error("gRPC health service error")
			}
		}()
	}

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown gracefully shuts down the listeners.
func (s *Server) Shutdown() error {
	s.grpcHealth.Shutdown()
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	if s.server == nil {
		return nil
	}

	s.logger.Info("Health check server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
		Commit:    s.commit,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: s.serviceName,
	})
}

// handleReady reports 503 until SetReady(true) and while any check fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	allHealthy := true

	if !s.IsReady() {
		allHealthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			allHealthy = false
			checks["database"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["database"] = "ok"
		}
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			allHealthy = false
			checks[name] = fmt.Sprintf("error: %v", err)
		} else {
			checks[name] = "ok"
		}
	}

	response := ReadyResponse{
		Service:  s.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}
	status := http.StatusOK
	response.Status = "ok"
	if !allHealthy {
		response.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
