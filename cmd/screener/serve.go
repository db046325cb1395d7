package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/stock-screener/internal/api"
	"github.com/yourusername/stock-screener/internal/health"
	"github.com/yourusername/stock-screener/internal/metrics"
	"github.com/yourusername/stock-screener/internal/notify"
	"github.com/yourusername/stock-screener/internal/scheduler"
	"github.com/yourusername/stock-screener/internal/service"
)

var historyFile string

func init() {
	serveCmd.Flags().StringVar(&historyFile, "history", "data/signal_history.json", "File holding the last seen level of each symbol")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard, scheduled scans and alerting",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tf, err := resolveTimeframe(cfg.Scan.Timeframe)
		if err != nil {
			return err
		}
		universe := cachedUniverse(a.universe)

		scanner, err := service.NewScanner(a.provider, a.scorer, service.ScanOptionsFromConfig(cfg.Scan), log)
		if err != nil {
			return err
		}
		analyzer, err := service.NewPerformanceAnalyzer(a.provider, a.scorer, a.backtest, cfg.Scan.Concurrency, log)
		if err != nil {
			return err
		}

		notifiers, err := notify.FromConfig(cfg.Notifier, a.httpClient, log)
		if err != nil {
			return err
		}
		hub := api.NewHub(log)
		opts := []service.MonitorOption{
			service.WithNotifiers(toServiceNotifiers(notifiers)...),
			service.WithBroadcaster(hub),
		}

		apiCfg := api.Config{
			Addr:         cfg.ServerAddress(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			Timeframe:    tf,
			Universe:     universe,
			Performance:  analyzer,
			Hub:          hub,
			Logger:       log,
		}
		healthCfg := health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Commit:      GitCommit,
			Port:        cfg.Server.HealthPort,
			GRPCPort:    cfg.Server.GRPCPort,
			Logger:      log,
			Checks: map[string]health.CheckFunc{
				"data_source": func(ctx context.Context) error {
					if a.httpClient.IsOpen() {
						return errors.New("circuit breaker open")
					}
					return nil
				},
			},
		}

		if cfg.Database.Enabled {
			repos, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			opts = append(opts, service.WithScanStore(repos.Scans))
			apiCfg.Scans = repos.Scans
			apiCfg.Prices = repos.Prices
			healthCfg.DB = a.db
		}

		monitor, err := service.NewMonitor(ctx, scanner, service.NewFileHistoryStore(historyFile), log, opts...)
		if err != nil {
			return err
		}
		sched, err := scheduler.NewScheduler(monitor, universe, cfg.Scheduler.Timezone, log)
		if err != nil {
			return err
		}
		if cfg.Scheduler.Enabled {
			if _, err := sched.ScheduleScan(cfg.Scheduler.ScanCron, tf); err != nil {
				return err
			}
			apiCfg.ScanCron = cfg.Scheduler.ScanCron
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()
		}

		apiCfg.Monitor = monitor
		apiCfg.Trigger = sched
		dashboard, err := api.NewServer(apiCfg)
		if err != nil {
			return err
		}
		healthServer := health.NewServer(healthCfg)

		if err := healthServer.Start(ctx); err != nil {
			return err
		}
		if err := dashboard.Start(ctx); err != nil {
			return err
		}
		if cfg.Metrics.Enabled && cfg.Metrics.Port > 0 && cfg.Metrics.Port != cfg.Server.Port {
			startMetricsServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path, log)
		}
		healthServer.SetReady(true)

		log.WithFields(logrus.Fields{
			"addr":      apiCfg.Addr,
			"timeframe": tf.Name,
			"scheduled": cfg.Scheduler.Enabled,
			"notifiers": len(notifiers),
		}).Info("Screener running")

		<-ctx.Done()
		healthServer.SetReady(false)
		log.Info("Shutting down")
		return nil
	},
}

// cachedUniverse resolves the universe once and reuses it for every pass.
func cachedUniverse(resolve func(context.Context) []string) func(context.Context) []string {
	var (
		once    sync.Once
		symbols []string
	)
	return func(ctx context.Context) []string {
		once.Do(func() { symbols = resolve(ctx) })
		return symbols
	}
}

func toServiceNotifiers(in []notify.Notifier) []service.Notifier {
	out := make([]service.Notifier, 0, len(in))
	for _, n := range in {
		out = append(out, n)
	}
	return out
}

func startMetricsServer(ctx context.Context, port int, path string, log *logrus.Logger) {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("port", port).Info("Metrics server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics server error")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}
