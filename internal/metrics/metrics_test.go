package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)
	m := &dto.Metric{}
	require.NoError(t, (<-ch).Write(m))
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	}
	return 0
}

func TestMetricsRegistry(t *testing.T) {
	registry := InitRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, GetRegistry())
}

func TestRecordCacheLookup(t *testing.T) {
	InitRegistry()
	before := value(t, CacheLookupsTotal.WithLabelValues("test", "hit"))

	RecordCacheLookup("test", true)
	RecordCacheLookup("test", false)

	assert.Equal(t, before+1, value(t, CacheLookupsTotal.WithLabelValues("test", "hit")))
	assert.GreaterOrEqual(t, value(t, CacheLookupsTotal.WithLabelValues("test", "miss")), 1.0)
}

func TestUpdateSignalsByLevel(t *testing.T) {
	InitRegistry()

	UpdateSignalsByLevel(map[string]int{"STRONG_BUY": 2, "BUY": 5})
	assert.Equal(t, 2.0, value(t, SignalsByLevel.WithLabelValues("STRONG_BUY")))

	UpdateSignalsByLevel(map[string]int{"BUY": 1})
	ch := make(chan prometheus.Metric, 10)
	SignalsByLevel.Collect(ch)
	close(ch)
	assert.Len(t, ch, 1)
}

func TestRecordNotification(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name   string
		err    error
		status string
	}{
		{"success", nil, "success"},
		{"failure", errors.New("boom"), "failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := value(t, NotificationsTotal.WithLabelValues("telegram", tt.status))
			RecordNotification("telegram", tt.err)
			assert.Equal(t, before+1, value(t, NotificationsTotal.WithLabelValues("telegram", tt.status)))
		})
	}
}

func TestRecordSweep(t *testing.T) {
	InitRegistry()

	RecordSweep(400, 25, 12, "annual", 87.5)
	assert.Equal(t, 12.0, value(t, OptimizerQualified))
	assert.Equal(t, 87.5, value(t, OptimizerBestReturn.WithLabelValues("annual")))
}

func TestRecordBacktestRun(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordBacktestRun("single", "success", 0.02)
		RecordTrades(map[string]int{"TAKE_PROFIT": 3, "STOP_LOSS": 1})
		RecordScan("success", 12.5)
		RecordNewSignals(3)
		RecordFetchError("yahoo")
		RecordCircuitBreakerTrip()
		UpdateWebsocketClients(2)
	})
}

func TestHandlerServesNamespace(t *testing.T) {
	InitRegistry()
	RecordScan("success", 1)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "stock_screener_scans_total"))
}
