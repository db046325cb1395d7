package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/proto"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestHealthAndLive(t *testing.T) {
	s := NewServer(Config{ServiceName: "stock-screener", Version: "1.2.0", Logger: quietLogger()})
	h := s.Handler()

	rec, body := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.2.0", body["version"])
	assert.NotEmpty(t, body["timestamp"])

	rec, body = get(t, h, "/live")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stock-screener", body["service"])
}

func TestReadyLifecycle(t *testing.T) {
	s := NewServer(Config{ServiceName: "stock-screener", Logger: quietLogger(), DB: fakePinger{}})
	h := s.Handler()

	rec, body := get(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body["status"])

	s.SetReady(true)
	rec, body = get(t, h, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["database"])
}

func TestReadyFailingChecks(t *testing.T) {
	s := NewServer(Config{
		ServiceName: "stock-screener",
		Logger:      quietLogger(),
		DB:          fakePinger{err: errors.New("connection refused")},
		Checks: map[string]CheckFunc{
			"datasource": func(context.Context) error { return errors.New("circuit open") },
		},
	})
	s.SetReady(true)

	rec, body := get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "error: connection refused", checks["database"])
	assert.Equal(t, "error: circuit open", checks["datasource"])
}

func TestGRPCHealthFollowsReadiness(t *testing.T) {
	s := NewServer(Config{ServiceName: "stock-screener", Logger: quietLogger()})
	ctx := context.Background()

	resp, err := s.GRPCHealth().Check(ctx, &healthpb.HealthCheckRequest{Service: "stock-screener"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	s.SetReady(true)
	resp, err = s.GRPCHealth().Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.True(t, proto.Equal(&healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, resp))

	_, err = s.GRPCHealth().Check(ctx, &healthpb.HealthCheckRequest{Service: "unknown"})
	assert.Error(t, err)
}
