package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oncontrol/platform/internal/auth"
	"github.com/oncontrol/platform/internal/backend"
	"github.com/oncontrol/platform/internal/gateway"
	"github.com/oncontrol/platform/internal/http/handlers"
	"github.com/oncontrol/platform/internal/http/middleware"
	"github.com/oncontrol/platform/internal/observability/metrics"
	"github.com/oncontrol/platform/pkg/logging"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mem := backend.NewMemory()
	client := backend.NewClient(mem, mem, "oncontrol-app")
	logger := logging.Default()
	reg := prometheus.NewRegistry()
	m := metrics.NewSyncMetrics(reg)

	svc := auth.NewService(auth.NewRepository(db), client, "test-secret", time.Hour, logger)
	gw := gateway.New(client, middleware.ContextUserSource{}, logger, m)

	return New(&Config{
		Logger:           logger,
		AuthHandler:      handlers.NewAuthHandler(svc, logger),
		SyncHandler:      handlers.NewSyncHandler(gw, logger),
		LiveHandler:      handlers.NewLiveHandler(client, logger, m),
		SessionJWTSecret: "test-secret",
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestMutationRoutesRequireSession(t *testing.T) {
	r := newTestRouter(t)

	for _, route := range []struct {
		method, path string
	}{
		{http.MethodPost, "/api/patients"},
		{http.MethodPatch, "/api/appointments/a1"},
		{http.MethodDelete, "/api/treatments/t1"},
		{http.MethodPut, "/api/settings/thresholds"},
		{http.MethodGet, "/sync/live"},
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(route.method, route.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected status %d, got %d",
				route.method, route.path, http.StatusUnauthorized, rec.Code)
		}
	}
}

func TestAuthRoutesAreRegistered(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	// an empty body is a bad request, not a missing route
	if rec.Code == http.StatusNotFound || rec.Code == http.StatusMethodNotAllowed {
		t.Fatalf("expected /auth/login to be routed, got %d", rec.Code)
	}
}
