package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"memento-client/pkg/logger"
	"memento-client/pkg/metrics"
	"memento-client/pkg/password"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ok", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("username"))
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBasicAuth(t *testing.T) {
	hash, err := password.Hash("stub-password")
	require.NoError(t, err)
	m := metrics.NewMetrics("memento-stub")
	r := newRouter(BasicAuth(Credentials{Username: "alice", PasswordHash: hash}, m))

	tests := []struct {
		name       string
		user, pass string
		noAuth     bool
		wantStatus int
	}{
		{name: "valid", user: "alice", pass: "stub-password", wantStatus: http.StatusOK},
		{name: "wrong password", user: "alice", pass: "guess", wantStatus: http.StatusUnauthorized},
		{name: "wrong user", user: "bob", pass: "stub-password", wantStatus: http.StatusUnauthorized},
		{name: "no credentials", noAuth: true, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ok", nil)
			if !tt.noAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}

			w := serve(r, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="memento"`, w.Header().Get("WWW-Authenticate"))
			} else {
				assert.Equal(t, "alice", w.Body.String())
			}
		})
	}

	assert.Equal(t, 2.0, authFailures(t, m, "bad_credentials"))
	assert.Equal(t, 1.0, authFailures(t, m, "missing_credentials"))
}

// authFailures reads auth_failures_total{reason} through the registry
func authFailures(t *testing.T, m *metrics.Metrics, reason string) float64 {
	t.Helper()
	families, err := m.GetRegistry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "auth_failures_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "reason" && l.GetValue() == reason {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(nil) })
	r := newRouter(RequestLogger())

	t.Run("keeps client request id", func(t *testing.T) {
		id := uuid.New().String()
		req := httptest.NewRequest(http.MethodGet, "/ok?x=1", nil)
		req.Header.Set("X-Request-ID", id)

		w := serve(r, req)

		assert.Equal(t, id, w.Header().Get("X-Request-ID"))
		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, "Request served", entries[0].Message)
		assert.Equal(t, id, entries[0].ContextMap()["request_id"])
		assert.Equal(t, "/ok?x=1", entries[0].ContextMap()["path"])
	})

	t.Run("replaces invalid request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/missing", nil)
		req.Header.Set("X-Request-ID", "not-a-uuid")

		w := serve(r, req)

		_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
		assert.NoError(t, err)
		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	})
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(nil) })
	r := newRouter(Recovery())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
	assert.Equal(t, 1, logs.FilterMessage("Panic while serving request").Len())
}

func TestHealthCheck(t *testing.T) {
	r := newRouter(HealthCheck("memento-stub"))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"memento-stub"}`, w.Body.String())
}

func TestSecurityHeaders(t *testing.T) {
	w := serve(newRouter(SecurityHeaders()), httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestPrometheusMiddleware(t *testing.T) {
	m := metrics.NewMetrics("memento-stub")
	r := newRouter(NewPrometheusMiddleware(m).Handler())
	r.GET(MetricsPath, MetricsHandler(m))

	serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	w := serve(r, httptest.NewRequest(http.MethodGet, MetricsPath, nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `http_requests_total{endpoint="/ok",method="GET",service="memento-stub",status="200"} 1`), body)
	assert.Contains(t, body, `http_requests_total{endpoint="unmatched",method="GET",service="memento-stub",status="404"} 1`)
}
