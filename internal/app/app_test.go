package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refill-ledger/ledger/internal/observability"
)

func testConfig() *Config {
	return &Config{AppEnv: "test", APIURL: "http://localhost:3000/api", RateLimit: 1000}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LEDGER_API_URL", "")
	t.Setenv("VITE_API_URL", "https://ledger.example.com/api")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://ledger.example.com/api", cfg.APIURL)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 120, cfg.RateLimit)
	assert.False(t, cfg.IsProduction())
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	cfg.APIURL = "ftp://nowhere"
	assert.Error(t, cfg.Validate())

	cfg = testConfig()
	cfg.APIUsername = "staff"
	assert.Error(t, cfg.Validate())
}

func TestServiceCredentials(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, cfg.ServiceCredentials())

	cfg.APIUsername = "svc"
	cfg.APIPassword = "pw"
	creds := cfg.ServiceCredentials()
	require.NotNil(t, creds)
	assert.Equal(t, "svc", creds.Username)
	assert.Equal(t, "pw", creds.Password)
}

func TestTokenPathPrefersConfig(t *testing.T) {
	cfg := testConfig()
	cfg.TokenFile = "/tmp/tokens.json"
	assert.Equal(t, "/tmp/tokens.json", cfg.TokenPath())
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	cfg.LogFormat = "json"
	newLogger(cfg, &buf).Info("hello")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
}

func TestRouterServesHealthMetricsAndStatic(t *testing.T) {
	metrics := observability.NewMetrics()
	handler := NewRouter(RouterParams{Config: testConfig(), Metrics: metrics})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `ledger_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestReadyzReportsFailingDependency(t *testing.T) {
	handler := NewRouter(RouterParams{Config: testConfig(), Ready: map[string]ReadyCheck{
		"redis":   func(context.Context) error { return nil },
		"backend": func(context.Context) error { return errors.New("connection refused") },
	}})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "connection refused")
}
