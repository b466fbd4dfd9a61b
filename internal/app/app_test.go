package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/procart/internal/catalog"
	"github.com/xenking/procart/internal/client/fakestore"
)

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

const upstreamProducts = `[
  {"id":1,"title":"Fjallraven - Foldsack No. 1 Backpack, Fits 15 Laptops","price":109.95,
   "description":"Your perfect pack for everyday use and walks in the forest.",
   "category":"men's clothing","image":"https://fakestoreapi.com/img/81fPKd-2AYL._AC_SL1500_.jpg",
   "rating":{"rate":3.9,"count":120}},
  {"id":2,"title":"Mens Casual Premium Slim Fit T-Shirts","price":22.3,
   "description":"Slim-fitting style.","category":"men's clothing",
   "image":"https://fakestoreapi.com/img/71-3HjGNDUL._AC_SY879._SX._UX._SY._UY_.jpg",
   "rating":{"rate":4.1,"count":259}}
]`

func testConfig(baseURL string) *Config {
	return &Config{
		Addr: defaultAddr,
		Catalog: CatalogConfig{
			BaseURL:     baseURL,
			Timeout:     time.Second,
			PageSize:    8,
			LoadOnStart: true,
		},
		RateLimit: RateLimitConfig{Max: 1000, Window: time.Minute},
		CORS:      CORSConfig{Origins: []string{"*"}},
	}
}

func newTestApp(t *testing.T, upstream http.Handler) (*httptest.Server, *catalog.Store) {
	t.Helper()

	up := httptest.NewServer(upstream)
	t.Cleanup(up.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := testConfig(up.URL)
	client, err := fakestore.New(fakestore.Config{BaseURL: cfg.Catalog.BaseURL, Timeout: cfg.Catalog.Timeout})
	require.NoError(t, err)
	store := catalog.New(client, catalog.Options{PageSize: cfg.Catalog.PageSize})

	h := newHealth(cfg, store)
	h.SetReady(true)
	h.Start(ctx, 5*time.Millisecond)
	t.Cleanup(h.Stop)

	srv := httptest.NewServer(newHandler(ctx, zaptest.NewLogger(t), noopTelemetry{}, cfg, store, h))
	t.Cleanup(srv.Close)
	return srv, store
}

func upstreamMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, upstreamProducts)
	})
	mux.HandleFunc("GET /products/categories", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `["electronics","jewelery","men's clothing","women's clothing"]`)
	})
	return mux
}

func status(t *testing.T, srv *httptest.Server, method, path string) int {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestServer_ReadyAfterLoad(t *testing.T) {
	srv, store := newTestApp(t, upstreamMux())

	assert.Equal(t, http.StatusOK, status(t, srv, http.MethodGet, "/livez"))
	assert.Eventually(t, func() bool {
		return status(t, srv, http.MethodGet, "/readyz") == http.StatusServiceUnavailable
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, http.StatusOK, status(t, srv, http.MethodPost, "/api/catalog/load"))
	assert.Equal(t, catalog.StatusLoaded, store.Status())
	assert.Equal(t, []string{"electronics", "jewelery", "men's clothing", "women's clothing"}, store.Snapshot().Categories)

	assert.Eventually(t, func() bool {
		return status(t, srv, http.MethodGet, "/readyz") == http.StatusOK
	}, time.Second, 5*time.Millisecond)
}

func TestServer_UpstreamDown(t *testing.T) {
	srv, store := newTestApp(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	assert.Equal(t, http.StatusBadGateway, status(t, srv, http.MethodPost, "/api/catalog/load"))
	assert.Equal(t, catalog.StatusFailed, store.Status())
	assert.Equal(t, http.StatusOK, status(t, srv, http.MethodGet, "/api/catalog"))
}

func TestServer_Middleware(t *testing.T) {
	srv, _ := newTestApp(t, upstreamMux())

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/catalog", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://shop.example")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "1000", resp.Header.Get("X-RateLimit-Limit"))
}

func TestNewHealth_NotReadyBeforeFirstCheck(t *testing.T) {
	store := catalog.New(&fakestore.Client{}, catalog.Options{})
	h := newHealth(testConfig("https://fakestoreapi.com"), store)
	h.SetReady(true)

	assert.False(t, h.IsReady())
}

func TestCatalogCheck(t *testing.T) {
	var failing atomic.Bool
	mux := upstreamMux()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	defer up.Close()

	client, err := fakestore.New(fakestore.Config{BaseURL: up.URL})
	require.NoError(t, err)
	store := catalog.New(client, catalog.Options{})
	check := catalogCheck(store)
	ctx := context.Background()

	assert.EqualError(t, check(ctx), "catalog not loaded")

	require.NoError(t, store.LoadCatalog(ctx))
	assert.NoError(t, check(ctx))

	failing.Store(true)
	require.Error(t, store.LoadCatalog(ctx))
	err = check(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad scheme", mutate: func(c *Config) { c.Catalog.BaseURL = "ftp://example.com" }, wantErr: "invalid catalog base URL"},
		{name: "no host", mutate: func(c *Config) { c.Catalog.BaseURL = "https://" }, wantErr: "invalid catalog base URL"},
		{name: "zero timeout", mutate: func(c *Config) { c.Catalog.Timeout = 0 }, wantErr: "timeout must be positive"},
		{name: "negative refresh", mutate: func(c *Config) { c.Catalog.RefreshInterval = -time.Second }, wantErr: "refresh interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("https://fakestoreapi.com")
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateDefaults(t *testing.T) {
	cfg := testConfig("")
	cfg.Catalog.PageSize = 0

	require.NoError(t, cfg.Validate())
	assert.Equal(t, fakestore.DefaultBaseURL, cfg.Catalog.BaseURL)
	assert.Equal(t, 8, cfg.Catalog.PageSize)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
	assert.Equal(t, "https://fakestoreapi.com", cfg.Catalog.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, 8, cfg.Catalog.PageSize)
	assert.True(t, cfg.Catalog.LoadOnStart)
	assert.Equal(t, 100, cfg.RateLimit.Max)
}

func TestApplyPlatformDefaults_ExplicitAddrWins(t *testing.T) {
	t.Setenv("PORT", "9090")
	cfg := &Config{Addr: "127.0.0.1:7000"}

	cfg.applyPlatformDefaults()

	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
}
