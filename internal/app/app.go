// Package app wires the catalog server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/procart/internal/catalog"
	"github.com/xenking/procart/internal/client/fakestore"
	"github.com/xenking/procart/internal/handler"
	"github.com/xenking/procart/pkg/health"
	"github.com/xenking/procart/pkg/httpmiddleware"
)

const (
	serviceName    = "procart-api"
	healthInterval = 2 * time.Second
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("catalog", cfg.Catalog.BaseURL),
	)

	client, err := fakestore.New(fakestore.Config{
		BaseURL:        cfg.Catalog.BaseURL,
		Timeout:        cfg.Catalog.Timeout,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	if err != nil {
		return errors.Wrap(err, "create catalog client")
	}
	store := catalog.New(client, catalog.Options{
		PageSize:      cfg.Catalog.PageSize,
		Logger:        lg.Named("catalog"),
		MeterProvider: m.MeterProvider(),
	})

	healthSvc := newHealth(cfg, store)
	healthSvc.Start(ctx, healthInterval)
	healthSvc.SetReady(true)

	if cfg.Catalog.LoadOnStart {
		go refresh(ctx, lg, store, cfg.Catalog)
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Catalog.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, zctx.From(ctx), m, cfg, store, healthSvc),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newHealth registers the liveness and readiness checks. When the catalog is
// loaded on start, the service is ready only once a load has succeeded and
// the latest one did not fail.
func newHealth(cfg *Config, store *catalog.Store) *health.Health {
	h := health.New()
	h.Add(health.Liveness, "goroutines", time.Second, health.GoroutineCountCheck(10000))
	if cfg.Catalog.LoadOnStart {
		h.Add(health.Readiness, "catalog", time.Second, catalogCheck(store),
			health.WithThresholds(1, 1),
			health.WithInitialState(false),
		)
	}
	return h
}

func catalogCheck(store *catalog.Store) health.CheckFunc {
	return func(context.Context) error {
		if !store.HasLoaded() {
			return errors.New("catalog not loaded")
		}
		if status := store.Status(); status == catalog.StatusFailed {
			return errors.Errorf("catalog %s", status)
		}
		return nil
	}
}

// newHandler builds the routes and the middleware chain.
func newHandler(
	ctx context.Context,
	lg *zap.Logger,
	m httpmiddleware.Telemetry,
	cfg *Config,
	store *catalog.Store,
	healthSvc *health.Health,
) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	handler.NewHandler(store).Register(mux)

	routeFinder := httpmiddleware.MakeRouteFinder(mux)
	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
			ExposeHeaders:    []string{httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument(serviceName, routeFinder, m),
		httpmiddleware.LogRequests(routeFinder),
		httpmiddleware.Labeler(routeFinder),
	)
}

// refresh loads the catalog once and then every RefreshInterval, if set,
// until ctx is done.
func refresh(ctx context.Context, lg *zap.Logger, store *catalog.Store, cfg CatalogConfig) {
	load := func() {
		// Both fetches run concurrently, each bounded by the client timeout.
		loadCtx, cancel := context.WithTimeout(ctx, cfg.Timeout+time.Second)
		defer cancel()
		if err := store.LoadAll(loadCtx); err != nil {
			lg.Warn("Catalog refresh failed", zap.Error(err))
			return
		}
		lg.Info("Catalog loaded", zap.Int("products", len(store.Snapshot().Products)))
	}

	load()
	if cfg.RefreshInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			load()
		}
	}
}
