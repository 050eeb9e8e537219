package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/bouquet-checkout/internal/domain/address"
	"github.com/xenking/bouquet-checkout/internal/domain/auth"
	"github.com/xenking/bouquet-checkout/internal/domain/catalog"
	"github.com/xenking/bouquet-checkout/internal/domain/checkout"
	"github.com/xenking/bouquet-checkout/internal/domain/coupon"
	"github.com/xenking/bouquet-checkout/internal/geocode"
	"github.com/xenking/bouquet-checkout/internal/handler"
	"github.com/xenking/bouquet-checkout/internal/storage/memory"
	"github.com/xenking/bouquet-checkout/internal/storage/postgres"
	"github.com/xenking/bouquet-checkout/internal/storage/redis"
	"github.com/xenking/bouquet-checkout/pkg/health"
	"github.com/xenking/bouquet-checkout/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	checkoutCfg, err := cfg.Checkout()
	if err != nil {
		return errors.Wrap(err, "checkout config")
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck("postgres", pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Session storage.
	sessions, closeSessions, err := newSessionStore(ctx, lg, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer closeSessions()

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	products := catalog.NewLookup(productRepo)
	if err := products.Refresh(ctx); err != nil {
		return errors.Wrap(err, "load catalog")
	}
	go refreshCatalog(ctx, lg, products, cfg.CatalogRefresh)
	healthSvc.AddReadinessCheck("catalog", time.Second, health.NonEmptyCheck("catalog", products.Len))

	otelOptions := []otelhttp.Option{
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	}

	// Domain services.
	geocoder, err := geocode.New(geocode.Config{
		BaseURL:   cfg.Geocoder.BaseURL,
		UserAgent: cfg.Geocoder.UserAgent,
		Language:  cfg.Geocoder.Language,
		Timeout:   cfg.Geocoder.Timeout,
	}, otelOptions...)
	if err != nil {
		return errors.Wrap(err, "create geocoder")
	}
	metrics, err := checkout.NewMetrics(m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create metrics")
	}
	checkoutSvc := checkout.NewService(
		checkoutCfg,
		sessions,
		products,
		coupon.NewEngine(couponRepo),
		address.NewResolver(geocoder, lg.Named("address")),
		orderRepo,
		metrics,
		lg.Named("checkout"),
	)

	// HTTP handlers.
	h := handler.NewHandler(
		handler.HandlerConfig{
			ImageBaseURL: cfg.ImageBaseURL,
			Instrument: func(route string, next http.Handler) http.Handler {
				return httpmiddleware.Instrument(route, next, otelOptions...)
			},
		},
		products,
		checkoutSvc,
		auth.NewAuthenticator(apikeyRepo, []byte(cfg.APIKeyPepper)),
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Location requests wait for the reverse geocoder.
		WriteTimeout:   cfg.Geocoder.Timeout + 10*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", handler.HeaderAPIKey, httpmiddleware.HeaderRequestID},
				ExposeHeaders:    []string{httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.LogRequests(),
		),
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

// newSessionStore returns the Redis store when a Redis URL is configured and
// an in-memory store otherwise.
func newSessionStore(ctx context.Context, lg *zap.Logger, cfg *Config, hs *health.Health) (checkout.Store, func(), error) {
	if cfg.RedisURL == "" {
		lg.Warn("Redis is not configured, keeping sessions in memory")
		store := memory.NewSessionStore(cfg.SessionTTL)
		store.StartSweeper(ctx, time.Minute)
		return store, func() {}, nil
	}

	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create redis client")
	}
	store := redis.NewSessionStore(client, cfg.SessionTTL)
	if err := store.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, "ping redis")
	}
	hs.AddReadinessCheck("redis", 2*time.Second, health.PingCheck("redis", store))

	return store, func() {
		if err := client.Close(); err != nil {
			lg.Warn("Close redis client", zap.Error(err))
		}
	}, nil
}

// refreshCatalog reloads the catalog snapshot every interval until ctx is done.
// A failed reload keeps serving the previous snapshot.
func refreshCatalog(ctx context.Context, lg *zap.Logger, products *catalog.Lookup, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := products.Refresh(ctx); err != nil && ctx.Err() == nil {
				lg.Warn("Catalog refresh failed", zap.Error(err))
			}
		}
	}
}
