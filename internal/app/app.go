// Package app wires the storefront API server.
package app

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/db"
	"github.com/xenking/kart-storefront/internal/domain/auth"
	"github.com/xenking/kart-storefront/internal/domain/coupon"
	"github.com/xenking/kart-storefront/internal/domain/notify"
	"github.com/xenking/kart-storefront/internal/domain/order"
	"github.com/xenking/kart-storefront/internal/domain/product"
	"github.com/xenking/kart-storefront/internal/event"
	"github.com/xenking/kart-storefront/internal/handler"
	"github.com/xenking/kart-storefront/internal/storage/memory"
	"github.com/xenking/kart-storefront/internal/storage/postgres"
	"github.com/xenking/kart-storefront/internal/storefront"
	"github.com/xenking/kart-storefront/pkg/health"
	"github.com/xenking/kart-storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	healthSvc := health.New()
	healthSvc.AddLiveness("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Storage: PostgreSQL when configured, otherwise the seeded in-memory store.
	var (
		products product.Repository
		coupons  coupon.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadiness("postgres", 5*time.Second, health.PingCheck(pool))
		products = postgres.NewProductRepository(pool)
		coupons = postgres.NewCouponRepository(pool)
	} else {
		seed := db.Catalog
		if cfg.SeedFile != "" {
			data, err := os.ReadFile(cfg.SeedFile)
			if err != nil {
				return errors.Wrap(err, "read seed file")
			}
			seed = data
		}
		p, c, err := memory.Seed(seed)
		if err != nil {
			return errors.Wrap(err, "seed memory store")
		}
		lg.Warn("No database configured, using in-memory catalog")
		products, coupons = p, c
	}

	// Order events.
	var publisher order.Publisher = event.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := event.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := kp.Close(); err != nil {
				lg.Error("Close kafka publisher", zap.Error(err))
			}
		}()
		publisher = kp
	}

	keys, err := auth.NewKeys(cfg.Admin.Pepper, cfg.Admin.KeyHashes)
	if err != nil {
		return errors.Wrap(err, "admin keys")
	}
	if !keys.Enabled() {
		lg.Warn("No admin key hashes configured, admin routes are open")
	}

	notes := notify.NewRecorder(cfg.Notifications.TTL, cfg.Notifications.Capacity)
	svc, err := storefront.New(storefront.Options{
		Products:       products,
		Coupons:        coupons,
		Publisher:      publisher,
		Sink:           notify.Fanout(notes, notify.LogSink{}),
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
		PublishTimeout: cfg.Kafka.PublishTimeout,
	})
	if err != nil {
		return errors.Wrap(err, "create storefront")
	}
	if err := svc.Load(ctx); err != nil {
		return errors.Wrap(err, "load storefront")
	}
	healthSvc.AddReadiness("catalog", time.Second, health.ConditionCheck(svc.Loaded, "catalog not loaded"))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	mux := http.NewServeMux()
	healthSvc.Register(mux)
	handler.New(svc, notes, keys).Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(httpmiddleware.RouteSpans(mux),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
				AllowHeaders: []string{"Content-Type", handler.HeaderAPIKey, httpmiddleware.HeaderRequestID},
				MaxAge:       cfg.CORS.MaxAge,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:      cfg.RateLimit.Max,
				Window:   cfg.RateLimit.Window,
				Prefixes: cfg.RateLimit.Prefixes,
			}),
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
