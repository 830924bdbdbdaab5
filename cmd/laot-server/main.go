package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/laot-fitness/laot/pkg/api"
	"github.com/laot-fitness/laot/pkg/auth"
	"github.com/laot-fitness/laot/pkg/config"
	"github.com/laot-fitness/laot/pkg/lockout"
	"github.com/laot-fitness/laot/pkg/middleware"
	"github.com/laot-fitness/laot/pkg/observability"
	"github.com/laot-fitness/laot/pkg/session"
	"github.com/laot-fitness/laot/pkg/storage/redisstore"
	"github.com/laot-fitness/laot/pkg/storage/sqlstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const dbStatsInterval = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel(), os.Stdout).WithService("laot-server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	defer func() {
		if err := shutdown.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Shutdown finished with errors")
		}
	}()

	providers, err := observability.InitOTel(ctx, cfg.OTel(), logger)
	if err != nil {
		return err
	}
	if providers != nil {
		shutdown.Register("otel", providers.Shutdown)
	}

	store, err := sqlstore.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	shutdown.Register("database", func(context.Context) error { return store.Close() })
	logger.WithField("driver", string(store.Dialect())).Info("Database connected")

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = redisstore.NewClient(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
		logger.Info("Redis connected")
	}

	var ledger lockout.Ledger = store
	if cfg.Lockout.Backend == config.LedgerRedis {
		ledger = redisstore.NewLedger(redisClient, "", cfg.Lockout.Retention)
	}
	logger.WithField("backend", cfg.Lockout.Backend).Info("Attempt ledger ready")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	tokens, err := auth.NewTokenCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	hasher, err := auth.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	authenticator, err := auth.NewAuthenticator(auth.Dependencies{
		Users:    store,
		Profiles: store,
		Guard:    lockout.NewGuard(ledger, cfg.LockoutPolicy(), logger),
		Tokens:   tokens,
		Hasher:   hasher,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	var throttle api.Limiter
	if cfg.RateLimit.Enabled {
		limits := &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerMinute,
			WindowDuration:    time.Minute,
			BurstSize:         cfg.RateLimit.Burst,
		}
		if cfg.RateLimit.Distributed {
			throttle = middleware.NewDistributedThrottle(redisClient, limits, "", logger)
		} else {
			local := middleware.NewThrottle(limits)
			local.StartCleanup(ctx)
			throttle = local
		}
	}

	server, err := api.NewServer(api.Dependencies{
		Auth:     authenticator,
		Store:    store,
		Sessions: session.NewManager(cfg.SessionManagerConfig()),
		Metrics:  metrics,
		Throttle: throttle,
		Logger:   logger,
	}, api.Options{
		CORSOrigins:       cfg.Server.CORSOrigins,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
		Tracing:           providers != nil,
	})
	if err != nil {
		return err
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	shutdown.Register("api server", apiServer.Shutdown)

	// Health and metrics listen on their own port for probes and scrapes
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(store.DB(), redisClient, cfg.Lockout.Backend == config.LedgerRedis))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	shutdown.Register("health server", healthServer.Shutdown)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("Starting API server")
		return listen(apiServer)
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Starting health server")
		return listen(healthServer)
	})
	g.Go(func() error {
		defer observability.RecoverPanic(logger, "db stats")
		ticker := time.NewTicker(dbStatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				metrics.ObserveDBStats(store.DB().Stats())
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		return shutdown.Shutdown(context.Background())
	})

	return g.Wait()
}

// listen treats a graceful close as a clean exit
func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", srv.Addr, err)
	}
	return nil
}
