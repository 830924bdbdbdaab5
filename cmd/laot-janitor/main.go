package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/laot-fitness/laot/pkg/config"
	"github.com/laot-fitness/laot/pkg/lockout"
	"github.com/laot-fitness/laot/pkg/observability"
	"github.com/laot-fitness/laot/pkg/storage/redisstore"
	"github.com/laot-fitness/laot/pkg/storage/sqlstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var (
	runOnce     = flag.Bool("run-once", false, "Purge expired login attempts once and exit")
	schedule    = flag.String("schedule", "", "Cron schedule for purges (overrides LAOT_JANITOR_SCHEDULE)")
	metricsAddr = flag.String("metrics-addr", "", "Address to serve /metrics on, disabled when empty")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *schedule != "" {
		cfg.Janitor.Schedule = *schedule
	}

	logger := observability.NewLogger(cfg.LogLevel(), os.Stdout).WithService("laot-janitor")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Janitor exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	store, err := sqlstore.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	var ledger lockout.Ledger = store
	if cfg.Lockout.Backend == config.LedgerRedis {
		client, err := redisstore.NewClient(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer client.Close()
		ledger = redisstore.NewLedger(client, "", cfg.Lockout.Retention)
	}

	guard := lockout.NewGuard(ledger, cfg.LockoutPolicy(), logger)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	if *metricsAddr != "" {
		serveMux := http.NewServeMux()
		observability.RegisterMetricsEndpoint(serveMux, registry)
		srv := &http.Server{Addr: *metricsAddr, Handler: serveMux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			defer observability.RecoverPanic(logger, "metrics server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("Metrics server failed")
			}
		}()
		defer srv.Close()
	}

	purge := func() {
		defer observability.RecoverPanic(logger, "ledger purge")

		start := time.Now()
		removed, err := guard.Purge(ctx)
		metrics.RecordPurge(removed, time.Since(start), err)
		if err != nil {
			logger.WithError(err).Error("Ledger purge failed")
			return
		}
		logger.WithFields(map[string]interface{}{
			"removed":     removed,
			"retention":   cfg.Lockout.Retention.String(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Ledger purge completed")
	}

	if *runOnce {
		purge()
		return nil
	}

	// The scheduler reports its own errors through logrus
	cronLog := logrus.New()
	cronLog.SetFormatter(&logrus.JSONFormatter{})
	cronLog.SetOutput(os.Stderr)

	c := cron.New(cron.WithLogger(cron.PrintfLogger(cronLog)), cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(cronLog))))
	if _, err := c.AddFunc(cfg.Janitor.Schedule, purge); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", cfg.Janitor.Schedule, err)
	}

	c.Start()
	logger.WithField("schedule", cfg.Janitor.Schedule).Info("Janitor started")

	<-ctx.Done()
	logger.Info("Shutting down gracefully")

	// Wait for a running purge to finish
	<-c.Stop().Done()
	return nil
}
