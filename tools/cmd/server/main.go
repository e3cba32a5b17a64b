package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrickwarner/bannerrotator/internal/analytics"
	"github.com/patrickwarner/bannerrotator/internal/api"
	"github.com/patrickwarner/bannerrotator/internal/config"
	"github.com/patrickwarner/bannerrotator/internal/db"
	"github.com/patrickwarner/bannerrotator/internal/geoip"
	"github.com/patrickwarner/bannerrotator/internal/logic"
	"github.com/patrickwarner/bannerrotator/internal/logic/selectors"
	"github.com/patrickwarner/bannerrotator/internal/middleware"
	"github.com/patrickwarner/bannerrotator/internal/observability"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLoggerWithService(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.TempoEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	pg, err := db.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	catalog, err := db.Init(ctx, pg)
	if err != nil {
		return fmt.Errorf("failed to load places: %w", err)
	}
	logger.Info("place catalog loaded", zap.Int("places", catalog.Places()))

	store, err := db.InitRedis(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}
	defer store.Close()

	metricsRegistry := observability.NewPrometheusRegistry()

	var events analytics.EventRecorder
	if cfg.AnalyticsEnabled {
		analyticsSvc, err := analytics.InitClickHouse(cfg.ClickHouseDSN, metricsRegistry)
		if err != nil {
			return fmt.Errorf("failed to connect clickhouse: %w", err)
		}
		defer func() { _ = analyticsSvc.Close() }()
		events = analyticsSvc
	}

	recorder := logic.NewRecorder(pg, events, metricsRegistry, logger)
	// Click places resolve from the cached catalog; counters and clicks go to Postgres.
	recorder.Places = catalog

	if cfg.GeoIPDB != "" {
		geoSvc, err := geoip.Init(cfg.GeoIPDB)
		if err != nil {
			return fmt.Errorf("failed to load geoip db: %w", err)
		}
		defer func() { _ = geoSvc.Close() }()
		recorder.GeoIP = geoSvc
	}

	// Swap WeightedSelector for UniformSelector or a custom Selector to change
	// how banners are chosen.
	selector := selectors.NewWeightedSelector(pg)
	selector.SetLogger(logger)
	selector.SetMetrics(metricsRegistry)

	srvDeps := api.NewServer(logger, selector, pg, catalog, recorder, catalog, metricsRegistry, cfg)

	sessions := &middleware.Sessions{
		Store:   store,
		Config:  cfg.Session,
		Logger:  logger,
		Metrics: metricsRegistry,
	}

	routes := srvDeps.Routes()
	routes.Use(middleware.WithTraceLogger(logger))
	routes.Use(sessions.Middleware)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.PathPrefix("/").Handler(routes)

	addr := ":" + cfg.Port

	srv := &http.Server{
		Addr:         addr,
		Handler:      otelhttp.NewHandler(r, cfg.ServiceName),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Banner rotator running", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	if cfg.ReloadInterval > 0 {
		ticker := time.NewTicker(cfg.ReloadInterval)
		go func() {
			for {
				select {
				case <-ticker.C:
					if err := srvDeps.Reload(ctx); err != nil {
						logger.Error("auto reload", zap.Error(err))
					}
				case <-ctx.Done():
					ticker.Stop()
					return
				}
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
