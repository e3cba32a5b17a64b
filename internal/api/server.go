package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/patrickwarner/bannerrotator/internal/config"
	"github.com/patrickwarner/bannerrotator/internal/logic"
	"github.com/patrickwarner/bannerrotator/internal/logic/selectors"
	"github.com/patrickwarner/bannerrotator/internal/models"
	"github.com/patrickwarner/bannerrotator/internal/observability"
)

var tracer = otel.Tracer("bannerrotator")

// Reloader refreshes cached reference data. *db.DB implements it.
type Reloader interface {
	Reload(ctx context.Context) error
}

// tracingSelector is implemented by selectors that can explain a choice.
type tracingSelector interface {
	SelectBannerWithTrace(ctx context.Context, placeID int, trace *logic.SelectionTrace) (*models.Banner, error)
}

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger   *zap.Logger
	Selector selectors.Selector
	Banners  models.BannerStore
	Places   models.PlaceStore
	Recorder *logic.Recorder
	Catalog  Reloader
	Metrics  observability.MetricsRegistry
	Config   config.Config

	DebugTrace bool
	reloadMu   sync.Mutex

	// Now is the clock used for session suppression.
	Now func() time.Time
}

// NewServer constructs a Server. When selector is nil a WeightedSelector
// over banners is used.
func NewServer(logger *zap.Logger, selector selectors.Selector, banners models.BannerStore, places models.PlaceStore,
	recorder *logic.Recorder, catalog Reloader, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	if selector == nil {
		ws := selectors.NewWeightedSelector(banners)
		ws.SetLogger(logger)
		ws.SetMetrics(metrics)
		selector = ws
	}
	return &Server{
		Logger:     logger,
		Selector:   selector,
		Banners:    banners,
		Places:     places,
		Recorder:   recorder,
		Catalog:    catalog,
		Metrics:    metrics,
		Config:     cfg,
		DebugTrace: cfg.DebugTrace,
		Now:        time.Now,
	}
}

// Routes registers the public endpoints on a new router.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/banner", s.BannerHandler).Methods("GET")
	r.HandleFunc("/click/{id:[0-9]+}", s.ClickHandler).Methods("GET")
	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
	r.HandleFunc("/reload", s.ReloadHandler).Methods("POST")
	return r
}

// Reload refreshes the place catalog.
func (s *Server) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.Catalog == nil {
		return fmt.Errorf("place catalog unavailable")
	}
	if err := s.Catalog.Reload(ctx); err != nil {
		return fmt.Errorf("reload places: %w", err)
	}
	return nil
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// observe records request count and latency for an endpoint.
func (s *Server) observe(endpoint, method string, status int, start time.Time) {
	s.Metrics.IncrementRequests(endpoint, method, fmt.Sprintf("%d", status))
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}

// withTimeout bounds handler work by the configured request timeout.
func (s *Server) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Config.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.Config.RequestTimeout)
	}
	return context.WithCancel(ctx)
}
