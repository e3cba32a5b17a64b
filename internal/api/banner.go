package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/patrickwarner/bannerrotator/internal/logic"
	"github.com/patrickwarner/bannerrotator/internal/logic/selectors"
	"github.com/patrickwarner/bannerrotator/internal/middleware"
	"github.com/patrickwarner/bannerrotator/internal/models"
	"github.com/patrickwarner/bannerrotator/internal/observability"
)

var (
	errPlaceRequired = errors.New("place or place_slug required")
	errInvalidPlace  = errors.New("invalid place")
)

// BannerResponse is the JSON body returned for a selected banner.
type BannerResponse struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	Alt       string         `json:"alt"`
	File      string         `json:"file"`
	IsSWF     bool           `json:"is_swf"`
	URLTarget string         `json:"url_target,omitempty"`
	ClickURL  string         `json:"click_url"`
	Place     PlaceResponse  `json:"place"`
	Debug     map[string]any `json:"debug,omitempty"`
}

// PlaceResponse describes the place a banner was selected for.
type PlaceResponse struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
	Size string `json:"size,omitempty"`
}

// resolvePlace looks up the place named by the "place" (ID) or "place_slug"
// query parameter. A nil place with nil error means the place is unknown.
func (s *Server) resolvePlace(ctx context.Context, r *http.Request) (*models.Place, error) {
	q := r.URL.Query()
	if raw := q.Get("place"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w %q", errInvalidPlace, raw)
		}
		return s.Places.FindPlaceByID(ctx, id)
	}
	if slug := q.Get("place_slug"); slug != "" {
		return s.Places.FindPlaceBySlug(ctx, slug)
	}
	return nil, errPlaceRequired
}

// BannerHandler handles GET /banner. It selects a banner for the requested
// place, withholds it when the visitor's session already saw it today,
// records the view and returns the banner as JSON. 204 means nothing to show.
func (s *Server) BannerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "BannerHandler",
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", "/banner"),
		))
	defer span.End()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "banner"
	const method = "GET"

	place, err := s.resolvePlace(ctx, r)
	if err != nil {
		status, msg := http.StatusBadRequest, err.Error()
		if !errors.Is(err, errPlaceRequired) && !errors.Is(err, errInvalidPlace) {
			status, msg = http.StatusInternalServerError, "place lookup failed"
			logger.Error("place lookup", zap.Error(err))
		}
		s.observe(endpoint, method, status, start)
		http.Error(w, msg, status)
		return
	}
	if place == nil {
		s.observe(endpoint, method, http.StatusNotFound, start)
		http.Error(w, "unknown place", http.StatusNotFound)
		return
	}
	span.SetAttributes(attribute.Int("place.id", place.ID))

	var selTrace logic.SelectionTrace
	var banner *models.Banner
	if ts, ok := s.Selector.(tracingSelector); ok && s.DebugTrace {
		banner, err = ts.SelectBannerWithTrace(ctx, place.ID, &selTrace)
	} else {
		banner, err = s.Selector.SelectBanner(ctx, place.ID)
	}
	if errors.Is(err, selectors.ErrNotFound) {
		s.Metrics.IncrementNoBanner()
		s.observe(endpoint, method, http.StatusNoContent, start)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "selection failed")
		logger.Error("banner selection", zap.Int("place_id", place.ID), zap.Error(err))
		s.observe(endpoint, method, http.StatusInternalServerError, start)
		http.Error(w, "selection failed", http.StatusInternalServerError)
		return
	}

	session := middleware.SessionFromContext(ctx)
	if logic.HasBeenViewed(banner, session, s.now()) {
		s.Metrics.IncrementSuppressed()
		s.Metrics.IncrementNoBanner()
		s.observe(endpoint, method, http.StatusNoContent, start)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := s.Recorder.RecordView(ctx, banner, session); err != nil {
		span.RecordError(err)
		logger.Error("record view", zap.Int("banner_id", banner.ID), zap.Error(err))
		s.observe(endpoint, method, http.StatusInternalServerError, start)
		http.Error(w, "record view failed", http.StatusInternalServerError)
		return
	}
	span.SetAttributes(attribute.Int("banner.id", banner.ID))

	resp := BannerResponse{
		ID:        banner.ID,
		Name:      banner.Name,
		Alt:       banner.Alt,
		File:      banner.File,
		IsSWF:     banner.IsSWF(),
		URLTarget: banner.URLTarget,
		ClickURL:  fmt.Sprintf("/click/%d?place=%d", banner.ID, place.ID),
		Place:     PlaceResponse{ID: place.ID, Slug: place.Slug, Size: place.SizeString()},
	}
	if s.DebugTrace {
		resp.Debug = map[string]any{"trace": selTrace}
	}

	if observability.ShouldSample(observability.GetSamplingRate()) {
		logger.Info("banner served",
			zap.Int("banner_id", banner.ID),
			zap.Int("place_id", place.ID))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("encode response", zap.Error(err))
	}
	s.observe(endpoint, method, http.StatusOK, start)
}
