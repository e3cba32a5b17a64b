package api

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/patrickwarner/bannerrotator/internal/middleware"
	"github.com/patrickwarner/bannerrotator/internal/models"
	"github.com/patrickwarner/bannerrotator/internal/observability"
)

// 1x1 transparent GIF returned when a clicked banner has no destination.
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00,
	0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00,
	0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02,
	0x44, 0x01, 0x00, 0x3b,
}

// ClickHandler handles GET /click/{id}. It records the click and redirects
// to the banner URL, or answers with a tracking pixel when the banner has no
// safe destination.
func (s *Server) ClickHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "ClickHandler",
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", "/click/{id}"),
		))
	defer span.End()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	logger := middleware.LoggerFromRequest(r, s.Logger)

	start := time.Now()
	const endpoint = "click"
	const method = "GET"

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		s.observe(endpoint, method, http.StatusBadRequest, start)
		http.Error(w, "invalid banner id", http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.Int("banner.id", id))

	banner, err := s.Banners.GetBanner(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		s.observe(endpoint, method, http.StatusNotFound, start)
		http.Error(w, "banner not found", http.StatusNotFound)
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "banner lookup failed")
		logger.Error("banner lookup", zap.Int("banner_id", id), zap.Error(err))
		s.observe(endpoint, method, http.StatusInternalServerError, start)
		http.Error(w, "banner lookup failed", http.StatusInternalServerError)
		return
	}

	click, err := s.Recorder.RecordClick(ctx, banner, clickContextFromRequest(r))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record click failed")
		logger.Error("record click", zap.Int("banner_id", id), zap.Error(err))
		s.observe(endpoint, method, http.StatusInternalServerError, start)
		http.Error(w, "record click failed", http.StatusInternalServerError)
		return
	}

	if observability.ShouldSample(observability.GetSamplingRate()) {
		logger.Info("click",
			zap.Int("banner_id", banner.ID),
			zap.Int64("click_id", click.ID),
			zap.Bool("place_resolved", click.PlaceID != nil))
	}

	if dest, ok := safeRedirect(banner.URL); ok {
		logger.Debug("redirecting to banner url", zap.String("url", dest))
		s.observe(endpoint, method, http.StatusFound, start)
		http.Redirect(w, r, dest, http.StatusFound)
		return
	}
	if banner.URL != "" {
		logger.Warn("unsafe banner url", zap.Int("banner_id", banner.ID), zap.String("url", banner.URL))
	}
	s.observe(endpoint, method, http.StatusOK, start)
	s.sendPixelResponse(w)
}

// clickContextFromRequest gathers the visitor details stored with a click.
func clickContextFromRequest(r *http.Request) models.ClickContext {
	q := r.URL.Query()
	cctx := models.ClickContext{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
		PlaceSlug: q.Get("place_slug"),
	}
	if id, err := strconv.Atoi(q.Get("place")); err == nil {
		cctx.PlaceID = &id
	}
	if uid, err := strconv.Atoi(r.Header.Get("X-User-ID")); err == nil {
		cctx.UserID = &uid
	}
	return cctx
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func safeRedirect(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	return u.String(), true
}

// sendPixelResponse sends a 1x1 tracking pixel response
func (s *Server) sendPixelResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pixelGIF)
}
