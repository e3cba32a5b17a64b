package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/patrickwarner/bannerrotator/internal/analytics"
	"github.com/patrickwarner/bannerrotator/internal/geoip"
	"github.com/patrickwarner/bannerrotator/internal/models"
	"github.com/patrickwarner/bannerrotator/internal/observability"
)

// Recorder accounts for banner views and clicks. Counter updates are
// delegated to the store as relative increments; analytics events are best
// effort and never fail the operation.
type Recorder struct {
	Banners models.BannerStore
	Places  models.PlaceStore
	Clicks  models.ClickStore

	Analytics analytics.EventRecorder
	GeoIP     *geoip.GeoIP
	Metrics   observability.MetricsRegistry
	Logger    *zap.Logger

	// Now is used for timestamps; tests may replace it.
	Now func() time.Time
}

// NewRecorder builds a Recorder over a store implementing all three store
// interfaces, such as *db.Postgres or *models.InMemoryStore.
func NewRecorder(store interface {
	models.BannerStore
	models.PlaceStore
	models.ClickStore
}, events analytics.EventRecorder, metrics observability.MetricsRegistry, logger *zap.Logger) *Recorder {
	return &Recorder{
		Banners:   store,
		Places:    store,
		Clicks:    store,
		Analytics: events,
		Metrics:   metrics,
		Logger:    logger,
	}
}

func (r *Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Recorder) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.L()
}

// RecordView increments the banner's view counter. When a session is given,
// the view time is stored under the banner ID, the permanently viewed set is
// created if missing and the session is marked dirty.
func (r *Recorder) RecordView(ctx context.Context, banner *models.Banner, session *models.SessionState) error {
	if banner == nil {
		return ErrNilBanner
	}
	if err := r.Banners.IncrementViews(ctx, banner.ID); err != nil {
		return fmt.Errorf("increment views for banner %d: %w", banner.ID, err)
	}
	banner.Views++

	now := r.now()
	sessionID := ""
	if session != nil {
		if session.LastViewByDay == nil {
			session.LastViewByDay = make(map[int]time.Time)
		}
		session.LastViewByDay[banner.ID] = now
		if session.PermanentlyViewed == nil {
			session.PermanentlyViewed = make(map[int]struct{})
		}
		session.MarkDirty()
		sessionID = session.ID
	}

	if r.Metrics != nil {
		r.Metrics.IncrementEvent(analytics.EventView)
	}
	r.emit(ctx, analytics.Event{
		Type:       analytics.EventView,
		Timestamp:  now,
		BannerID:   banner.ID,
		CampaignID: banner.CampaignID,
		SessionID:  sessionID,
	}, ClientInfo{})
	return nil
}

// RecordClick increments the banner's click counter and stores a Click
// record built from cctx. The place is resolved by ID first, then by slug; a
// place that cannot be resolved is stored as nil. Caps are not re-checked.
func (r *Recorder) RecordClick(ctx context.Context, banner *models.Banner, cctx models.ClickContext) (*models.Click, error) {
	if banner == nil {
		return nil, ErrNilBanner
	}
	if err := r.Banners.IncrementClicks(ctx, banner.ID); err != nil {
		return nil, fmt.Errorf("increment clicks for banner %d: %w", banner.ID, err)
	}
	banner.Clicks++

	place, err := r.resolvePlace(ctx, cctx)
	if err != nil {
		return nil, err
	}

	click := &models.Click{
		BannerID:  banner.ID,
		UserID:    cctx.UserID,
		Datetime:  r.now(),
		IP:        cctx.IP,
		UserAgent: models.TruncateUserAgent(cctx.UserAgent),
		Referrer:  cctx.Referrer,
	}
	if place != nil {
		id := place.ID
		click.PlaceID = &id
	}
	if err := r.Clicks.InsertClick(ctx, click); err != nil {
		return nil, fmt.Errorf("insert click for banner %d: %w", banner.ID, err)
	}

	if r.Metrics != nil {
		r.Metrics.IncrementEvent(analytics.EventClick)
	}
	r.emit(ctx, analytics.Event{
		Type:       analytics.EventClick,
		Timestamp:  click.Datetime,
		BannerID:   banner.ID,
		CampaignID: banner.CampaignID,
		PlaceID:    click.PlaceID,
	}, ResolveClient(r.GeoIP, cctx.UserAgent, cctx.IP))
	return click, nil
}

// resolvePlace looks the place up by ID, then by slug. Unknown identifiers
// yield nil without error; store failures are returned.
func (r *Recorder) resolvePlace(ctx context.Context, cctx models.ClickContext) (*models.Place, error) {
	if r.Places == nil {
		return nil, nil
	}
	if cctx.PlaceID != nil {
		p, err := r.Places.FindPlaceByID(ctx, *cctx.PlaceID)
		if err != nil {
			return nil, fmt.Errorf("find place %d: %w", *cctx.PlaceID, err)
		}
		if p != nil {
			return p, nil
		}
	}
	if cctx.PlaceSlug != "" {
		p, err := r.Places.FindPlaceBySlug(ctx, cctx.PlaceSlug)
		if err != nil {
			return nil, fmt.Errorf("find place %q: %w", cctx.PlaceSlug, err)
		}
		return p, nil
	}
	return nil, nil
}

func (r *Recorder) emit(ctx context.Context, ev analytics.Event, client ClientInfo) {
	if r.Analytics == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.DeviceType = client.DeviceType
	ev.Country = client.Country
	ev.IsBot = client.IsBot
	if err := r.Analytics.RecordEvent(ctx, ev); err != nil && !errors.Is(err, analytics.ErrUnavailable) {
		r.logger().Warn("analytics event not recorded",
			zap.String("event_type", ev.Type),
			zap.Int("banner_id", ev.BannerID),
			zap.Error(err))
	}
}
