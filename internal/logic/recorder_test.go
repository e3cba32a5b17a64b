package logic

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/patrickwarner/bannerrotator/internal/analytics"
	"github.com/patrickwarner/bannerrotator/internal/models"
	"github.com/patrickwarner/bannerrotator/internal/observability"
)

var fixedNow = time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

func newTestRecorder(t *testing.T, banners ...models.Banner) (*Recorder, *models.InMemoryStore, *analytics.MockAnalytics, *observability.MockMetricsRegistry) {
	t.Helper()
	store := models.NewTestStore([]models.Place{
		{ID: 1, Name: "Header", Slug: "header"},
		{ID: 2, Name: "Footer", Slug: "footer"},
	}, banners)
	events := analytics.NewMockAnalytics()
	metrics := observability.NewMockMetricsRegistry()
	r := NewRecorder(store, events, metrics, zaptest.NewLogger(t))
	r.Now = func() time.Time { return fixedNow }
	return r, store, events, metrics
}

func TestRecordView_IncrementsAndUpdatesSession(t *testing.T) {
	r, store, events, metrics := newTestRecorder(t, models.Banner{ID: 7, Views: 3, PlaceIDs: []int{1}})
	banner, err := store.GetBanner(context.Background(), 7)
	require.NoError(t, err)

	session := models.NewSessionState("abc")
	require.NoError(t, r.RecordView(context.Background(), banner, session))

	stored, _ := store.GetBanner(context.Background(), 7)
	assert.Equal(t, 4, stored.Views)
	assert.Equal(t, fixedNow, session.LastViewByDay[7])
	assert.NotNil(t, session.PermanentlyViewed)
	assert.Empty(t, session.PermanentlyViewed)
	assert.True(t, session.Dirty())

	require.Len(t, events.Events(), 1)
	ev := events.Events()[0]
	assert.Equal(t, analytics.EventView, ev.Type)
	assert.Equal(t, "abc", ev.SessionID)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, 1, metrics.Count(analytics.EventView))
}

func TestRecordView_WithoutSession(t *testing.T) {
	r, store, _, _ := newTestRecorder(t, models.Banner{ID: 1})
	b, _ := store.GetBanner(context.Background(), 1)

	require.NoError(t, r.RecordView(context.Background(), b, nil))

	stored, _ := store.GetBanner(context.Background(), 1)
	assert.Equal(t, 1, stored.Views)
}

func TestRecordView_Concurrent(t *testing.T) {
	r, store, _, _ := newTestRecorder(t, models.Banner{ID: 5, Views: 10})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := store.GetBanner(context.Background(), 5)
			if err != nil {
				t.Error(err)
				return
			}
			if err := r.RecordView(context.Background(), b, nil); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	stored, _ := store.GetBanner(context.Background(), 5)
	assert.Equal(t, 12, stored.Views)
}

func TestRecordView_MissingBanner(t *testing.T) {
	r, _, _, _ := newTestRecorder(t)
	err := r.RecordView(context.Background(), &models.Banner{ID: 99}, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, r.RecordView(context.Background(), nil, nil), ErrNilBanner)
}

func TestRecordView_AnalyticsFailureIsNotFatal(t *testing.T) {
	r, store, events, _ := newTestRecorder(t, models.Banner{ID: 1})
	events.Err = errors.New("clickhouse down")
	b, _ := store.GetBanner(context.Background(), 1)

	require.NoError(t, r.RecordView(context.Background(), b, nil))
	stored, _ := store.GetBanner(context.Background(), 1)
	assert.Equal(t, 1, stored.Views)
}

func TestRecordClick_ResolvesPlaceByID(t *testing.T) {
	r, store, events, _ := newTestRecorder(t, models.Banner{ID: 3, Clicks: 1})
	b, _ := store.GetBanner(context.Background(), 3)

	click, err := r.RecordClick(context.Background(), b, models.ClickContext{
		PlaceID:   models.IntPtr(2),
		PlaceSlug: "header",
		IP:        "192.0.2.1",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
		Referrer:  "https://example.com/page",
		UserID:    models.IntPtr(42),
	})
	require.NoError(t, err)

	require.NotNil(t, click.PlaceID)
	assert.Equal(t, 2, *click.PlaceID)
	assert.Equal(t, 42, *click.UserID)
	assert.Equal(t, fixedNow, click.Datetime)
	assert.NotZero(t, click.ID)

	stored, _ := store.GetBanner(context.Background(), 3)
	assert.Equal(t, 2, stored.Clicks)
	assert.Len(t, store.Clicks(), 1)

	require.Len(t, events.Events(), 1)
	assert.Equal(t, "mobile", events.Events()[0].DeviceType)
}

func TestRecordClick_FallsBackToSlug(t *testing.T) {
	r, store, _, _ := newTestRecorder(t, models.Banner{ID: 3})
	b, _ := store.GetBanner(context.Background(), 3)

	click, err := r.RecordClick(context.Background(), b, models.ClickContext{
		PlaceID:   models.IntPtr(404),
		PlaceSlug: "footer",
	})
	require.NoError(t, err)
	require.NotNil(t, click.PlaceID)
	assert.Equal(t, 2, *click.PlaceID)
}

func TestRecordClick_UnresolvablePlace(t *testing.T) {
	r, store, _, _ := newTestRecorder(t, models.Banner{ID: 3})
	b, _ := store.GetBanner(context.Background(), 3)

	click, err := r.RecordClick(context.Background(), b, models.ClickContext{PlaceSlug: "sidebar"})
	require.NoError(t, err)
	assert.Nil(t, click.PlaceID)
	assert.Nil(t, click.UserID)

	stored, _ := store.GetBanner(context.Background(), 3)
	assert.Equal(t, 1, stored.Clicks)
}

func TestRecordClick_TruncatesUserAgent(t *testing.T) {
	r, store, _, _ := newTestRecorder(t, models.Banner{ID: 3})
	b, _ := store.GetBanner(context.Background(), 3)

	click, err := r.RecordClick(context.Background(), b, models.ClickContext{
		UserAgent: strings.Repeat("x", 1500),
	})
	require.NoError(t, err)
	assert.Len(t, click.UserAgent, models.MaxUserAgentLength)
}

func TestRecordClick_IgnoresCaps(t *testing.T) {
	r, store, _, _ := newTestRecorder(t, models.Banner{ID: 3, Clicks: 5, MaxClicks: 5})
	b, _ := store.GetBanner(context.Background(), 3)

	_, err := r.RecordClick(context.Background(), b, models.ClickContext{})
	require.NoError(t, err)
	stored, _ := store.GetBanner(context.Background(), 3)
	assert.Equal(t, 6, stored.Clicks)
}

type failingClickStore struct{}

func (failingClickStore) InsertClick(context.Context, *models.Click) error {
	return errors.New("disk full")
}

func TestRecordClick_StorageErrorPropagates(t *testing.T) {
	r, store, _, _ := newTestRecorder(t, models.Banner{ID: 3})
	r.Clicks = failingClickStore{}
	b, _ := store.GetBanner(context.Background(), 3)

	_, err := r.RecordClick(context.Background(), b, models.ClickContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestDescribeUserAgent(t *testing.T) {
	info := DescribeUserAgent("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	assert.True(t, info.IsBot)

	info = DescribeUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Equal(t, "desktop", info.DeviceType)
	assert.False(t, info.IsBot)
}

func TestSelectionTrace(t *testing.T) {
	var tr SelectionTrace
	tr.AddStep("eligible", []models.Banner{{ID: 1, Weight: 5}, {ID: 2, Weight: 1}})
	tr.AddStepWithDetails("pick", []models.Banner{{ID: 2, Weight: 1}}, map[string]string{"r": "0.9"})

	step, ok := tr.Stage("eligible")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, step.BannerIDs)
	assert.Equal(t, []int{5, 1}, step.Weights)

	_, ok = tr.Stage("missing")
	assert.False(t, ok)

	var nilTrace *SelectionTrace
	nilTrace.AddStep("noop", nil)
}
