package selectors

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	logic "github.com/patrickwarner/bannerrotator/internal/logic"
	"github.com/patrickwarner/bannerrotator/internal/models"
	"github.com/patrickwarner/bannerrotator/internal/observability"
)

func activeBanner(id, weight int, places ...int) models.Banner {
	if len(places) == 0 {
		places = []int{1}
	}
	return models.Banner{ID: id, Weight: weight, IsActive: true, PlaceIDs: places}
}

func newTestSelector(t *testing.T, banners ...models.Banner) (*WeightedSelector, *observability.MockMetricsRegistry) {
	t.Helper()
	store := models.NewTestStore([]models.Place{{ID: 1, Slug: "header"}, {ID: 2, Slug: "footer"}}, banners)
	metrics := observability.NewMockMetricsRegistry()
	s := NewWeightedSelector(store)
	s.SetLogger(zaptest.NewLogger(t))
	s.SetMetrics(metrics)
	s.SetRandSource(rand.NewSource(42))
	return s, metrics
}

func TestSelectBanner_ReturnsEligibleMember(t *testing.T) {
	inactive := activeBanner(3, 10)
	inactive.IsActive = false
	s, metrics := newTestSelector(t, activeBanner(1, 5), activeBanner(2, 5), inactive, activeBanner(4, 5, 2))

	for i := 0; i < 200; i++ {
		b, err := s.SelectBanner(context.Background(), 1)
		require.NoError(t, err)
		assert.Contains(t, []int{1, 2}, b.ID)
	}
	assert.Equal(t, 200, metrics.SelectionCount(observability.SelectionResultSelected))
}

func TestSelectBanner_EqualWeightsSplitEvenly(t *testing.T) {
	s, _ := newTestSelector(t, activeBanner(1, 5), activeBanner(2, 5))

	const n = 10000
	counts := map[int]int{}
	for i := 0; i < n; i++ {
		b, err := s.SelectBanner(context.Background(), 1)
		require.NoError(t, err)
		counts[b.ID]++
	}
	share := float64(counts[1]) / n
	assert.InDelta(t, 0.5, share, 0.03)
}

func TestSelectBanner_RespectsWeightRatio(t *testing.T) {
	s, _ := newTestSelector(t, activeBanner(1, 10), activeBanner(2, 1))

	const n = 11000
	counts := map[int]int{}
	for i := 0; i < n; i++ {
		b, err := s.SelectBanner(context.Background(), 1)
		require.NoError(t, err)
		counts[b.ID]++
	}
	assert.InDelta(t, 10.0/11.0, float64(counts[1])/n, 0.02)
}

func TestSelectBanner_NotFound(t *testing.T) {
	expired := activeBanner(1, 5)
	past := time.Now().Add(-time.Hour)
	expired.FinishAt = &past
	capped := activeBanner(2, 5)
	capped.MaxViews, capped.Views = 10, 10

	s, metrics := newTestSelector(t, expired, capped)

	_, err := s.SelectBanner(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, metrics.SelectionCount(observability.SelectionResultNotFound))

	_, err = s.SelectBanner(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSelectBanner_ZeroWeights(t *testing.T) {
	s, metrics := newTestSelector(t, activeBanner(1, 0), activeBanner(2, 0))

	_, err := s.SelectBanner(context.Background(), 1)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 1, metrics.SelectionCount(observability.SelectionResultInvalidState))
}

func TestSelectBanner_UsesClock(t *testing.T) {
	start := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	future := activeBanner(1, 5)
	future.StartAt = &start

	s, _ := newTestSelector(t, future)
	_, err := s.SelectBanner(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	s.SetClock(func() time.Time { return start })
	b, err := s.SelectBanner(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, b.ID)
}

func TestSelectBannerWithTrace(t *testing.T) {
	s, _ := newTestSelector(t, activeBanner(2, 5), activeBanner(1, 3))

	var trace logic.SelectionTrace
	b, err := s.SelectBannerWithTrace(context.Background(), 1, &trace)
	require.NoError(t, err)

	eligible, ok := trace.Stage("eligible")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, eligible.BannerIDs)

	pick, ok := trace.Stage("pick")
	require.True(t, ok)
	assert.Equal(t, []int{b.ID}, pick.BannerIDs)
	assert.NotEmpty(t, pick.Details["draw"])
}

type errStore struct{ models.BannerStore }

func (errStore) EligibleBanners(context.Context, models.EligibilityQuery) ([]models.Banner, error) {
	return nil, errors.New("db offline")
}

func TestSelectBanner_StoreError(t *testing.T) {
	s := NewWeightedSelector(errStore{})
	_, err := s.SelectBanner(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUniformSelector(t *testing.T) {
	store := models.NewTestStore(nil, []models.Banner{activeBanner(1, 1), activeBanner(2, 10)})
	u := UniformSelector{Store: store}

	b, err := u.SelectBanner(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, []int{1, 2}, b.ID)

	_, err = u.SelectBanner(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
}
