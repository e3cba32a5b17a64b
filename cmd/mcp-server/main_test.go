package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/patrickwarner/bannerrotator/internal/models"
)

func newTestTools(t *testing.T) (*RotatorTools, *models.InMemoryStore) {
	t.Helper()
	store := models.NewTestStore([]models.Place{
		{ID: 1, Name: "Header", Slug: "header", Width: models.IntPtr(728), Height: models.IntPtr(90)},
		{ID: 2, Name: "Footer", Slug: "footer"},
	}, []models.Banner{
		{ID: 1, Name: "heavy", Weight: 9, IsActive: true, PlaceIDs: []int{1}, Views: 200, Clicks: 5},
		{ID: 2, Name: "light", Weight: 1, IsActive: true, PlaceIDs: []int{1}, Views: 10, MaxViews: 100},
		{ID: 3, Name: "off", Weight: 5, IsActive: false, PlaceIDs: []int{1, 2}},
	})
	return &RotatorTools{
		banners: store,
		places:  store,
		logger:  zaptest.NewLogger(t),
		now:     func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) },
		seed:    42,
	}, store
}

func TestListPlaces(t *testing.T) {
	tools, _ := newTestTools(t)

	_, out, err := tools.ListPlaces(context.Background(), nil, ListPlacesInput{})
	require.NoError(t, err)
	require.Len(t, out.Places, 2)

	assert.Equal(t, PlaceSummary{ID: 1, Name: "Header", Slug: "header", Size: "728x90", EligibleBanners: 2, TotalWeight: 10}, out.Places[0])
	assert.Equal(t, 0, out.Places[1].EligibleBanners)
	assert.Equal(t, 0, out.Places[1].TotalWeight)
}

func TestPreviewSelection_FollowsWeights(t *testing.T) {
	tools, store := newTestTools(t)

	_, out, err := tools.PreviewSelection(context.Background(), nil, PreviewSelectionInput{PlaceID: 1, Draws: 5000})
	require.NoError(t, err)
	assert.Equal(t, 5000, out.Draws)
	require.Len(t, out.Banners, 2)

	heavy, light := out.Banners[0], out.Banners[1]
	assert.Equal(t, "90.00%", heavy.Expected)
	assert.Equal(t, "10.00%", light.Expected)
	assert.Equal(t, 5000, heavy.Picks+light.Picks)
	assert.InDelta(t, 0.9, float64(heavy.Picks)/5000, 0.03)

	b, _ := store.GetBanner(context.Background(), 1)
	assert.Equal(t, 200, b.Views, "preview must not record views")
}

func TestPreviewSelection_DrawLimits(t *testing.T) {
	tools, _ := newTestTools(t)

	_, out, err := tools.PreviewSelection(context.Background(), nil, PreviewSelectionInput{PlaceID: 1})
	require.NoError(t, err)
	assert.Equal(t, defaultDraws, out.Draws)

	_, out, err = tools.PreviewSelection(context.Background(), nil, PreviewSelectionInput{PlaceID: 1, Draws: maxDraws + 1})
	require.NoError(t, err)
	assert.Equal(t, maxDraws, out.Draws)
}

func TestPreviewSelection_EmptyPlace(t *testing.T) {
	tools, _ := newTestTools(t)

	_, _, err := tools.PreviewSelection(context.Background(), nil, PreviewSelectionInput{PlaceID: 2})
	assert.Error(t, err)
}

func TestBannerStats(t *testing.T) {
	tools, _ := newTestTools(t)

	_, out, err := tools.BannerStats(context.Background(), nil, BannerStatsInput{})
	require.NoError(t, err)
	require.Len(t, out.Banners, 3)
	assert.Equal(t, "200", out.Banners[0].Views)
	assert.Equal(t, "2.50%", out.Banners[0].CTR)
	assert.Equal(t, "10 / 100", out.Banners[1].Views)
	assert.Equal(t, "0.00%", out.Banners[2].CTR)

	_, out, err = tools.BannerStats(context.Background(), nil, BannerStatsInput{BannerID: 2})
	require.NoError(t, err)
	require.Len(t, out.Banners, 1)
	assert.Equal(t, "light", out.Banners[0].Name)

	_, _, err = tools.BannerStats(context.Background(), nil, BannerStatsInput{BannerID: 99})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestShare(t *testing.T) {
	assert.Equal(t, "0.00%", share(1, 0))
	assert.Equal(t, "33.33%", share(1, 3))
	assert.Equal(t, "100.00%", share(4, 4))
}
