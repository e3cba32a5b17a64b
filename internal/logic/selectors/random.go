package selectors

import (
	"context"
	"math/rand"
	"time"

	filters "github.com/patrickwarner/bannerrotator/internal/logic/filters"
	"github.com/patrickwarner/bannerrotator/internal/models"
)

// UniformSelector is a simple alternative that ignores weights and returns
// any eligible banner with equal probability.
type UniformSelector struct {
	Store models.BannerStore
}

var _ Selector = UniformSelector{}

// SelectBanner picks a random eligible banner for the place.
func (u UniformSelector) SelectBanner(ctx context.Context, placeID int) (*models.Banner, error) {
	banners, err := filters.EligibleBanners(ctx, u.Store, placeID, time.Now())
	if err != nil {
		return nil, err
	}
	if len(banners) == 0 {
		return nil, ErrNotFound
	}
	b := banners[rand.Intn(len(banners))]
	return &b, nil
}
