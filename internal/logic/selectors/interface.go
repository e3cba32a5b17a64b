package selectors

import (
	"context"
	"errors"

	"github.com/patrickwarner/bannerrotator/internal/models"
)

var (
	// ErrNotFound is returned when no banner is eligible for the placement.
	ErrNotFound = errors.New("no eligible banner for place")
	// ErrInvalidState is returned when eligible banners exist but their
	// weights do not sum to a positive total.
	ErrInvalidState = errors.New("eligible banners have no positive weight")
)

// Selector defines a pluggable interface for banner selection.
type Selector interface {
	SelectBanner(ctx context.Context, placeID int) (*models.Banner, error)
}
