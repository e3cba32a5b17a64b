package filters

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/patrickwarner/bannerrotator/internal/models"
)

// DefaultClauses is the full set of conditions a banner must meet to be shown.
var DefaultClauses = []models.Clause{
	models.ClauseActive,
	models.ClausePlace,
	models.ClauseStarted,
	models.ClauseNotFinished,
	models.ClauseViewsUnderCap,
	models.ClauseClicksUnderCap,
}

// Eligibility builds the query for banners that may be shown in placeID at
// now. A zero now means the current time.
func Eligibility(placeID int, now time.Time) models.EligibilityQuery {
	if now.IsZero() {
		now = time.Now()
	}
	clauses := make([]models.Clause, len(DefaultClauses))
	copy(clauses, DefaultClauses)
	return models.EligibilityQuery{PlaceID: placeID, Now: now, Clauses: clauses}
}

// IsEligible reports whether b may be shown in placeID at now.
func IsEligible(b *models.Banner, placeID int, now time.Time) bool {
	return Eligibility(placeID, now).Matches(b)
}

// FilterEligible returns the banners matching q, ordered by ascending ID so
// that the weighted walk is reproducible.
func FilterEligible(banners []models.Banner, q models.EligibilityQuery) []models.Banner {
	var out []models.Banner
	for i := range banners {
		if q.Matches(&banners[i]) {
			out = append(out, banners[i])
		}
	}
	sortByID(out)
	return out
}

// EligibleBanners fetches the candidate set for a placement from the store.
// An empty result is not an error.
func EligibleBanners(ctx context.Context, store models.BannerStore, placeID int, now time.Time) ([]models.Banner, error) {
	q := Eligibility(placeID, now)
	banners, err := store.EligibleBanners(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("eligible banners for place %d: %w", placeID, err)
	}
	// Stores are expected to order by ID already; enforce it for the picker.
	sortByID(banners)
	return banners, nil
}

func sortByID(banners []models.Banner) {
	sort.SliceStable(banners, func(i, j int) bool { return banners[i].ID < banners[j].ID })
}
