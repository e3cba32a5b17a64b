package models

import (
	"fmt"
	"strings"
	"time"
)

// URL target modes for the banner destination link.
const (
	URLTargetSelf  = "_self"
	URLTargetBlank = "_blank"
)

// Weight bounds. A banner with weight 10 is shown ten times more often than
// one with weight 1.
const (
	MinWeight     = 1
	MaxWeight     = 10
	DefaultWeight = 5
)

// Banner is a single advertising unit that can be rotated through one or more places.
type Banner struct {
	ID         int    `json:"id"`
	CampaignID *int   `json:"campaign_id,omitempty"` // Optional grouping label, not used by selection.
	Name       string `json:"name"`
	Alt        string `json:"alt"`
	URL        string `json:"url"`        // Destination of a click.
	URLTarget  string `json:"url_target"` // URLTargetSelf, URLTargetBlank or empty.

	// Views and Clicks only ever grow; they are changed by the Recorder through
	// relative increments at the store.
	Views  int `json:"views"`
	Clicks int `json:"clicks"`
	// MaxViews and MaxClicks cap delivery. Zero means unlimited.
	MaxViews  int `json:"max_views"`
	MaxClicks int `json:"max_clicks"`

	Weight int    `json:"weight"`
	File   string `json:"file"` // Creative asset reference, e.g. "banner/3f2a....png".

	// StartAt and FinishAt bound the activation window. Both bounds are inclusive
	// and nil means open-ended.
	StartAt  *time.Time `json:"start_at,omitempty"`
	FinishAt *time.Time `json:"finish_at,omitempty"`

	// Timeout is the minimum re-show interval in seconds. Advisory only.
	Timeout int `json:"timeout"`
	// ShowAnyTime disables the once-a-day session suppression for this banner.
	ShowAnyTime bool `json:"show_any_time"`
	IsActive    bool `json:"is_active"`

	PlaceIDs []int `json:"place_ids"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InPlace reports whether the banner is associated with the given place.
func (b *Banner) InPlace(placeID int) bool {
	for _, id := range b.PlaceIDs {
		if id == placeID {
			return true
		}
	}
	return false
}

// IsSWF reports whether the creative file is a flash movie.
func (b *Banner) IsSWF() bool {
	return strings.HasSuffix(strings.ToLower(b.File), "swf")
}

// ViewsString renders the view counter, including the cap when one is set.
func (b *Banner) ViewsString() string {
	return counterString(b.Views, b.MaxViews)
}

// ClicksString renders the click counter, including the cap when one is set.
func (b *Banner) ClicksString() string {
	return counterString(b.Clicks, b.MaxClicks)
}

func counterString(n, max int) string {
	if max > 0 {
		return fmt.Sprintf("%d / %d", n, max)
	}
	return fmt.Sprintf("%d", n)
}
