package logic

import (
	"time"

	"github.com/patrickwarner/bannerrotator/internal/models"
)

// HasBeenViewed reports whether banner should be withheld from the session.
//
// A permanently viewed banner is always withheld. Otherwise a banner flagged
// ShowAnyTime, or a request without a session, is never withheld. A banner
// last viewed on the current day of month is withheld; an entry from any
// other day is stale and is removed, marking the session dirty.
func HasBeenViewed(banner *models.Banner, session *models.SessionState, now time.Time) bool {
	if banner == nil {
		return false
	}
	if session.IsPermanentlyViewed(banner.ID) {
		return true
	}
	if session == nil || banner.ShowAnyTime {
		return false
	}
	last, ok := session.LastViewByDay[banner.ID]
	if !ok {
		return false
	}
	if now.IsZero() {
		now = time.Now()
	}
	// Only the day of month is compared, so a view exactly one month
	// earlier still counts as today.
	if last.Day() != now.Day() {
		delete(session.LastViewByDay, banner.ID)
		session.MarkDirty()
		return false
	}
	return true
}
