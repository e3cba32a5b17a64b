package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// MaxUserAgentLength bounds the user agent stored with a click.
const MaxUserAgentLength = 1000

// Click is an immutable record of a single banner click.
type Click struct {
	ID        int64     `json:"id"`
	BannerID  int       `json:"banner_id"`
	PlaceID   *int      `json:"place_id,omitempty"` // Nil when the click context named no known place.
	UserID    *int      `json:"user_id,omitempty"`  // Nil for anonymous visitors.
	Datetime  time.Time `json:"datetime"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
}

// ClickContext carries the request details a click is recorded with. PlaceID
// takes precedence over PlaceSlug when both are given.
type ClickContext struct {
	UserID    *int
	IP        string
	UserAgent string
	Referrer  string
	PlaceID   *int
	PlaceSlug string
}

// TruncateUserAgent cuts ua to MaxUserAgentLength bytes without splitting a rune.
func TruncateUserAgent(ua string) string {
	if len(ua) <= MaxUserAgentLength {
		return ua
	}
	return strings.ToValidUTF8(ua[:MaxUserAgentLength], "")
}

// CreativeFileName returns the storage path for an uploaded creative. The
// base name is hashed with the upload time so repeated uploads never collide;
// the original extension is kept.
func CreativeFileName(original string, now time.Time) string {
	ext := ""
	if i := strings.LastIndex(original, "."); i >= 0 && i < len(original)-1 {
		ext = original[i:]
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s-%d", original, now.UnixNano())))
	return "banner/" + hex.EncodeToString(sum[:]) + ext
}
