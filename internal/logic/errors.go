package logic

import "errors"

// ErrNilBanner is returned when a recorder operation receives no banner.
var ErrNilBanner = errors.New("banner is nil")
