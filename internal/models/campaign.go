package models

import "time"

// Campaign groups banners for administration. Selection ignores it.
type Campaign struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
