package models

import "time"

// SessionState is the per-visitor viewing history the rotator reads and
// updates. It is owned by the session layer; the rotator only mutates the two
// mappings and flags the state as dirty so the owner knows to persist it.
type SessionState struct {
	ID string `json:"-"`

	// LastViewByDay maps a banner ID to the time it was last shown.
	LastViewByDay map[int]time.Time
	// PermanentlyViewed holds banners that must never be shown to this
	// session again. Nil until the first recorded view creates it.
	PermanentlyViewed map[int]struct{}

	dirty bool
}

// NewSessionState returns an empty state for the given session ID.
func NewSessionState(id string) *SessionState {
	return &SessionState{ID: id}
}

// MarkDirty flags the state as modified.
func (s *SessionState) MarkDirty() {
	if s != nil {
		s.dirty = true
	}
}

// Dirty reports whether the state changed since it was loaded or last saved.
func (s *SessionState) Dirty() bool {
	return s != nil && s.dirty
}

// ClearDirty resets the modified flag, typically after a successful save.
func (s *SessionState) ClearDirty() {
	if s != nil {
		s.dirty = false
	}
}

// IsPermanentlyViewed reports whether bannerID is in the permanently viewed set.
func (s *SessionState) IsPermanentlyViewed(bannerID int) bool {
	if s == nil || s.PermanentlyViewed == nil {
		return false
	}
	_, ok := s.PermanentlyViewed[bannerID]
	return ok
}
