package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func allClauses() []Clause {
	return []Clause{ClauseActive, ClausePlace, ClauseStarted, ClauseNotFinished, ClauseViewsUnderCap, ClauseClicksUnderCap}
}

func TestEligibilityQueryMatches(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	q := EligibilityQuery{PlaceID: 1, Now: now, Clauses: allClauses()}

	base := func() Banner {
		return Banner{ID: 1, IsActive: true, Weight: 5, PlaceIDs: []int{1}}
	}

	tests := []struct {
		name   string
		mutate func(b *Banner)
		want   bool
	}{
		{"fully eligible", func(b *Banner) {}, true},
		{"inactive", func(b *Banner) { b.IsActive = false }, false},
		{"other place", func(b *Banner) { b.PlaceIDs = []int{2} }, false},
		{"start in future", func(b *Banner) { b.StartAt = &future }, false},
		{"start now is inclusive", func(b *Banner) { b.StartAt = &now }, true},
		{"finished", func(b *Banner) { b.FinishAt = &past }, false},
		{"finish now is inclusive", func(b *Banner) { b.FinishAt = &now }, true},
		{"views at cap", func(b *Banner) { b.MaxViews, b.Views = 5, 5 }, false},
		{"views under cap", func(b *Banner) { b.MaxViews, b.Views = 5, 4 }, true},
		{"views unlimited", func(b *Banner) { b.Views = 1_000_000 }, true},
		{"clicks at cap", func(b *Banner) { b.MaxClicks, b.Clicks = 2, 3 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := base()
			tt.mutate(&b)
			assert.Equal(t, tt.want, q.Matches(&b))
		})
	}
}

func TestEligibilityQueryUnknownClause(t *testing.T) {
	q := EligibilityQuery{Clauses: []Clause{Clause(99)}}
	assert.False(t, q.Matches(&Banner{IsActive: true}))
	assert.Equal(t, "unknown", Clause(99).String())
	assert.Equal(t, "views_under_cap", ClauseViewsUnderCap.String())
}
