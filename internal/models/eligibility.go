package models

import "time"

// Clause identifies one of the conditions a banner must satisfy to be a
// selection candidate. Clauses are combined as a conjunction.
type Clause int

const (
	// ClauseActive requires the banner's master switch to be on.
	ClauseActive Clause = iota + 1
	// ClausePlace requires the banner to be associated with the query place.
	ClausePlace
	// ClauseStarted requires StartAt to be unset or not after Now.
	ClauseStarted
	// ClauseNotFinished requires FinishAt to be unset or not before Now.
	ClauseNotFinished
	// ClauseViewsUnderCap requires MaxViews to be 0 or Views below it.
	ClauseViewsUnderCap
	// ClauseClicksUnderCap requires MaxClicks to be 0 or Clicks below it.
	ClauseClicksUnderCap
)

var clauseNames = map[Clause]string{
	ClauseActive:         "active",
	ClausePlace:          "place",
	ClauseStarted:        "started",
	ClauseNotFinished:    "not_finished",
	ClauseViewsUnderCap:  "views_under_cap",
	ClauseClicksUnderCap: "clicks_under_cap",
}

func (c Clause) String() string {
	if n, ok := clauseNames[c]; ok {
		return n
	}
	return "unknown"
}

// EligibilityQuery describes which banners may be shown in a place at a given
// moment. It is storage agnostic: Matches evaluates it in memory and SQL
// stores translate each clause into a WHERE condition.
type EligibilityQuery struct {
	PlaceID int
	Now     time.Time
	Clauses []Clause
}

// Matches reports whether b satisfies every clause of the query.
func (q EligibilityQuery) Matches(b *Banner) bool {
	if b == nil {
		return false
	}
	for _, c := range q.Clauses {
		if !q.matchClause(c, b) {
			return false
		}
	}
	return true
}

func (q EligibilityQuery) matchClause(c Clause, b *Banner) bool {
	switch c {
	case ClauseActive:
		return b.IsActive
	case ClausePlace:
		return b.InPlace(q.PlaceID)
	case ClauseStarted:
		return b.StartAt == nil || !b.StartAt.After(q.Now)
	case ClauseNotFinished:
		return b.FinishAt == nil || !b.FinishAt.Before(q.Now)
	case ClauseViewsUnderCap:
		return b.MaxViews == 0 || b.Views < b.MaxViews
	case ClauseClicksUnderCap:
		return b.MaxClicks == 0 || b.Clicks < b.MaxClicks
	default:
		return false
	}
}
