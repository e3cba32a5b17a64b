package models

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when an entity is not found in the data store
var ErrNotFound = errors.New("entity not found")

// BannerStore provides the banner reads and counter writes the rotator needs.
// Increments must be relative updates performed by the store itself so that
// concurrent viewers never lose an update.
type BannerStore interface {
	// EligibleBanners returns the banners matching q ordered by ascending ID.
	EligibleBanners(ctx context.Context, q EligibilityQuery) ([]Banner, error)
	// WeightSum returns the total weight of the banners matching q.
	WeightSum(ctx context.Context, q EligibilityQuery) (int, error)
	GetBanner(ctx context.Context, id int) (*Banner, error)
	ListBanners(ctx context.Context) ([]Banner, error)

	IncrementViews(ctx context.Context, id int) error
	IncrementClicks(ctx context.Context, id int) error
}

// PlaceStore looks up places. A missing place yields (nil, nil).
type PlaceStore interface {
	FindPlaceByID(ctx context.Context, id int) (*Place, error)
	FindPlaceBySlug(ctx context.Context, slug string) (*Place, error)
}

// ClickStore persists click records. InsertClick sets the ID on success.
type ClickStore interface {
	InsertClick(ctx context.Context, c *Click) error
}

// InMemoryStore implements BannerStore, PlaceStore and ClickStore in process
// memory. It backs tests and single-node development setups.
type InMemoryStore struct {
	mu        sync.RWMutex
	banners   map[int]*Banner
	places    map[int]*Place
	slugs     map[string]int
	campaigns map[int]Campaign
	clicks    []Click
	nextClick int64
}

var (
	_ BannerStore = (*InMemoryStore)(nil)
	_ PlaceStore  = (*InMemoryStore)(nil)
	_ ClickStore  = (*InMemoryStore)(nil)
)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		banners:   make(map[int]*Banner),
		places:    make(map[int]*Place),
		slugs:     make(map[string]int),
		campaigns: make(map[int]Campaign),
	}
}

// SetBanners replaces all banners.
func (s *InMemoryStore) SetBanners(banners []Banner) {
	idx := make(map[int]*Banner, len(banners))
	for i := range banners {
		b := banners[i]
		b.PlaceIDs = append([]int(nil), b.PlaceIDs...)
		idx[b.ID] = &b
	}
	s.mu.Lock()
	s.banners = idx
	s.mu.Unlock()
}

// SetPlaces replaces all places and rebuilds the slug index.
func (s *InMemoryStore) SetPlaces(places []Place) {
	idx := make(map[int]*Place, len(places))
	slugs := make(map[string]int, len(places))
	for i := range places {
		p := places[i]
		idx[p.ID] = &p
		slugs[p.Slug] = p.ID
	}
	s.mu.Lock()
	s.places = idx
	s.slugs = slugs
	s.mu.Unlock()
}

// SetCampaigns replaces all campaigns.
func (s *InMemoryStore) SetCampaigns(campaigns []Campaign) {
	idx := make(map[int]Campaign, len(campaigns))
	for _, c := range campaigns {
		idx[c.ID] = c
	}
	s.mu.Lock()
	s.campaigns = idx
	s.mu.Unlock()
}

// GetCampaign returns the campaign with the given ID or nil.
func (s *InMemoryStore) GetCampaign(id int) *Campaign {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.campaigns[id]; ok {
		return &c
	}
	return nil
}

// EligibleBanners returns copies of the banners matching q, ordered by ID.
func (s *InMemoryStore) EligibleBanners(ctx context.Context, q EligibilityQuery) ([]Banner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []Banner
	for _, b := range s.banners {
		if q.Matches(b) {
			out = append(out, copyBanner(b))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// WeightSum totals the weight of the banners matching q.
func (s *InMemoryStore) WeightSum(ctx context.Context, q EligibilityQuery) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := 0
	for _, b := range s.banners {
		if q.Matches(b) {
			sum += b.Weight
		}
	}
	return sum, nil
}

// GetBanner returns a copy of the banner or ErrNotFound.
func (s *InMemoryStore) GetBanner(ctx context.Context, id int) (*Banner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.banners[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := copyBanner(b)
	return &cp, nil
}

// ListBanners returns copies of all banners ordered by ID.
func (s *InMemoryStore) ListBanners(ctx context.Context) ([]Banner, error) {
	s.mu.RLock()
	out := make([]Banner, 0, len(s.banners))
	for _, b := range s.banners {
		out = append(out, copyBanner(b))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// IncrementViews adds one to the banner's view counter.
func (s *InMemoryStore) IncrementViews(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.banners[id]
	if !ok {
		return ErrNotFound
	}
	b.Views++
	return nil
}

// IncrementClicks adds one to the banner's click counter.
func (s *InMemoryStore) IncrementClicks(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.banners[id]
	if !ok {
		return ErrNotFound
	}
	b.Clicks++
	return nil
}

// FindPlaceByID returns the place or nil when it does not exist.
func (s *InMemoryStore) FindPlaceByID(ctx context.Context, id int) (*Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.places[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

// FindPlaceBySlug returns the place or nil when no place has the slug.
func (s *InMemoryStore) FindPlaceBySlug(ctx context.Context, slug string) (*Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.slugs[strings.TrimSpace(slug)]
	if !ok {
		return nil, nil
	}
	cp := *s.places[id]
	return &cp, nil
}

// ListPlaces returns all places ordered by ID.
func (s *InMemoryStore) ListPlaces(ctx context.Context) ([]Place, error) {
	s.mu.RLock()
	out := make([]Place, 0, len(s.places))
	for _, p := range s.places {
		out = append(out, *p)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InsertClick appends the click and assigns it an ID.
func (s *InMemoryStore) InsertClick(ctx context.Context, c *Click) error {
	if c.Datetime.IsZero() {
		c.Datetime = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextClick++
	c.ID = s.nextClick
	s.clicks = append(s.clicks, *c)
	return nil
}

// Clicks returns a copy of the recorded clicks in insertion order.
func (s *InMemoryStore) Clicks() []Click {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Click, len(s.clicks))
	copy(out, s.clicks)
	return out
}

func copyBanner(b *Banner) Banner {
	cp := *b
	cp.PlaceIDs = append([]int(nil), b.PlaceIDs...)
	return cp
}
