package db

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/patrickwarner/bannerrotator/internal/models"
)

// PlaceLoader lists every place. *Postgres implements it.
type PlaceLoader interface {
	ListPlaces(ctx context.Context) ([]models.Place, error)
}

// DB holds the in-memory place catalog loaded from Postgres. Places change
// rarely, so request paths resolve them here instead of querying each time.
type DB struct {
	loader PlaceLoader

	mu     sync.RWMutex
	places map[int]models.Place
	slugs  map[string]int
}

var _ models.PlaceStore = (*DB)(nil)

// Init loads the place catalog and validates that slugs are unique.
func Init(ctx context.Context, loader PlaceLoader) (*DB, error) {
	d := &DB{loader: loader}
	if err := d.Reload(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Reload replaces the catalog with a fresh copy from the loader. On error
// the previous catalog is kept.
func (d *DB) Reload(ctx context.Context) error {
	pls, err := d.loader.ListPlaces(ctx)
	if err != nil {
		return fmt.Errorf("load places: %w", err)
	}
	places := make(map[int]models.Place, len(pls))
	slugs := make(map[string]int, len(pls))
	for _, p := range pls {
		if other, ok := slugs[p.Slug]; ok {
			return fmt.Errorf("place %d reuses slug %q of place %d", p.ID, p.Slug, other)
		}
		places[p.ID] = p
		slugs[p.Slug] = p.ID
	}

	d.mu.Lock()
	d.places = places
	d.slugs = slugs
	d.mu.Unlock()
	return nil
}

// FindPlaceByID returns the cached place or nil.
func (d *DB) FindPlaceByID(_ context.Context, id int) (*models.Place, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if p, ok := d.places[id]; ok {
		return &p, nil
	}
	return nil, nil
}

// FindPlaceBySlug returns the cached place or nil.
func (d *DB) FindPlaceBySlug(_ context.Context, slug string) (*models.Place, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.slugs[strings.TrimSpace(slug)]
	if !ok {
		return nil, nil
	}
	p := d.places[id]
	return &p, nil
}

// Places returns the number of cached places.
func (d *DB) Places() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.places)
}
