package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/bannerrotator/internal/models"
)

type stubLoader struct {
	places []models.Place
	err    error
}

func (s *stubLoader) ListPlaces(context.Context) ([]models.Place, error) {
	return s.places, s.err
}

func TestCatalog_InitAndLookup(t *testing.T) {
	loader := &stubLoader{places: []models.Place{
		{ID: 1, Name: "Header", Slug: "header"},
		{ID: 2, Name: "Footer", Slug: "footer"},
	}}
	d, err := Init(context.Background(), loader)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Places())

	p, err := d.FindPlaceBySlug(context.Background(), " footer ")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 2, p.ID)

	p, err = d.FindPlaceByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCatalog_ReloadKeepsOldOnError(t *testing.T) {
	loader := &stubLoader{places: []models.Place{{ID: 1, Slug: "header"}}}
	d, err := Init(context.Background(), loader)
	require.NoError(t, err)

	loader.err = errors.New("connection reset")
	require.Error(t, d.Reload(context.Background()))
	assert.Equal(t, 1, d.Places())

	loader.err = nil
	loader.places = append(loader.places, models.Place{ID: 2, Slug: "sidebar"})
	require.NoError(t, d.Reload(context.Background()))
	assert.Equal(t, 2, d.Places())
}

func TestCatalog_DuplicateSlug(t *testing.T) {
	loader := &stubLoader{places: []models.Place{{ID: 1, Slug: "x"}, {ID: 2, Slug: "x"}}}
	_, err := Init(context.Background(), loader)
	assert.Error(t, err)
}
