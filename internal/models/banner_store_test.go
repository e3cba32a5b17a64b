package models

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreEligibleOrderedByID(t *testing.T) {
	store := NewTestStore(nil, []Banner{
		{ID: 3, IsActive: true, Weight: 1, PlaceIDs: []int{1}},
		{ID: 1, IsActive: true, Weight: 2, PlaceIDs: []int{1}},
		{ID: 2, IsActive: false, Weight: 3, PlaceIDs: []int{1}},
	})
	q := EligibilityQuery{PlaceID: 1, Now: time.Now(), Clauses: []Clause{ClauseActive, ClausePlace}}

	got, err := store.EligibleBanners(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 3, got[1].ID)

	sum, err := store.WeightSum(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 3, sum)
}

func TestInMemoryStoreConcurrentIncrements(t *testing.T) {
	store := NewTestStore(nil, []Banner{{ID: 1, IsActive: true, PlaceIDs: []int{1}}})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.IncrementViews(context.Background(), 1))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, store.IncrementClicks(context.Background(), 1))
		}()
	}
	wg.Wait()

	b, err := store.GetBanner(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 50, b.Views)
	assert.Equal(t, 50, b.Clicks)
}

func TestInMemoryStoreMissingEntities(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.GetBanner(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.IncrementViews(ctx, 42), ErrNotFound)

	p, err := store.FindPlaceByID(ctx, 7)
	assert.NoError(t, err)
	assert.Nil(t, p)

	p, err = store.FindPlaceBySlug(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestInMemoryStoreInsertClick(t *testing.T) {
	store := NewInMemoryStore()
	c := &Click{BannerID: 1}
	require.NoError(t, store.InsertClick(context.Background(), c))
	assert.Equal(t, int64(1), c.ID)
	assert.False(t, c.Datetime.IsZero())
	assert.Len(t, store.Clicks(), 1)
}
