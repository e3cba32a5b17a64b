package db

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickwarner/bannerrotator/internal/models"
)

// setupTestRedis spins up an in-memory Redis and returns a store pointing at it.
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	store := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: s.Addr()}),
		Ctx:    context.Background(),
	}
	return s, store
}

var testSessionOpts = SessionOptions{
	LastViewKey:  "banners_last_view",
	PermanentKey: "banners_permanent_viewed",
	TTL:          time.Hour,
}

func TestSession_RoundTrip(t *testing.T) {
	ms, store := setupTestRedis(t)
	defer ms.Close()
	ctx := context.Background()

	viewed := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)
	state := models.NewSessionState("abc")
	state.LastViewByDay = map[int]time.Time{3: viewed}
	state.PermanentlyViewed = map[int]struct{}{8: {}}
	state.MarkDirty()

	require.NoError(t, store.SaveSession(ctx, state, testSessionOpts))
	assert.False(t, state.Dirty())

	assert.True(t, ms.Exists("session:abc"))
	assert.Equal(t, time.Hour, ms.TTL("session:abc"))
	assert.Contains(t, ms.HGet("session:abc", "banners_last_view"), `"3"`)

	loaded, err := store.LoadSession(ctx, "abc", testSessionOpts)
	require.NoError(t, err)
	assert.Equal(t, "abc", loaded.ID)
	assert.True(t, loaded.LastViewByDay[3].Equal(viewed))
	assert.True(t, loaded.IsPermanentlyViewed(8))
	assert.False(t, loaded.Dirty())
}

func TestSession_LoadMissing(t *testing.T) {
	ms, store := setupTestRedis(t)
	defer ms.Close()

	state, err := store.LoadSession(context.Background(), "fresh", testSessionOpts)
	require.NoError(t, err)
	assert.Empty(t, state.LastViewByDay)
	assert.Nil(t, state.PermanentlyViewed)
}

func TestSession_NilPermanentSetNotWritten(t *testing.T) {
	ms, store := setupTestRedis(t)
	defer ms.Close()

	state := models.NewSessionState("p")
	state.LastViewByDay = map[int]time.Time{1: time.Now()}
	require.NoError(t, store.SaveSession(context.Background(), state, testSessionOpts))
	assert.Equal(t, "", ms.HGet("session:p", "banners_permanent_viewed"))
}

func TestSession_CorruptPayload(t *testing.T) {
	ms, store := setupTestRedis(t)
	defer ms.Close()

	ms.HSet("session:bad", "banners_last_view", "not json")
	_, err := store.LoadSession(context.Background(), "bad", testSessionOpts)
	assert.Error(t, err)
}

func TestSession_Delete(t *testing.T) {
	ms, store := setupTestRedis(t)
	defer ms.Close()

	ms.HSet("session:gone", "banners_last_view", "{}")
	require.NoError(t, store.DeleteSession(context.Background(), "gone", testSessionOpts))
	assert.False(t, ms.Exists("session:gone"))
}

func TestSession_NilStore(t *testing.T) {
	var store *RedisStore
	_, err := store.LoadSession(context.Background(), "x", testSessionOpts)
	assert.ErrorIs(t, err, ErrNilRedisStore)
	assert.ErrorIs(t, store.SaveSession(context.Background(), models.NewSessionState("x"), testSessionOpts), ErrNilRedisStore)
}
