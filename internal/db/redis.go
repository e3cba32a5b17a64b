package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/patrickwarner/bannerrotator/internal/models"
)

// ErrNilRedisStore is returned when a RedisStore pointer is nil or uninitialized.
var ErrNilRedisStore = errors.New("redis store is nil")

// RedisStore wraps a redis client and context for operations.
type RedisStore struct {
	Client *redis.Client
	Ctx    context.Context
}

// SessionOptions controls where viewing history is kept. LastViewKey and
// PermanentKey name the two hash fields of a session.
type SessionOptions struct {
	Prefix       string
	LastViewKey  string
	PermanentKey string
	TTL          time.Duration
}

// InitRedis initializes a Redis client and returns a RedisStore.
func InitRedis(addr string) (*RedisStore, error) {
	rs := &RedisStore{
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		Ctx:    context.Background(),
	}

	// Add OpenTelemetry instrumentation to Redis client
	if err := redisotel.InstrumentTracing(rs.Client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := rs.Client.Ping(rs.Ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return rs, nil
}

func (o SessionOptions) key(id string) string {
	prefix := o.Prefix
	if prefix == "" {
		prefix = "session"
	}
	return prefix + ":" + id
}

// LoadSession reads the viewing history for session id. A session that does
// not exist yet yields an empty state.
func (r *RedisStore) LoadSession(ctx context.Context, id string, opts SessionOptions) (*models.SessionState, error) {
	if r == nil || r.Client == nil {
		return nil, ErrNilRedisStore
	}
	fields, err := r.Client.HGetAll(ctx, opts.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	state := models.NewSessionState(id)
	if raw, ok := fields[opts.LastViewKey]; ok && raw != "" {
		var views map[string]time.Time
		if err := json.Unmarshal([]byte(raw), &views); err != nil {
			return nil, fmt.Errorf("decode %s: %w", opts.LastViewKey, err)
		}
		state.LastViewByDay = make(map[int]time.Time, len(views))
		for k, t := range views {
			bannerID, err := strconv.Atoi(k)
			if err != nil {
				continue
			}
			state.LastViewByDay[bannerID] = t
		}
	}
	if raw, ok := fields[opts.PermanentKey]; ok && raw != "" {
		var ids []int
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return nil, fmt.Errorf("decode %s: %w", opts.PermanentKey, err)
		}
		state.PermanentlyViewed = make(map[int]struct{}, len(ids))
		for _, bannerID := range ids {
			state.PermanentlyViewed[bannerID] = struct{}{}
		}
	}
	return state, nil
}

// SaveSession writes the state back and refreshes its expiry. The dirty flag
// is cleared on success.
func (r *RedisStore) SaveSession(ctx context.Context, state *models.SessionState, opts SessionOptions) error {
	if r == nil || r.Client == nil {
		return ErrNilRedisStore
	}
	if state == nil {
		return nil
	}

	views := make(map[string]time.Time, len(state.LastViewByDay))
	for bannerID, t := range state.LastViewByDay {
		views[strconv.Itoa(bannerID)] = t
	}
	viewsJSON, err := json.Marshal(views)
	if err != nil {
		return fmt.Errorf("encode %s: %w", opts.LastViewKey, err)
	}

	values := []any{opts.LastViewKey, string(viewsJSON)}
	if state.PermanentlyViewed != nil {
		ids := make([]int, 0, len(state.PermanentlyViewed))
		for bannerID := range state.PermanentlyViewed {
			ids = append(ids, bannerID)
		}
		permJSON, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("encode %s: %w", opts.PermanentKey, err)
		}
		values = append(values, opts.PermanentKey, string(permJSON))
	}

	key := opts.key(state.ID)
	pipe := r.Client.TxPipeline()
	pipe.HSet(ctx, key, values...)
	if opts.TTL > 0 {
		pipe.Expire(ctx, key, opts.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	state.ClearDirty()
	return nil
}

// DeleteSession removes a session's history.
func (r *RedisStore) DeleteSession(ctx context.Context, id string, opts SessionOptions) error {
	if r == nil || r.Client == nil {
		return ErrNilRedisStore
	}
	return r.Client.Del(ctx, opts.key(id)).Err()
}

// Close shuts down the Redis client.
func (r *RedisStore) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
