package animstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MJE43/stake-reel-engine/internal/animation"
)

// Redis shares animation records between processes. Records expire after
// ttl so abandoned rounds do not accumulate.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ animation.Store = (*Redis)(nil)

// NewRedis wraps a client. ttl <= 0 keeps records until deleted.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("animstore: redis ping %s: %w", addr, err)
	}
	return NewRedis(rdb, ttl), nil
}

func (r *Redis) Close() error { return r.rdb.Close() }

func (r *Redis) Load(ctx context.Context, id string) (animation.Record, error) {
	raw, err := r.rdb.Get(ctx, animation.StoreKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return animation.Record{}, animation.ErrRecordNotFound
	}
	if err != nil {
		return animation.Record{}, fmt.Errorf("animstore: redis get %s: %w", id, err)
	}
	var rec animation.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return animation.Record{}, fmt.Errorf("%w: %v", animation.ErrCorruptRecord, err)
	}
	return rec, nil
}

func (r *Redis) Save(ctx context.Context, rec animation.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("animstore: marshal record: %w", err)
	}
	ttl := r.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := r.rdb.Set(ctx, animation.StoreKey(rec.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("animstore: redis set %s: %w", rec.ID, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, animation.StoreKey(id)).Err(); err != nil {
		return fmt.Errorf("animstore: redis del %s: %w", id, err)
	}
	return nil
}
