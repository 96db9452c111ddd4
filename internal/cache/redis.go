package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	tripsKey           = "cache:trips"
	tripsGenerationKey = "cache:trips:generation"
)

var errStaleTrips = errors.New("trip listing generation moved")

// RedisCache keeps the ordered trip listing. Seat counts change on every
// reservation, so writers drop the entry and bump the generation after each
// committed seat change.
type RedisCache struct {
	client   *redis.Client
	tripsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, tripsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		tripsTTL: tripsTTL,
	}
}

// GetTrips returns nil, nil on a cache miss.
func (c *RedisCache) GetTrips(ctx context.Context) ([]domain.Trip, error) {
	data, err := c.client.Get(ctx, tripsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var trips []domain.Trip
	if err := json.Unmarshal(data, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

// TripsGeneration returns 0 until the first invalidation.
func (c *RedisCache) TripsGeneration(ctx context.Context) (int64, error) {
	generation, err := c.client.Get(ctx, tripsGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

// SetTrips stores the listing only while the generation still matches the
// one read before the listing was loaded. A stale listing is dropped
// silently.
func (c *RedisCache) SetTrips(ctx context.Context, generation int64, trips []domain.Trip) error {
	payload, err := json.Marshal(trips)
	if err != nil {
		return err
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, tripsGenerationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleTrips
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, tripsKey, payload, c.tripsTTL)
			return nil
		})
		return err
	}, tripsGenerationKey)
	if errors.Is(err, errStaleTrips) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisCache) InvalidateTrips(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, tripsGenerationKey)
		pipe.Del(ctx, tripsKey)
		return nil
	})
	return err
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
