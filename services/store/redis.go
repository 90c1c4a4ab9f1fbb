package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	productKeyPrefix = "product:"
	historyKeyPrefix = "price_history:"
)

// RedisStore implements Store on Redis. Products live in plain keys,
// price history in a capped list per product.
type RedisStore struct {
	client     *redis.Client
	maxHistory int64
}

// NewRedisStore creates a Redis-backed store. maxHistory caps the number
// of retained price points per product.
func NewRedisStore(addr string, db int, maxHistory int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	return &RedisStore{
		client:     client,
		maxHistory: int64(maxHistory),
	}
}

// SaveProduct upserts the serialized product under its ID.
func (s *RedisStore) SaveProduct(ctx context.Context, id string, data []byte) error {
	return s.client.Set(ctx, productKeyPrefix+id, data, 0).Err()
}

// GetProduct returns the serialized product, or nil when absent.
func (s *RedisStore) GetProduct(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.Get(ctx, productKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// RecordPrice appends a price observation and trims the list to the
// configured cap.
func (s *RedisStore) RecordPrice(ctx context.Context, id string, point PricePoint) error {
	if point.Date == "" {
		point.Date = time.Now().Format(time.RFC3339)
	}
	data, err := json.Marshal(point)
	if err != nil {
		return err
	}

	key := historyKeyPrefix + id
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, s.maxHistory-1)
	_, err = pipe.Exec(ctx)
	return err
}

// GetPriceHistory returns observations from the last N days, newest first.
func (s *RedisStore) GetPriceHistory(ctx context.Context, id string, days int) ([]PricePoint, error) {
	entries, err := s.client.LRange(ctx, historyKeyPrefix+id, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	points := make([]PricePoint, 0, len(entries))
	for _, entry := range entries {
		var point PricePoint
		if err := json.Unmarshal([]byte(entry), &point); err != nil {
			continue
		}
		if when, err := time.Parse(time.RFC3339, point.Date); err == nil && when.Before(cutoff) {
			continue
		}
		points = append(points, point)
	}
	return points, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
