package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/btc-connector/internal/infra/storage"
)

// WatermarkRepo implements storage.WatermarkRepository using one Redis key.
type WatermarkRepo struct {
	rdb  *redis.Client
	name string
}

// NewWatermarkRepo creates a Redis-backed watermark repository.
func NewWatermarkRepo(client *Client, name string) *WatermarkRepo {
	return &WatermarkRepo{
		rdb:  client.rdb,
		name: name,
	}
}

func (r *WatermarkRepo) key() string {
	return fmt.Sprintf("watermark:%s", r.name)
}

// Load returns the stored value.
func (r *WatermarkRepo) Load(ctx context.Context) (string, error) {
	val, err := r.rdb.Get(ctx, r.key()).Result()
	if errors.Is(err, redis.Nil) {
		return "", storage.ErrWatermarkNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get failed: %w", err)
	}
	return val, nil
}

// Save overwrites the key without expiry. A single SET is atomic.
func (r *WatermarkRepo) Save(ctx context.Context, value string) error {
	if err := r.rdb.Set(ctx, r.key(), value, 0).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// Delete removes the key.
func (r *WatermarkRepo) Delete(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key()).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}
