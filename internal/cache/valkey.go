// Package cache provides a Valkey-backed cache for the event list. Values
// are stored as the raw JSON the API would serve, so a hit skips both the
// database and serialization.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	TTL      time.Duration
}

type ValkeyClient struct {
	client *redis.Client
	ttl    time.Duration
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	slog.Info("Connected to Valkey", "addr", cfg.Addr, "ttl", ttl)
	return &ValkeyClient{client: rdb, ttl: ttl}, nil
}

// eventsVersionKey is bumped on every write that could change list results,
// which invalidates all cached pages at once.
const eventsVersionKey = "events:list:version"

func (v *ValkeyClient) listKey(ctx context.Context, filterKey string) string {
	version, err := v.client.Get(ctx, eventsVersionKey).Result()
	if err != nil {
		version = "0"
	}
	sum := sha1.Sum([]byte(filterKey))
	return fmt.Sprintf("events:list:%s:%s", version, hex.EncodeToString(sum[:]))
}

// GetEventsList returns the cached JSON for a filter key, or (nil, nil) on a
// miss. Cache failures are reported but should not fail the request.
func (v *ValkeyClient) GetEventsList(ctx context.Context, filterKey string) ([]byte, error) {
	data, err := v.client.Get(ctx, v.listKey(ctx, filterKey)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return data, nil
}

// SetEventsList stores the serialized response for a filter key.
func (v *ValkeyClient) SetEventsList(ctx context.Context, filterKey string, data []byte) error {
	if err := v.client.Set(ctx, v.listKey(ctx, filterKey), data, v.ttl).Err(); err != nil {
		return fmt.Errorf("cache store error: %w", err)
	}
	return nil
}

// InvalidateEvents drops every cached event list page.
func (v *ValkeyClient) InvalidateEvents(ctx context.Context) error {
	if err := v.client.Incr(ctx, eventsVersionKey).Err(); err != nil {
		return fmt.Errorf("cache invalidation error: %w", err)
	}
	return nil
}

func (v *ValkeyClient) HealthCheck(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
