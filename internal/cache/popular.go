// Package cache keeps ranked popular-film lists in Redis.
//
// Keys embed a version number. Invalidate bumps the version, so every list cached
// before the bump is never read again and expires on its own TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"filmrate/backend/internal/models"
	"filmrate/backend/internal/storage"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "films:popular"
	versionKey = keyPrefix + ":version"
)

// Popular is the Redis cache of popular film lists.
type Popular struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPopular connects to the Redis server at url (redis://...) and checks it answers.
func NewPopular(ctx context.Context, url string, ttl time.Duration) (*Popular, error) {
	const op = "cache/NewPopular"

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Popular{client: client, ttl: ttl}, nil
}

func (c *Popular) Close() error {
	return c.client.Close()
}

func (c *Popular) version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func key(version int64, f storage.PopularFilter) string {
	return fmt.Sprintf("%s:v%d:%d:%d:%d", keyPrefix, version, f.Count, f.GenreID, f.Year)
}

// Get returns the cached list for the filter. ok is false on a miss.
// version is the cache version the lookup ran against; a list loaded after a miss
// must be stored with Set under that same version.
func (c *Popular) Get(ctx context.Context, f storage.PopularFilter) (films []models.Film, version int64, ok bool, err error) {
	const op = "cache/Popular.Get"

	version, err = c.version(ctx)
	if err != nil {
		return nil, 0, false, fmt.Errorf("%s: %w", op, err)
	}

	data, err := c.client.Get(ctx, key(version, f)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, version, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(data, &films); err != nil {
		return nil, 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return films, version, true, nil
}

// Set stores the list for the filter under version. If Invalidate ran since that
// version was read, the entry is written under an orphaned key and never served.
func (c *Popular) Set(ctx context.Context, f storage.PopularFilter, version int64, films []models.Film) error {
	const op = "cache/Popular.Set"

	data, err := json.Marshal(films)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.client.Set(ctx, key(version, f), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate orphans every cached list.
func (c *Popular) Invalidate(ctx context.Context) error {
	const op = "cache/Popular.Invalidate"

	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
