package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"autism-screening/internal/schemas"
)

// ReportCache keeps finished screenings in Redis so repeated lookups skip
// Postgres. Only terminal records are cached.
type ReportCache interface {
	Get(ctx context.Context, id string) (*schemas.ScreeningOut, error)
	Set(ctx context.Context, out *schemas.ScreeningOut) error
	Delete(ctx context.Context, id string) error
}

type reportCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReportCache creates a cache whose entries expire after ttl.
func NewReportCache(client *redis.Client, ttl time.Duration) ReportCache {
	return &reportCache{client: client, ttl: ttl}
}

func (c *reportCache) key(id string) string {
	return fmt.Sprintf("screening:%s", id)
}

// Get returns nil, nil on a miss.
func (c *reportCache) Get(ctx context.Context, id string) (*schemas.ScreeningOut, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out schemas.ScreeningOut
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *reportCache) Set(ctx context.Context, out *schemas.ScreeningOut) error {
	if out.Status == schemas.StatusPending {
		return nil
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(out.ID), data, c.ttl).Err()
}

func (c *reportCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
