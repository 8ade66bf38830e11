package question

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// Cache provides Redis-backed quiz pack caching to offload the question store.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ PackCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func packKey(req PackRequest) string {
	return strings.Join([]string{
		"quizpack",
		req.Topic,
		req.Seed,
		fmt.Sprint(req.Count),
	}, ":")
}

func (c *Cache) Get(ctx context.Context, req PackRequest) (*PackResponse, error) {
	data, err := c.client.Get(ctx, packKey(req)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var resp PackResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Cache) Set(ctx context.Context, req PackRequest, resp PackResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, packKey(req), data, c.ttl).Err()
}
