package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	arrivalQueueKey = "gridpulse:arrivals"
	dedupKeyPrefix  = "gridpulse:alert_dedup:"
)

// Client wraps Redis operations for the ingestion pipeline: the arrival
// queue of batch object keys and the shared alert dedup cache.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks if Redis is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PushArrival enqueues a batch object key, scored by arrival time so the
// oldest arrival is popped first.
func (c *Client) PushArrival(ctx context.Context, objectKey string) error {
	z := redis.Z{Score: float64(time.Now().UnixNano()), Member: objectKey}
	if err := c.rdb.ZAdd(ctx, arrivalQueueKey, z).Err(); err != nil {
		return fmt.Errorf("zadd failed: %w", err)
	}
	return nil
}

// PopArrival pops the oldest arrival from the queue.
func (c *Client) PopArrival(ctx context.Context) (objectKey string, found bool, err error) {
	results, err := c.rdb.ZPopMin(ctx, arrivalQueueKey, 1).Result()
	if err != nil {
		return "", false, fmt.Errorf("zpopmin failed: %w", err)
	}
	if len(results) == 0 {
		return "", false, nil
	}
	return results[0].Member.(string), true, nil
}

// QueueDepth returns the number of pending arrivals.
func (c *Client) QueueDepth(ctx context.Context) (int64, error) {
	return c.rdb.ZCard(ctx, arrivalQueueKey).Result()
}

// ReserveDedup atomically claims an alert dedup key for the window. Returns
// false when another invocation already holds the key and it has not expired.
func (c *Client) ReserveDedup(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, dedupKeyPrefix+key, "sent", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}
