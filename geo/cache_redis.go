package geo

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDurationCache shares memoized network-duration lookups across
// processes (e.g. several on-demand vehicles' VRP solves, or a restarted
// simulator resuming a run), fronting the same Get/Set contract MemoryCache
// implements. Grounded on the ride-pooling and logistics-platform examples,
// both of which reach for go-redis as a service-local cache rather than
// rolling their own.
type RedisDurationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDurationCache connects to addr (host:port) and returns a cache
// that expires entries after ttl (0 disables expiry).
func NewRedisDurationCache(addr, password string, db int, ttl time.Duration) *RedisDurationCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisDurationCache{client: client, ttl: ttl}
}

func (c *RedisDurationCache) Get(key string) (float64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	val, err := c.client.Get(ctx, "geo:duration:"+key).Result()
	if err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (c *RedisDurationCache) Set(key string, minutes float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.client.Set(ctx, "geo:duration:"+key, strconv.FormatFloat(minutes, 'f', -1, 64), c.ttl)
}

// Close releases the underlying Redis connection pool.
func (c *RedisDurationCache) Close() error {
	return c.client.Close()
}
