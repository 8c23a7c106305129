package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"faculty-appraisal/config"
)

// Client wraps go-redis for the state that must be shared between replicas:
// the token revocation list and the sliding-window rate limiter.
type Client struct {
	rdb    goredis.UniversalClient
	logger *zap.Logger
}

// NewClient connects and pings.
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info("redis connected", zap.String("addr", cfg.Addr))
	return &Client{rdb: rdb, logger: logger}, nil
}

// NewFromUniversal wraps an existing client.
func NewFromUniversal(rdb goredis.UniversalClient, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

// ── Token revocation ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken stores key for ttl, the token's remaining lifetime.
func (c *Client) BlacklistToken(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, blacklistPrefix+key, "1", ttl).Err()
}

// IsBlacklisted reports whether key was revoked.
func (c *Client) IsBlacklisted(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── Sliding window ──

const rateLimitPrefix = "rate_limit:"

// slidingWindow purges members older than the window, rejects without
// recording when the remaining count has reached the limit, otherwise adds
// the current timestamp. Runs atomically on the server.
//
// KEYS[1] window key; ARGV: now (µs), window (µs), limit, member
var slidingWindow = goredis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, math.ceil(window / 1000))
return 1
`)

// CheckRateLimit applies the sliding window to key.
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMicro()
	member := strconv.FormatInt(now, 10) + ":" + uuid.NewString()
	res, err := slidingWindow.Run(ctx, c.rdb,
		[]string{rateLimitPrefix + key},
		now, window.Microseconds(), limit, member,
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return res == 1, nil
}

// Ping health check.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
