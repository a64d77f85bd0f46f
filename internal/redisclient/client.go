package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"library-service/internal/models"

	"github.com/go-redis/redis/v8"
)

const dashboardStatsKey = "stats:dashboard"

// Client wraps Redis for the two best-effort concerns the service has:
// opaque admin session tokens and the dashboard stats cache.
type Client struct {
	rdb        *redis.Client
	sessionTTL time.Duration
	statsTTL   time.Duration
}

// NewClient connects to Redis and verifies the connection.
func NewClient(addr, password string, db int, sessionTTL, statsTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:        rdb,
		sessionTTL: sessionTTL,
		statsTTL:   statsTTL,
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// StoreSession saves a session token with the configured TTL.
func (c *Client) StoreSession(ctx context.Context, token string, adminID int64) error {
	return c.rdb.Set(ctx, sessionKey(token), adminID, c.sessionTTL).Err()
}

// GetSession resolves a token to an admin ID. The second result is false
// when the token is unknown or expired.
func (c *Client) GetSession(ctx context.Context, token string) (int64, bool, error) {
	adminID, err := c.rdb.Get(ctx, sessionKey(token)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return adminID, true, nil
}

// DeleteSession revokes a token.
func (c *Client) DeleteSession(ctx context.Context, token string) error {
	return c.rdb.Del(ctx, sessionKey(token)).Err()
}

func sessionKey(token string) string {
	return "session:" + token
}

// GetDashboardStats returns cached dashboard counters, or (nil, nil) on a
// cache miss.
func (c *Client) GetDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	payload, err := c.rdb.Get(ctx, dashboardStatsKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var stats models.DashboardStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode cached stats: %w", err)
	}
	return &stats, nil
}

// SetDashboardStats caches dashboard counters with a short TTL so the
// dashboard never serves stale numbers for long.
func (c *Client) SetDashboardStats(ctx context.Context, stats *models.DashboardStats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	return c.rdb.Set(ctx, dashboardStatsKey, payload, c.statsTTL).Err()
}
