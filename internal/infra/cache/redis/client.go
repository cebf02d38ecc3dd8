package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bryanwahyu/mailguard/internal/domain/discovery"
	"github.com/bryanwahyu/mailguard/internal/logger"
)

const latestReportKey = "mailguard:report:latest"

// Client caches the most recent analysis report.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

var _ discovery.ReportCache = (*Client)(nil)

func NewClient(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", addr), zap.Duration("report_ttl", ttl))
	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Client) SetLatest(ctx context.Context, r *discovery.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := c.client.Set(ctx, latestReportKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set latest report: %w", err)
	}
	logger.Debug("Latest report cached", zap.String("report_id", string(r.ID)), zap.Duration("ttl", c.ttl))
	return nil
}

func (c *Client) Latest(ctx context.Context) (*discovery.Report, bool, error) {
	data, err := c.client.Get(ctx, latestReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get latest report: %w", err)
	}

	var r discovery.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	logger.Debug("Latest report cache hit", zap.String("report_id", string(r.ID)))
	return &r, true, nil
}
