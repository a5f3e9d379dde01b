package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	serverCountsKey = "stats:servers"
	userCountsKey   = "stats:users"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// ServerCountsKey is the hash of cluster ID -> guild count.
func ServerCountsKey() string {
	return serverCountsKey
}

// UserCountsKey is the hash of cluster ID -> visible user count.
func UserCountsKey() string {
	return userCountsKey
}

func ClusterField(clusterID int64) string {
	return strconv.FormatInt(clusterID, 10)
}

func TTSRateLimitKey(clusterID int64) string {
	return fmt.Sprintf("tts:cluster:%d", clusterID)
}
