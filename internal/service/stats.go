package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/scripty/hub-server-go/internal/redis"
)

// StatsService keeps the latest server and user count reported by each
// cluster in two Redis hashes keyed by cluster ID.
type StatsService struct {
	client *redis.Client
}

func NewStatsService(client *redis.Client) *StatsService {
	return &StatsService{client: client}
}

func (s *StatsService) RecordServerCount(ctx context.Context, clusterID int64, count int64) error {
	return s.record(ctx, redisclient.ServerCountsKey(), clusterID, count)
}

func (s *StatsService) RecordUserCount(ctx context.Context, clusterID int64, count int64) error {
	return s.record(ctx, redisclient.UserCountsKey(), clusterID, count)
}

func (s *StatsService) record(ctx context.Context, key string, clusterID int64, count int64) error {
	if err := s.client.HSet(ctx, key, redisclient.ClusterField(clusterID), count).Err(); err != nil {
		return fmt.Errorf("record %s for cluster %d: %w", key, clusterID, err)
	}
	return nil
}

type StatsTotals struct {
	Servers  int64
	Users    int64
	Clusters int
}

// Totals sums the latest counts across every cluster that has reported.
func (s *StatsService) Totals(ctx context.Context) (StatsTotals, error) {
	servers, serverClusters, err := s.sum(ctx, redisclient.ServerCountsKey())
	if err != nil {
		return StatsTotals{}, err
	}
	users, userClusters, err := s.sum(ctx, redisclient.UserCountsKey())
	if err != nil {
		return StatsTotals{}, err
	}
	return StatsTotals{
		Servers:  servers,
		Users:    users,
		Clusters: max(serverClusters, userClusters),
	}, nil
}

func (s *StatsService) sum(ctx context.Context, key string) (int64, int, error) {
	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("read %s: %w", key, err)
	}

	var total int64
	for field, raw := range values {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Warn().Str("key", key).Str("cluster", field).Str("value", raw).Msg("ignoring non-numeric count")
			continue
		}
		total += n
	}
	return total, len(values), nil
}
