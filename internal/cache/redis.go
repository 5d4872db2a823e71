package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deploymenttheory/go-apk-analyzer/internal/logger"
	"github.com/deploymenttheory/go-apk-analyzer/internal/types"
)

const (
	reportKeyPrefix = "apkscan:report:"
	statsKey        = "apkscan:stats"
	recentKey       = "apkscan:recent"
)

// RedisStore persists reports in Redis, for deployments where several
// analyzer instances share one result cache. Entries are written without
// expiry; eviction is an operational concern outside the core contract.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, hash string) (*types.Report, bool, error) {
	raw, err := s.client.Get(ctx, reportKeyPrefix+hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var report types.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, false, fmt.Errorf("decoding cached report: %w", err)
	}
	return &report, true, nil
}

func (s *RedisStore) Put(ctx context.Context, report *types.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	// SETNX keeps the first stored report authoritative for a hash
	stored, err := s.client.SetNX(ctx, reportKeyPrefix+report.ContentHash, raw, 0).Result()
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	if !stored {
		return nil
	}

	pipe := s.client.Pipeline()
	pipe.ZAdd(ctx, recentKey, redis.Z{
		Score:  float64(report.ScannedAt.UnixNano()),
		Member: report.ContentHash,
	})
	pipe.HIncrBy(ctx, statsKey, "total", 1)
	pipe.HIncrBy(ctx, statsKey, string(report.Risk.Verdict), 1)
	pipe.HSet(ctx, statsKey, "updated_at", time.Now().UTC().Format(time.RFC3339))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis stats update: %w", err)
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, limit int) ([]types.Report, error) {
	stop := int64(limit) - 1
	if limit <= 0 {
		stop = -1
	}
	hashes, err := s.client.ZRevRange(ctx, recentKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis recent scans: %w", err)
	}

	reports := make([]types.Report, 0, len(hashes))
	for _, hash := range hashes {
		report, ok, err := s.Get(ctx, hash)
		if err != nil {
			return nil, err
		}
		if ok {
			reports = append(reports, *report)
		}
	}
	return reports, nil
}

func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	fields, err := s.client.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return Stats{}, fmt.Errorf("redis stats: %w", err)
	}

	stats := Stats{ByVerdict: make(map[string]int)}
	for k, v := range fields {
		switch k {
		case "total":
			stats.TotalScans = parseCount(k, v)
		case "updated_at":
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				stats.LastUpdatedAt = t
			}
		default:
			stats.ByVerdict[k] = parseCount(k, v)
		}
	}
	return stats, nil
}

// parseCount reads a stats counter field, treating corrupt values as zero.
func parseCount(field, raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warningf("Unparsable stats field %s=%q: %v", field, raw, err)
		return 0
	}
	return n
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
