package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foodscan/foodscan-api/internal/domain"
	"github.com/foodscan/foodscan-api/internal/logger"
	"github.com/redis/go-redis/v9"
)

// CachedScanStore wraps a ScanRepository with a Redis read-through cache for
// recently produced results. Cache failures degrade to the inner store; they
// are never surfaced to the pipeline.
type CachedScanStore struct {
	inner  domain.ScanRepository
	client *redis.Client
	ttl    time.Duration
}

// NewCachedScanStore connects to Redis and pings it before wiring the cache.
func NewCachedScanStore(inner domain.ScanRepository, host, port string, ttl time.Duration) (*CachedScanStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &CachedScanStore{inner: inner, client: client, ttl: ttl}, nil
}

func scanKey(id string) string {
	return fmt.Sprintf("scan:%s", id)
}

// Save writes through to the inner store, then caches the payload.
func (s *CachedScanStore) Save(ctx context.Context, result *domain.ScanResult) error {
	if err := s.inner.Save(ctx, result); err != nil {
		return err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil
	}
	if err := s.client.Set(ctx, scanKey(result.ID), payload, s.ttl).Err(); err != nil {
		logger.Warn("Failed to cache scan result", "scan_id", result.ID, "error", err.Error())
	}
	return nil
}

// GetByID serves from the cache when possible, falling back to the inner
// store and repopulating on a hit there.
func (s *CachedScanStore) GetByID(ctx context.Context, id string) (*domain.ScanResult, error) {
	cached, err := s.client.Get(ctx, scanKey(id)).Bytes()
	if err == nil {
		var result domain.ScanResult
		if err := json.Unmarshal(cached, &result); err == nil {
			return &result, nil
		}
	} else if err != redis.Nil {
		logger.Warn("Cache read failed", "scan_id", id, "error", err.Error())
	}

	result, err := s.inner.GetByID(ctx, id)
	if err != nil || result == nil {
		return result, err
	}

	if payload, merr := json.Marshal(result); merr == nil {
		if cerr := s.client.Set(ctx, scanKey(id), payload, s.ttl).Err(); cerr != nil {
			logger.Warn("Failed to repopulate cache", "scan_id", id, "error", cerr.Error())
		}
	}
	return result, nil
}

// Close releases the Redis connection.
func (s *CachedScanStore) Close() error {
	return s.client.Close()
}
