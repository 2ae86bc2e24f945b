package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"resumelens/internal/config"
	"resumelens/internal/errors"
	"resumelens/internal/types"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

const (
	redisPingTimeout = 5 * time.Second
	redisScanCount   = 500
)

// RedisStore keeps records as JSON strings under a key prefix
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore connects to Redis. An unreachable server is logged but not
// fatal; lookups then fail and the cache treats them as misses.
func NewRedisStore(cfg config.CacheConfig, logger *errors.Logger) (*RedisStore, error) {
	if cfg.Redis.Address == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "redis address is required", nil)
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "redis cache requires a key prefix", nil)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to instrument redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis cache unreachable, lookups will miss until it recovers",
			"address", cfg.Redis.Address,
			"error_code", errors.ErrCodeCacheUnavailable,
			"error", err.Error())
	}

	return &RedisStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
	}, nil
}

func (r *RedisStore) key(key string) string {
	return r.keyPrefix + key
}

func (r *RedisStore) Get(ctx context.Context, key string) (types.AnalysisRecord, bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable("get", key, err)
	}

	var record types.AnalysisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return record, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, record types.AnalysisRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return unavailable("delete", key, err)
	}
	return nil
}

// Clear deletes every key under the prefix
func (r *RedisStore) Clear(ctx context.Context) error {
	return r.scan(ctx, func(keys []string) error {
		return r.client.Del(ctx, keys...).Err()
	})
}

// Len counts keys under the prefix
func (r *RedisStore) Len(ctx context.Context) (int, error) {
	total := 0
	err := r.scan(ctx, func(keys []string) error {
		total += len(keys)
		return nil
	})
	return total, err
}

func (r *RedisStore) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.keyPrefix+"*", redisScanCount).Result()
		if err != nil {
			return unavailable("scan", r.keyPrefix+"*", err)
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// unavailable reports a failed Redis round trip
func unavailable(op, key string, err error) error {
	return errors.NewNetworkError(errors.ErrCodeCacheUnavailable,
		fmt.Sprintf("redis %s failed", op), err).WithContext("key", key)
}

func (r *RedisStore) Backend() string { return "redis" }

func (r *RedisStore) Close() error {
	return r.client.Close()
}
