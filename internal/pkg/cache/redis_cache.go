package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/go-redis/redis/v8"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// EncodeAll / DecodeAll 可并发调用
var (
	encoder, _ = zstd.NewWriter(nil)
	decoder, _ = zstd.NewReader(nil)
)

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化缓存值失败: %w", err)
	}

	if err := r.client.Set(ctx, key, encoder.EncodeAll(data, nil), expiration).Err(); err != nil {
		logger.Error("Set: Failed to write value to Redis", zap.String("key", key), zap.Int("bytes", len(data)), zap.Error(err))
		return fmt.Errorf("写入 Redis 失败: %w", err)
	}
	return nil
}

func (r *RedisCache) Get(ctx context.Context, key string, target any) error {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("从 Redis 读取失败: %w", err)
	}

	data, err := decoder.DecodeAll(raw, nil)
	if err != nil {
		// 格式不对的值当作未命中，由调用方重建
		logger.Warn("Get: Corrupted cache entry, treating as miss", zap.String("key", key), zap.Error(err))
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("反序列化缓存值失败: %w", err)
	}
	return nil
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("从 Redis 删除键失败: %w", err)
	}
	return nil
}

func (r *RedisCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("HGetAll 操作失败: %w", err)
	}
	// key 不存在时 go-redis 返回空 map
	if len(fields) == 0 {
		return nil, ErrCacheMiss
	}
	return fields, nil
}

// HMSetWithTTL 在一个事务管道中写入 hash 并设置过期时间
func (r *RedisCache) HMSetWithTTL(ctx context.Context, key string, fields map[string]any, expiration time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, expiration)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("HMSetWithTTL 操作失败: %w", err)
	}
	return nil
}
