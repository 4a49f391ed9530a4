package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrCacheMiss = errors.New("缓存未命中,key不存在")

// Cache 目录快照和上传进度共用的缓存接口
type Cache interface {
	// Set 以 JSON 编码 value 后压缩写入
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// Get key 不存在时返回 ErrCacheMiss
	Get(ctx context.Context, key string, target any) error
	Del(ctx context.Context, keys ...string) error

	// HGetAll key 不存在时返回 ErrCacheMiss
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HMSetWithTTL 写入 hash 并刷新过期时间
	HMSetWithTTL(ctx context.Context, key string, fields map[string]any, expiration time.Duration) error
}

var _ Cache = (*RedisCache)(nil)

// LatestDocumentsKey 链头快照
const LatestDocumentsKey = "documents:latest"

// GenerateUploadProgressKey upload:<id>:progress
func GenerateUploadProgressKey(uploadID string) string {
	return fmt.Sprintf("upload:%s:progress", uploadID)
}
