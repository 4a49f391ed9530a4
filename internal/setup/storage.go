package setup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/config"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/3Eeeecho/go-docflow/internal/pkg/storage"
	"go.uber.org/zap"
)

// InitBlobStore 按 storageconfig.type 创建存储后端并确保存储桶存在
func InitBlobStore(cfg *config.Config, fb *FirebaseClients) (storage.BlobStore, error) {
	var (
		store storage.BlobStore
		err   error
	)
	switch cfg.Storage.Type {
	case config.StorageFirebase:
		if fb == nil || fb.Bucket == nil {
			return nil, errors.New("firebase storage selected but bucket is not initialized")
		}
		expiry := time.Duration(cfg.Storage.PresignedURLExpiry) * time.Minute
		store = storage.NewFirebaseBlobStore(fb.Bucket, cfg.Firebase.StorageBucket, cfg.Firebase.ProjectID, expiry)
	default:
		store, err = storage.NewBlobStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("初始化存储服务失败: %w", err)
		}
	}
	logger.Info("存储服务已选择并初始化", zap.String("type", cfg.Storage.Type))

	// 为外部调用使用带超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("检查存储桶失败: %w", err)
	}
	return store, nil
}
