package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/config"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type minioBlobStore struct {
	client *minio.Client
	cfg    *config.MinIOConfig // MinIO的配置信息
	expiry time.Duration
}

var _ BlobStore = (*minioBlobStore)(nil)

// NewMinIOBlobStore 创建并返回一个 MinIO 存储实例
func NewMinIOBlobStore(cfg *config.MinIOConfig, expiry time.Duration) (BlobStore, error) {
	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL, // 根据配置决定是否使用 HTTPS
	}

	minioClient, err := minio.New(cfg.Endpoint, opts)
	if err != nil {
		logger.Error("初始化 MinIO 客户端失败", zap.Error(err))
		return nil, fmt.Errorf("无法初始化 MinIO 客户端: %w", err)
	}

	logger.Info("MinIO 客户端初始化成功", zap.String("endpoint", cfg.Endpoint))
	return &minioBlobStore{
		client: minioClient,
		cfg:    cfg,
		expiry: expiry,
	}, nil
}

// minioProgress minio 每上传 n 字节就从 Progress 读取 n 字节
type minioProgress struct {
	tracker *progressTracker
}

func (p *minioProgress) Read(b []byte) (int, error) {
	p.tracker.add(int64(len(b)))
	return len(b), nil
}

func (s *minioBlobStore) Upload(ctx context.Context, objectPath string, reader io.Reader, size int64, contentType string, progress ProgressFunc) (UploadResult, error) {
	tracker := newProgressTracker(size, progress)
	info, err := s.client.PutObject(ctx, s.cfg.BucketName, objectPath, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
		Progress:    &minioProgress{tracker: tracker},
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("MinIO 上传文件失败: %w", err)
	}
	return UploadResult{
		Path: info.Key,
		Size: info.Size,
		ETag: info.ETag,
	}, nil
}

// URL 私有桶，返回预签名下载地址
func (s *minioBlobStore) URL(ctx context.Context, objectPath string) (string, error) {
	presignedURL, err := s.client.PresignedGetObject(ctx, s.cfg.BucketName, objectPath, s.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成 MinIO 预签名URL失败: %w", err)
	}
	return presignedURL.String(), nil
}

func (s *minioBlobStore) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.BucketName, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("MinIO 获取文件失败: %w", err)
	}
	return obj, nil
}

func (s *minioBlobStore) Delete(ctx context.Context, objectPath string) error {
	opts := minio.RemoveObjectOptions{
		GovernanceBypass: true, // 如果需要，可以绕过保留策略
	}
	if err := s.client.RemoveObject(ctx, s.cfg.BucketName, objectPath, opts); err != nil {
		return fmt.Errorf("MinIO 删除文件失败: %w", err)
	}
	return nil
}

func (s *minioBlobStore) EnsureBucket(ctx context.Context) error {
	bucketName := s.cfg.BucketName
	found, err := s.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查 MinIO 存储桶存在性失败: %w", err)
	}
	if found {
		logger.Info("MinIO 存储桶已存在", zap.String("bucketName", bucketName))
		return nil
	}

	if err := s.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
		// 并发创建时桶可能已存在
		exists, errBucketExists := s.client.BucketExists(ctx, bucketName)
		if errBucketExists == nil && exists {
			logger.Info("MinIO 存储桶已存在，无需创建", zap.String("bucket", bucketName))
			return nil
		}
		return fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
	}
	logger.Info("MinIO 存储桶创建成功", zap.String("bucket", bucketName))
	return nil
}
