package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/config"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"go.uber.org/zap"
)

type aliyunOSSBlobStore struct {
	client *oss.Client
	bucket *oss.Bucket
	cfg    *config.AliyunOSSConfig // 阿里云OSS的配置信息
	expiry time.Duration
}

var _ BlobStore = (*aliyunOSSBlobStore)(nil)

// NewAliyunOSSBlobStore 创建并返回一个阿里云 OSS 存储实例
func NewAliyunOSSBlobStore(cfg *config.AliyunOSSConfig, expiry time.Duration) (BlobStore, error) {
	// OSS Endpoint 应该包含 http:// 或 https:// 前缀
	ossClient, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		logger.Error("初始化阿里云OSS客户端失败", zap.Error(err))
		return nil, fmt.Errorf("无法初始化阿里云OSS客户端: %w", err)
	}
	bucket, err := ossClient.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("获取OSS存储桶失败: %w", err)
	}
	logger.Info("阿里云OSS客户端初始化成功", zap.String("endpoint", cfg.Endpoint))
	return &aliyunOSSBlobStore{
		client: ossClient,
		bucket: bucket,
		cfg:    cfg,
		expiry: expiry,
	}, nil
}

// ossProgressListener 把 OSS 的进度事件转换为 ProgressEvent
type ossProgressListener struct {
	tracker *progressTracker
}

func (l *ossProgressListener) ProgressChanged(event *oss.ProgressEvent) {
	if event.EventType == oss.TransferDataEvent || event.EventType == oss.TransferCompletedEvent {
		l.tracker.set(event.ConsumedBytes, event.TotalBytes)
	}
}

func (s *aliyunOSSBlobStore) Upload(ctx context.Context, objectPath string, reader io.Reader, size int64, contentType string, progress ProgressFunc) (UploadResult, error) {
	tracker := newProgressTracker(size, progress)
	options := []oss.Option{
		oss.ContentType(contentType),
		oss.Progress(&ossProgressListener{tracker: tracker}),
		oss.WithContext(ctx),
	}
	// SDK 在读取数据时检查 ctx，cancelableReader 保证取消后不再读取
	if err := s.bucket.PutObject(objectPath, &cancelableReader{ctx: ctx, reader: reader}, options...); err != nil {
		if ctx.Err() != nil {
			return UploadResult{}, fmt.Errorf("阿里云OSS上传已取消: %w", ctx.Err())
		}
		return UploadResult{}, fmt.Errorf("阿里云OSS上传文件失败: %w", err)
	}

	return UploadResult{
		Path: objectPath,
		Size: size, // PutObject 不返回对象大小，沿用传入值
	}, nil
}

func (s *aliyunOSSBlobStore) URL(ctx context.Context, objectPath string) (string, error) {
	// SignURL 默认是 GET 方法
	signedURL, err := s.bucket.SignURL(objectPath, oss.HTTPGet, int64(s.expiry.Seconds()))
	if err != nil {
		return "", fmt.Errorf("生成阿里云OSS预签名URL失败: %w", err)
	}
	return signedURL, nil
}

func (s *aliyunOSSBlobStore) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	reader, err := s.bucket.GetObject(objectPath, oss.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("阿里云OSS获取文件失败: %w", err)
	}
	return reader, nil
}

func (s *aliyunOSSBlobStore) Delete(ctx context.Context, objectPath string) error {
	if err := s.bucket.DeleteObject(objectPath, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("阿里云OSS删除文件失败: %w", err)
	}
	return nil
}

func (s *aliyunOSSBlobStore) EnsureBucket(ctx context.Context) error {
	bucketName := s.cfg.BucketName
	found, err := s.client.IsBucketExist(bucketName)
	if err != nil {
		return fmt.Errorf("检查阿里云OSS存储桶存在性失败: %w", err)
	}
	if found {
		logger.Info("阿里云 OSS 存储桶已存在", zap.String("bucketName", bucketName))
		return nil
	}

	if err := s.client.CreateBucket(bucketName); err != nil {
		// 检查是否是桶已存在错误
		if ossErr, ok := err.(oss.ServiceError); ok && (ossErr.Code == "BucketAlreadyExists" || ossErr.Code == "BucketAlreadyOwnedByYou") {
			logger.Info("阿里云OSS存储桶已存在，无需创建", zap.String("bucket", bucketName))
			return nil
		}
		return fmt.Errorf("创建阿里云OSS存储桶失败: %w", err)
	}
	logger.Info("阿里云OSS存储桶创建成功", zap.String("bucket", bucketName))
	return nil
}
