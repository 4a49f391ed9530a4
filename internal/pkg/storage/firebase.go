package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"go.uber.org/zap"
)

// firebaseBlobStore Firebase Storage 即 GCS 存储桶
type firebaseBlobStore struct {
	bucket    *gcs.BucketHandle
	name      string
	projectID string
	expiry    time.Duration
}

var _ BlobStore = (*firebaseBlobStore)(nil)

// NewFirebaseBlobStore bucket 来自 firebase App 的 Storage 客户端
func NewFirebaseBlobStore(bucket *gcs.BucketHandle, name, projectID string, expiry time.Duration) BlobStore {
	return &firebaseBlobStore{bucket: bucket, name: name, projectID: projectID, expiry: expiry}
}

func (s *firebaseBlobStore) Upload(ctx context.Context, objectPath string, reader io.Reader, size int64, contentType string, progress ProgressFunc) (UploadResult, error) {
	tracker := newProgressTracker(size, progress)

	// 可续传上传，ctx 取消时 Writer 中止并丢弃已上传的分块
	w := s.bucket.Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	w.ProgressFunc = func(sent int64) {
		tracker.set(sent, size)
	}

	if _, err := io.Copy(w, reader); err != nil {
		_ = w.Close()
		return UploadResult{}, fmt.Errorf("Firebase Storage 上传文件失败: %w", err)
	}
	if err := w.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("Firebase Storage 完成上传失败: %w", err)
	}

	attrs := w.Attrs()
	res := UploadResult{Path: objectPath, Size: size}
	if attrs != nil {
		res.Size = attrs.Size
		res.ETag = attrs.Etag
	}
	tracker.set(res.Size, res.Size)
	return res, nil
}

func (s *firebaseBlobStore) URL(ctx context.Context, objectPath string) (string, error) {
	signedURL, err := s.bucket.SignedURL(objectPath, &gcs.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(s.expiry),
	})
	if err != nil {
		return "", fmt.Errorf("生成 Firebase Storage 签名URL失败: %w", err)
	}
	return signedURL, nil
}

func (s *firebaseBlobStore) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	r, err := s.bucket.Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Firebase Storage 获取文件失败: %w", err)
	}
	return r, nil
}

func (s *firebaseBlobStore) Delete(ctx context.Context, objectPath string) error {
	err := s.bucket.Object(objectPath).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		// 与 MinIO/OSS 一致，删除不存在的对象视为成功
		return nil
	}
	if err != nil {
		return fmt.Errorf("Firebase Storage 删除文件失败: %w", err)
	}
	return nil
}

func (s *firebaseBlobStore) EnsureBucket(ctx context.Context) error {
	_, err := s.bucket.Attrs(ctx)
	if err == nil {
		logger.Info("Firebase Storage 存储桶已存在", zap.String("bucketName", s.name))
		return nil
	}
	if !errors.Is(err, gcs.ErrBucketNotExist) {
		return fmt.Errorf("检查 Firebase Storage 存储桶失败: %w", err)
	}
	if err := s.bucket.Create(ctx, s.projectID, nil); err != nil {
		return fmt.Errorf("创建 Firebase Storage 存储桶失败: %w", err)
	}
	logger.Info("Firebase Storage 存储桶创建成功", zap.String("bucket", s.name))
	return nil
}
