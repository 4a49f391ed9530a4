package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/config"
)

// BlobStore 定义了文档文件的存储操作接口
type BlobStore interface {
	// Upload 上传文件，progress 可为 nil；ctx 取消时中止上传
	Upload(ctx context.Context, objectPath string, reader io.Reader, size int64, contentType string, progress ProgressFunc) (UploadResult, error)
	// URL 返回下载地址，私有桶返回预签名 URL
	URL(ctx context.Context, objectPath string) (string, error)
	// Open 读取对象内容，调用方负责关闭
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)
	// Delete 按路径删除对象
	Delete(ctx context.Context, objectPath string) error
	// EnsureBucket 检查存储桶，不存在则创建
	EnsureBucket(ctx context.Context) error
}

// ProgressEvent 上传进度
type ProgressEvent struct {
	BytesTransferred int64 `json:"bytesTransferred"`
	TotalBytes       int64 `json:"totalBytes"`
}

// Percent 0-100，总大小未知时返回 0
func (e ProgressEvent) Percent() float64 {
	if e.TotalBytes <= 0 {
		return 0
	}
	return float64(e.BytesTransferred) * 100 / float64(e.TotalBytes)
}

type ProgressFunc func(ProgressEvent)

type UploadResult struct {
	Path string
	Size int64
	ETag string
	URL  string
}

// ObjectPath 生成 documents/<uid>/<unixmillis>_<filename>
func ObjectPath(prefix, uid, fileName string, now time.Time) string {
	if prefix == "" {
		prefix = "documents"
	}
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	return fmt.Sprintf("%s/%s/%d_%s", strings.TrimSuffix(prefix, "/"), uid, now.UnixMilli(), name)
}

// NewBlobStore 根据配置选择存储后端，firebase 后端需要通过 NewFirebaseBlobStore 单独创建
func NewBlobStore(cfg *config.Config) (BlobStore, error) {
	expiry := time.Duration(cfg.Storage.PresignedURLExpiry) * time.Minute
	switch cfg.Storage.Type {
	case config.StorageMinIO:
		return NewMinIOBlobStore(&cfg.MinIO, expiry)
	case config.StorageAliyunOSS:
		return NewAliyunOSSBlobStore(&cfg.AliyunOSS, expiry)
	default:
		return nil, errors.New("invalid storageType")
	}
}

// progressTracker 累计已传输字节并回调，各后端的进度钩子都转换到这里
type progressTracker struct {
	mu       sync.Mutex
	total    int64
	sent     int64
	progress ProgressFunc
}

func newProgressTracker(total int64, fn ProgressFunc) *progressTracker {
	return &progressTracker{total: total, progress: fn}
}

// add 增量
func (p *progressTracker) add(n int64) {
	p.mu.Lock()
	p.sent += n
	ev := ProgressEvent{BytesTransferred: p.sent, TotalBytes: p.total}
	p.mu.Unlock()
	p.emit(ev)
}

// set 绝对值
func (p *progressTracker) set(sent, total int64) {
	p.mu.Lock()
	p.sent = sent
	if total > 0 {
		p.total = total
	}
	ev := ProgressEvent{BytesTransferred: p.sent, TotalBytes: p.total}
	p.mu.Unlock()
	p.emit(ev)
}

func (p *progressTracker) emit(ev ProgressEvent) {
	if p.progress != nil {
		p.progress(ev)
	}
}

// cancelableReader ctx 取消后 Read 立即返回错误，用于没有 ctx 参数的 SDK
type cancelableReader struct {
	ctx    context.Context
	reader io.Reader
}

func (r *cancelableReader) Read(b []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.reader.Read(b)
}
