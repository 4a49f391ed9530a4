package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/cache"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/3Eeeecho/go-docflow/internal/pkg/mapper"
	"github.com/3Eeeecho/go-docflow/internal/pkg/storage"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadState 上传任务状态
type UploadState string

const (
	UploadRunning   UploadState = "running"
	UploadCompleted UploadState = "completed"
	UploadFailed    UploadState = "failed"
	UploadCanceled  UploadState = "canceled"
)

const (
	eventBufferSize   = 16
	progressKeyTTL    = time.Hour
	progressWriteStep = 1.0 // 百分比每变化 1 才写一次 Redis
)

// UploadSpec 一次上传需要的参数
type UploadSpec struct {
	UploadID    string // 为空时自动生成
	ObjectPath  string
	Reader      io.Reader
	Size        int64
	ContentType string
}

// UploadTask 一次正在进行的上传，Wait 之前可以随时 Cancel
type UploadTask struct {
	id     string
	cancel context.CancelFunc
	events chan storage.ProgressEvent
	done   chan struct{}

	mu        sync.Mutex
	closed    bool
	state     UploadState
	last      storage.ProgressEvent
	lastSaved float64
	result    storage.UploadResult
	err       error
}

func (t *UploadTask) ID() string { return t.id }

// Events 进度事件，任务结束后关闭；缓冲满时丢弃旧事件，最新进度以 Progress 为准
func (t *UploadTask) Events() <-chan storage.ProgressEvent { return t.events }

func (t *UploadTask) Cancel() { t.cancel() }

// Wait 阻塞直到上传结束
func (t *UploadTask) Wait() (storage.UploadResult, error) {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}

// Progress 当前进度和状态
func (t *UploadTask) Progress() (storage.ProgressEvent, UploadState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.state
}

// UploadManager 启动上传任务并按 upload id 登记，供进度查询和取消
type UploadManager struct {
	store storage.BlobStore
	cache cache.Cache // 可为 nil，此时进度只在本进程可见

	mu    sync.Mutex
	tasks map[string]*UploadTask
}

func NewUploadManager(store storage.BlobStore, c cache.Cache) *UploadManager {
	return &UploadManager{
		store: store,
		cache: c,
		tasks: map[string]*UploadTask{},
	}
}

// Start 在独立 goroutine 中上传，ctx 取消或调用 Cancel 都会中止
func (m *UploadManager) Start(ctx context.Context, spec UploadSpec) *UploadTask {
	if spec.UploadID == "" {
		spec.UploadID = uuid.NewString()
	}
	taskCtx, cancel := context.WithCancel(ctx)
	t := &UploadTask{
		id:     spec.UploadID,
		cancel: cancel,
		events: make(chan storage.ProgressEvent, eventBufferSize),
		done:   make(chan struct{}),
		state:  UploadRunning,
		last:   storage.ProgressEvent{TotalBytes: spec.Size},
	}

	m.mu.Lock()
	if _, exists := m.tasks[t.id]; exists {
		m.mu.Unlock()
		logger.Warn("Start: Upload id already in use", zap.String("uploadID", t.id))
		t.finish(storage.UploadResult{}, fmt.Errorf("upload %s already running: %w", t.id, xerr.ErrInvalidParams), UploadFailed)
		cancel()
		return t
	}
	m.tasks[t.id] = t
	m.mu.Unlock()

	m.saveProgress(t, true)
	go m.run(taskCtx, t, spec)
	return t
}

func (m *UploadManager) run(ctx context.Context, t *UploadTask, spec UploadSpec) {
	defer t.cancel()
	defer m.unregister(t.id)

	res, err := m.store.Upload(ctx, spec.ObjectPath, spec.Reader, spec.Size, spec.ContentType, func(ev storage.ProgressEvent) {
		t.publish(ev)
		m.saveProgress(t, false)
	})

	switch {
	case err == nil:
		t.finish(res, nil, UploadCompleted)
		logger.Info("Upload: Blob upload completed", zap.String("uploadID", t.id), zap.String("path", res.Path), zap.Int64("size", res.Size))
	case ctx.Err() != nil:
		t.finish(storage.UploadResult{}, fmt.Errorf("upload %s: %w", t.id, xerr.ErrUploadCanceled), UploadCanceled)
		// 可能已写入部分对象
		logger.Warn("Upload: Blob upload canceled", zap.String("uploadID", t.id), zap.String("path", spec.ObjectPath))
	default:
		t.finish(storage.UploadResult{}, wrapStorageError(err), UploadFailed)
		logger.Error("Upload: Blob upload failed", zap.String("uploadID", t.id), zap.String("path", spec.ObjectPath), zap.Error(err))
	}
	m.saveProgress(t, true)
}

func wrapStorageError(err error) error {
	if errors.Is(err, xerr.ErrStorageError) {
		return err
	}
	return fmt.Errorf("%v: %w", err, xerr.ErrStorageError)
}

func (t *UploadTask) publish(ev storage.ProgressEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.last = ev
	select {
	case t.events <- ev:
	default:
	}
}

func (t *UploadTask) finish(res storage.UploadResult, err error, state UploadState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	t.result = res
	t.err = err
	t.state = state
	if state == UploadCompleted {
		t.last.BytesTransferred = res.Size
		if t.last.TotalBytes <= 0 {
			t.last.TotalBytes = res.Size
		}
	}
	close(t.events)
	close(t.done)
}

func (m *UploadManager) unregister(id string) {
	m.mu.Lock()
	delete(m.tasks, id)
	m.mu.Unlock()
}

// Cancel 取消本进程中正在运行的上传
func (m *UploadManager) Cancel(uploadID string) error {
	m.mu.Lock()
	t, ok := m.tasks[uploadID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("upload %s: %w", uploadID, xerr.ErrUploadNotFound)
	}
	t.Cancel()
	logger.Info("Cancel: Upload cancel requested", zap.String("uploadID", uploadID))
	return nil
}

// Progress 优先读本进程任务，其次读 Redis 中其他实例写入的进度
func (m *UploadManager) Progress(ctx context.Context, uploadID string) (models.UploadProgressResponse, error) {
	m.mu.Lock()
	t, ok := m.tasks[uploadID]
	m.mu.Unlock()
	if ok {
		ev, state := t.Progress()
		return progressResponse(uploadID, ev, state), nil
	}

	if m.cache == nil {
		return models.UploadProgressResponse{}, fmt.Errorf("upload %s: %w", uploadID, xerr.ErrUploadNotFound)
	}
	fields, err := m.cache.HGetAll(ctx, cache.GenerateUploadProgressKey(uploadID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.UploadProgressResponse{}, fmt.Errorf("upload %s: %w", uploadID, xerr.ErrUploadNotFound)
	}
	if err != nil {
		logger.Warn("Progress: Failed to read upload progress from Redis", zap.String("uploadID", uploadID), zap.Error(err))
		return models.UploadProgressResponse{}, fmt.Errorf("upload %s progress: %w", uploadID, xerr.ErrCacheError)
	}
	p, err := mapper.MapToProgress(fields)
	if err != nil {
		logger.Error("Progress: Malformed upload progress in Redis", zap.String("uploadID", uploadID), zap.Error(err))
		return models.UploadProgressResponse{}, fmt.Errorf("upload %s progress: %w", uploadID, xerr.ErrCacheError)
	}
	p.UploadID = uploadID
	return p, nil
}

// saveProgress 状态变化时总是写入，传输过程中按百分比步长节流
func (m *UploadManager) saveProgress(t *UploadTask, force bool) {
	if m.cache == nil {
		return
	}
	t.mu.Lock()
	ev, state := t.last, t.state
	pct := ev.Percent()
	if !force && math.Abs(pct-t.lastSaved) < progressWriteStep {
		t.mu.Unlock()
		return
	}
	t.lastSaved = pct
	t.mu.Unlock()

	// 请求被取消后仍需写入最终状态，不使用任务 ctx
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	fields := mapper.ProgressToMap(progressResponse(t.id, ev, state))
	err := m.cache.HMSetWithTTL(ctx, cache.GenerateUploadProgressKey(t.id), fields, progressKeyTTL)
	if err != nil {
		logger.Warn("saveProgress: Failed to store upload progress", zap.String("uploadID", t.id), zap.Error(err))
	}
}

func progressResponse(id string, ev storage.ProgressEvent, state UploadState) models.UploadProgressResponse {
	return models.UploadProgressResponse{
		UploadID:         id,
		BytesTransferred: ev.BytesTransferred,
		TotalBytes:       ev.TotalBytes,
		Percent:          math.Round(ev.Percent()*100) / 100,
		State:            string(state),
	}
}
