package document

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/cache"
	"github.com/3Eeeecho/go-docflow/internal/pkg/metrics"
	"github.com/3Eeeecho/go-docflow/internal/pkg/storage"
	"github.com/3Eeeecho/go-docflow/internal/repositories"
	"github.com/3Eeeecho/go-docflow/internal/services/catalog"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// memoryBlobStore 进程内的对象存储
type memoryBlobStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	uploads    int
	failUpload error
	failDelete map[string]bool

	block       chan struct{} // 非 nil 时 Upload 等待关闭或 ctx 取消
	started     chan struct{}
	startedOnce sync.Once
}

var _ storage.BlobStore = (*memoryBlobStore)(nil)

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{
		objects:    map[string][]byte{},
		failDelete: map[string]bool{},
		started:    make(chan struct{}),
	}
}

func (s *memoryBlobStore) Upload(ctx context.Context, objectPath string, reader io.Reader, size int64, contentType string, progress storage.ProgressFunc) (storage.UploadResult, error) {
	s.mu.Lock()
	s.uploads++
	block, failUpload := s.block, s.failUpload
	s.mu.Unlock()
	s.startedOnce.Do(func() { close(s.started) })

	if block != nil {
		select {
		case <-ctx.Done():
			return storage.UploadResult{}, ctx.Err()
		case <-block:
		}
	}
	if failUpload != nil {
		return storage.UploadResult{}, failUpload
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return storage.UploadResult{}, err
	}
	for sent := 0; sent < len(data); {
		sent += min(4, len(data)-sent)
		if progress != nil {
			progress(storage.ProgressEvent{BytesTransferred: int64(sent), TotalBytes: size})
		}
	}

	s.mu.Lock()
	s.objects[objectPath] = data
	s.mu.Unlock()
	return storage.UploadResult{Path: objectPath, Size: int64(len(data)), URL: "mem://" + objectPath}, nil
}

func (s *memoryBlobStore) URL(ctx context.Context, objectPath string) (string, error) {
	return "mem://" + objectPath, nil
}

func (s *memoryBlobStore) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[objectPath]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryBlobStore) Delete(ctx context.Context, objectPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete[objectPath] {
		return errors.New("delete refused")
	}
	delete(s.objects, objectPath)
	return nil
}

func (s *memoryBlobStore) EnsureBucket(ctx context.Context) error { return nil }

func (s *memoryBlobStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *memoryBlobStore) uploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.DocumentEvent
}

func (p *recordingPublisher) PublishJSON(queueName string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, v.(models.DocumentEvent))
	return nil
}

func (p *recordingPublisher) types() []models.DocumentEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.DocumentEventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// stepClock 每次调用前进一秒，保证上传时间严格递增
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type testEnv struct {
	svc     DocumentService
	repo    repositories.DocumentRepository
	blobs   *memoryBlobStore
	uploads *UploadManager
	catalog catalog.Catalog
	pub     *recordingPublisher
	metrics *metrics.Metrics
	cache   cache.Cache
	redis   *miniredis.Miniredis
	alice   models.Actor
	bob     models.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := cache.NewRedisCache(client)
	repo := repositories.NewMemoryDocumentRepository()
	blobs := newMemoryBlobStore()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	cat := catalog.NewCatalog(repo, c, nil, m, catalog.Options{})
	uploads := NewUploadManager(blobs, c)
	pub := &recordingPublisher{}
	clock := &stepClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}

	svc := NewDocumentService(repo, blobs, uploads, cat, ServiceDeps{
		Publisher: pub,
		Metrics:   m,
		Now:       clock.Now,
	})
	return &testEnv{
		svc:     svc,
		repo:    repo,
		blobs:   blobs,
		uploads: uploads,
		catalog: cat,
		pub:     pub,
		metrics: m,
		cache:   c,
		redis:   mr,
		alice:   models.NewActor("u-alice", "Alice", "alice@example.com"),
		bob:     models.NewActor("u-bob", "", ""),
	}
}

func newFile(name, content string) *FileInput {
	return &FileInput{
		Name:        name,
		Size:        int64(len(content)),
		ContentType: "application/pdf",
		Reader:      strings.NewReader(content),
	}
}

func validCreate() CreateInput {
	return CreateInput{
		Version:      "1.0",
		Code:         "X1",
		Area:         "Ops",
		Description:  "Procedimiento",
		VersionOwner: "Alice",
		Reviewer:     "Bob",
		Approver:     "Carol",
		Comments:     "primera versión",
	}
}

func validSupersede() SupersedeInput {
	return SupersedeInput{
		VersionOwner: "Alice",
		Reviewer:     "Bob",
		Approver:     "Carol",
	}
}

func (e *testEnv) create(t *testing.T) *models.VersionRecord {
	t.Helper()
	rec, err := e.svc.Create(context.Background(), e.alice, validCreate(), newFile("plan.pdf", "version one"))
	require.NoError(t, err)
	return rec
}

func (e *testEnv) heads(t *testing.T, rootID string) []models.VersionRecord {
	t.Helper()
	members, err := e.repo.ListChain(context.Background(), rootID)
	require.NoError(t, err)
	var out []models.VersionRecord
	for _, m := range members {
		if m.IsLatestVersion {
			out = append(out, m)
		}
	}
	return out
}
