package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/google/uuid"
)

// memoryDocumentRepository 进程内实现，用于本地开发 (database.type=memory) 和单元测试
type memoryDocumentRepository struct {
	mu      sync.Mutex
	records map[string]models.VersionRecord
}

var _ DocumentRepository = (*memoryDocumentRepository)(nil)

func NewMemoryDocumentRepository() DocumentRepository {
	return &memoryDocumentRepository{records: map[string]models.VersionRecord{}}
}

func (r *memoryDocumentRepository) Create(ctx context.Context, record *models.VersionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	r.records[record.ID] = cloneRecord(*record)
	return nil
}

func (r *memoryDocumentRepository) FindByID(ctx context.Context, id string) (*models.VersionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, xerr.ErrDocumentNotFound
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (r *memoryDocumentRepository) ListLatest(ctx context.Context) ([]models.VersionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.VersionRecord, 0)
	for _, rec := range r.records {
		if rec.IsLatestVersion {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UploadDate.After(out[j].UploadDate)
	})
	return out, nil
}

func (r *memoryDocumentRepository) ListChain(ctx context.Context, rootID string) ([]models.VersionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.VersionRecord, 0)
	for _, rec := range r.records {
		if inChain(rec, rootID) {
			out = append(out, cloneRecord(rec))
		}
	}
	sortByUploadDate(out)
	return out, nil
}

func (r *memoryDocumentRepository) Supersede(ctx context.Context, baseID string, build SuccessorBuilder) (*models.VersionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	base, ok := r.records[baseID]
	if !ok {
		return nil, xerr.ErrDocumentNotFound
	}
	if !base.IsLatestVersion {
		return nil, xerr.ErrChainHeadMoved
	}

	baseCopy := cloneRecord(base)
	next, err := build(&baseCopy)
	if err != nil {
		return nil, err
	}
	if next.ID == "" {
		next.ID = uuid.NewString()
	}

	// 锁内同时写入两条记录
	base.IsLatestVersion = false
	base.Status = models.StatusObsolete
	r.records[baseID] = base
	r.records[next.ID] = cloneRecord(*next)
	return next, nil
}

func (r *memoryDocumentRepository) UpdateReview(ctx context.Context, id string, update models.ReviewUpdate) (*models.VersionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, xerr.ErrDocumentNotFound
	}
	if !rec.IsLatestVersion {
		return nil, xerr.ErrNotChainHead
	}
	update.Apply(&rec)
	r.records[id] = rec
	out := cloneRecord(rec)
	return &out, nil
}

func (r *memoryDocumentRepository) DeleteChain(ctx context.Context, rootID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, rec := range r.records {
		if inChain(rec, rootID) {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

func inChain(rec models.VersionRecord, rootID string) bool {
	return rec.ID == rootID || (rec.BaseDocumentID != nil && *rec.BaseDocumentID == rootID)
}

// cloneRecord 深拷贝，避免调用方修改仓储内部状态
func cloneRecord(r models.VersionRecord) models.VersionRecord {
	out := r
	if r.BaseDocumentID != nil {
		v := *r.BaseDocumentID
		out.BaseDocumentID = &v
	}
	if r.ReviewDate != nil {
		v := *r.ReviewDate
		out.ReviewDate = &v
	}
	if r.ApprovalDate != nil {
		v := *r.ApprovalDate
		out.ApprovalDate = &v
	}
	if r.VersionHistory != nil {
		out.VersionHistory = append([]models.VersionLogEntry(nil), r.VersionHistory...)
	}
	return out
}
