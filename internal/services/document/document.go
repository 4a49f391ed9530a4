package document

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/3Eeeecho/go-docflow/internal/pkg/mapper"
	"github.com/3Eeeecho/go-docflow/internal/pkg/metrics"
	"github.com/3Eeeecho/go-docflow/internal/pkg/mq"
	"github.com/3Eeeecho/go-docflow/internal/pkg/storage"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/3Eeeecho/go-docflow/internal/repositories"
	"github.com/3Eeeecho/go-docflow/internal/services/catalog"
	"github.com/3Eeeecho/go-docflow/internal/services/versioning"
	"go.uber.org/zap"
)

const (
	opCreate    = "create"
	opSupersede = "supersede"
	opReview    = "review"
	opRemove    = "remove"
	opArchive   = "archive"
)

// CreateInput 新建文档的两步表单
type CreateInput struct {
	Version       string
	Code          string
	Area          string
	Description   string
	InitialStatus string
	VersionOwner  string
	Reviewer      string
	Approver      string
	Comments      string
	UploadID      string
}

// SupersedeInput code/area/description 为空时沿用当前链头
type SupersedeInput struct {
	Code          string
	Area          string
	Description   string
	InitialStatus string
	VersionOwner  string
	Reviewer      string
	Approver      string
	Comments      string
	UploadID      string
}

type ReviewInput struct {
	Status   models.DocumentStatus
	Comments string
}

// FileInput 待上传的文件，Reader 由调用方关闭
type FileInput struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

type DocumentService interface {
	Create(ctx context.Context, actor models.Actor, in CreateInput, file *FileInput) (*models.VersionRecord, error)
	Supersede(ctx context.Context, actor models.Actor, baseID string, in SupersedeInput, file *FileInput) (*models.VersionRecord, error)
	Review(ctx context.Context, actor models.Actor, id string, in ReviewInput) (*models.VersionRecord, error)
	// Remove 删除 id 所在的整条版本链，返回删除的记录数
	Remove(ctx context.Context, actor models.Actor, id string) (int, error)

	Get(ctx context.Context, id string) (*models.VersionRecord, error)
	// LatestVersionID 从目录快照中查找 rec 所在链的链头 id
	LatestVersionID(rec *models.VersionRecord) (string, bool)
	List(ctx context.Context, f catalog.Filter) (catalog.Page, error)
	History(ctx context.Context, id string) (*models.DocumentHistoryResponse, error)
	DownloadURL(ctx context.Context, id string) (string, error)
	// Archive 将链上每个版本的文件打包成 zip 写入 w，返回链根 id
	Archive(ctx context.Context, id string, w io.Writer) (string, error)
}

type ServiceDeps struct {
	Publisher  mq.Publisher     // 可为 nil
	Metrics    *metrics.Metrics // 可为 nil
	PathPrefix string
	Now        func() time.Time
}

type documentService struct {
	repo    repositories.DocumentRepository
	blobs   storage.BlobStore
	uploads *UploadManager
	catalog catalog.Catalog
	deps    ServiceDeps
}

var _ DocumentService = (*documentService)(nil)

func NewDocumentService(
	repo repositories.DocumentRepository,
	blobs storage.BlobStore,
	uploads *UploadManager,
	cat catalog.Catalog,
	deps ServiceDeps,
) DocumentService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &documentService{
		repo:    repo,
		blobs:   blobs,
		uploads: uploads,
		catalog: cat,
		deps:    deps,
	}
}

func (s *documentService) Create(ctx context.Context, actor models.Actor, in CreateInput, file *FileInput) (rec *models.VersionRecord, err error) {
	start := time.Now()
	defer func() { s.deps.Metrics.RecordOperation(opCreate, start, err) }()

	a := versioning.Assignment{
		Version:       strings.TrimSpace(in.Version),
		Code:          strings.TrimSpace(in.Code),
		Area:          strings.TrimSpace(in.Area),
		Description:   strings.TrimSpace(in.Description),
		InitialStatus: in.InitialStatus,
		VersionOwner:  strings.TrimSpace(in.VersionOwner),
		Reviewer:      strings.TrimSpace(in.Reviewer),
		Approver:      strings.TrimSpace(in.Approver),
		Comments:      in.Comments,
	}
	if err := validateAssignment(a, true, file); err != nil {
		logger.Warn("Create: Validation failed", zap.String("uid", actor.UID), zap.Error(err))
		return nil, err
	}

	facts, err := s.upload(ctx, actor, in.UploadID, file)
	if err != nil {
		return nil, err
	}

	rec = versioning.BuildRoot(actor, a, facts, s.deps.Now())
	if err := s.repo.Create(ctx, rec); err != nil {
		// 上传成功但元数据写入失败，文件成为孤立对象
		logger.Error("Create: Failed to insert version record, blob orphaned",
			zap.String("path", facts.FilePath), zap.String("uid", actor.UID), zap.Error(err))
		return nil, fmt.Errorf("document service: failed to create record: %w", err)
	}

	logger.Info("Create: Document created",
		zap.String("documentID", rec.ID), zap.String("version", rec.Version), zap.String("status", string(rec.Status)))
	s.afterMutation(ctx, models.DocumentEvent{
		Type:        models.EventDocumentCreated,
		DocumentID:  rec.ID,
		ChainRootID: rec.ID,
		Version:     rec.Version,
		Status:      rec.Status,
		ActorUID:    actor.UID,
	})
	return rec, nil
}

func (s *documentService) Supersede(ctx context.Context, actor models.Actor, baseID string, in SupersedeInput, file *FileInput) (rec *models.VersionRecord, err error) {
	start := time.Now()
	defer func() { s.deps.Metrics.RecordOperation(opSupersede, start, err) }()

	a := versioning.Assignment{
		Code:          strings.TrimSpace(in.Code),
		Area:          strings.TrimSpace(in.Area),
		Description:   strings.TrimSpace(in.Description),
		InitialStatus: in.InitialStatus,
		VersionOwner:  strings.TrimSpace(in.VersionOwner),
		Reviewer:      strings.TrimSpace(in.Reviewer),
		Approver:      strings.TrimSpace(in.Approver),
		Comments:      in.Comments,
	}
	if err := validateAssignment(a, false, file); err != nil {
		logger.Warn("Supersede: Validation failed", zap.String("baseID", baseID), zap.Error(err))
		return nil, err
	}

	base, err := s.repo.FindByID(ctx, baseID)
	if err != nil {
		return nil, fmt.Errorf("document service: failed to load base %s: %w", baseID, err)
	}
	if !base.IsLatestVersion {
		logger.Warn("Supersede: Base is not the chain head", zap.String("baseID", baseID), zap.String("status", string(base.Status)))
		return nil, fmt.Errorf("document service: supersede %s: %w", baseID, xerr.ErrNotChainHead)
	}

	facts, err := s.upload(ctx, actor, in.UploadID, file)
	if err != nil {
		return nil, err
	}

	now := s.deps.Now()
	rec, err = s.repo.Supersede(ctx, baseID, func(current *models.VersionRecord) (*models.VersionRecord, error) {
		// 事务内读到的链头为准，空字段沿用它的值
		return versioning.BuildSuccessor(current, actor, withDefaults(a, current), facts, now), nil
	})
	if err != nil {
		logger.Error("Supersede: Failed to supersede chain head, blob orphaned",
			zap.String("baseID", baseID), zap.String("path", facts.FilePath), zap.Error(err))
		return nil, fmt.Errorf("document service: supersede %s: %w", baseID, err)
	}

	rootID := versioning.ResolveChainRoot(rec)
	logger.Info("Supersede: New chain head created",
		zap.String("documentID", rec.ID), zap.String("chainRootID", rootID),
		zap.String("supersededID", baseID), zap.String("version", rec.Version))
	s.afterMutation(ctx, models.DocumentEvent{
		Type:         models.EventDocumentSuperseded,
		DocumentID:   rec.ID,
		ChainRootID:  rootID,
		SupersededID: baseID,
		Version:      rec.Version,
		Status:       rec.Status,
		ActorUID:     actor.UID,
	})
	return rec, nil
}

func (s *documentService) Review(ctx context.Context, actor models.Actor, id string, in ReviewInput) (rec *models.VersionRecord, err error) {
	start := time.Now()
	defer func() { s.deps.Metrics.RecordOperation(opReview, start, err) }()

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("document service: failed to load %s: %w", id, err)
	}
	if !current.IsLatestVersion {
		logger.Warn("Review: Record is not the chain head", zap.String("documentID", id))
		return nil, fmt.Errorf("document service: review %s: %w", id, xerr.ErrNotChainHead)
	}

	update, err := versioning.PlanReview(in.Status, in.Comments, s.deps.Now())
	if err != nil {
		logger.Warn("Review: Invalid review target", zap.String("documentID", id), zap.String("status", string(in.Status)))
		return nil, fmt.Errorf("document service: review %s: %w", id, err)
	}

	rec, err = s.repo.UpdateReview(ctx, id, update)
	if err != nil {
		logger.Error("Review: Failed to update review status", zap.String("documentID", id), zap.Error(err))
		return nil, fmt.Errorf("document service: review %s: %w", id, err)
	}

	logger.Info("Review: Status updated",
		zap.String("documentID", id), zap.String("from", string(current.Status)), zap.String("to", string(rec.Status)))
	s.afterMutation(ctx, models.DocumentEvent{
		Type:        models.EventDocumentReviewed,
		DocumentID:  rec.ID,
		ChainRootID: versioning.ResolveChainRoot(rec),
		Version:     rec.Version,
		Status:      rec.Status,
		ActorUID:    actor.UID,
	})
	return rec, nil
}

func (s *documentService) Remove(ctx context.Context, actor models.Actor, id string) (n int, err error) {
	start := time.Now()
	defer func() { s.deps.Metrics.RecordOperation(opRemove, start, err) }()

	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("document service: failed to load %s: %w", id, err)
	}
	rootID := versioning.ResolveChainRoot(rec)

	members, err := s.repo.ListChain(ctx, rootID)
	if err != nil {
		logger.Error("Remove: Failed to list chain", zap.String("chainRootID", rootID), zap.Error(err))
		return 0, fmt.Errorf("document service: list chain %s: %w", rootID, err)
	}

	// 先删文件；任何一个失败都不删元数据，剩余记录仍指向未删除的文件
	var failed []string
	for _, m := range members {
		if m.FilePath == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, m.FilePath); err != nil {
			logger.Error("Remove: Failed to delete blob",
				zap.String("chainRootID", rootID), zap.String("documentID", m.ID), zap.String("path", m.FilePath), zap.Error(err))
			failed = append(failed, m.FilePath)
		}
	}
	if len(failed) > 0 {
		return 0, fmt.Errorf("document service: remove %s: %d blob(s) not deleted: %w", rootID, len(failed), xerr.ErrStorageError)
	}

	n, err = s.repo.DeleteChain(ctx, rootID)
	if err != nil {
		ids := make([]string, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.ID)
		}
		logger.Error("Remove: Blobs deleted but metadata delete failed, records dangling",
			zap.String("chainRootID", rootID), zap.Strings("documentIDs", ids), zap.Error(err))
		return 0, fmt.Errorf("document service: delete chain %s: %w", rootID, err)
	}

	logger.Info("Remove: Chain removed", zap.String("chainRootID", rootID), zap.Int("records", n))
	s.afterMutation(ctx, models.DocumentEvent{
		Type:        models.EventDocumentRemoved,
		DocumentID:  id,
		ChainRootID: rootID,
		Version:     rec.Version,
		Status:      rec.Status,
		ActorUID:    actor.UID,
	})
	return n, nil
}

func (s *documentService) Get(ctx context.Context, id string) (*models.VersionRecord, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("document service: get %s: %w", id, err)
	}
	return rec, nil
}

func (s *documentService) LatestVersionID(rec *models.VersionRecord) (string, bool) {
	head, ok := s.catalog.HeadOf(versioning.ResolveChainRoot(rec))
	if !ok {
		return "", false
	}
	return head.ID, true
}

func (s *documentService) List(ctx context.Context, f catalog.Filter) (catalog.Page, error) {
	page, err := s.catalog.Query(ctx, f)
	if err != nil {
		logger.Warn("List: Catalog query failed", zap.String("status", f.Status), zap.Error(err))
		return catalog.Page{}, fmt.Errorf("document service: list: %w", err)
	}
	return page, nil
}

func (s *documentService) History(ctx context.Context, id string) (*models.DocumentHistoryResponse, error) {
	rootID, members, err := s.chainOf(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &models.DocumentHistoryResponse{
		ChainRootID: rootID,
		Members:     mapper.ToDocumentResponses(members),
		Entries:     []models.VersionLogEntry{},
	}
	if head := headOf(members); head != nil {
		h := mapper.ToDocumentResponse(head)
		resp.Head = &h
		resp.Entries = head.VersionHistory
	}
	return resp, nil
}

func (s *documentService) DownloadURL(ctx context.Context, id string) (string, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("document service: download %s: %w", id, err)
	}
	url, err := s.blobs.URL(ctx, rec.FilePath)
	if err != nil {
		logger.Error("DownloadURL: Failed to get blob URL", zap.String("documentID", id), zap.String("path", rec.FilePath), zap.Error(err))
		return "", fmt.Errorf("document service: download %s: %w", id, xerr.ErrStorageError)
	}
	return url, nil
}

func (s *documentService) Archive(ctx context.Context, id string, w io.Writer) (rootID string, err error) {
	start := time.Now()
	defer func() { s.deps.Metrics.RecordOperation(opArchive, start, err) }()

	rootID, members, err := s.chainOf(ctx, id)
	if err != nil {
		return "", err
	}
	if err := writeArchive(ctx, s.blobs, members, w); err != nil {
		logger.Error("Archive: Failed to write chain archive", zap.String("chainRootID", rootID), zap.Error(err))
		return rootID, fmt.Errorf("document service: archive %s: %w", rootID, err)
	}
	logger.Info("Archive: Chain archive written", zap.String("chainRootID", rootID), zap.Int("files", len(members)))
	return rootID, nil
}

// chainOf 从链上任意成员找到整条链
func (s *documentService) chainOf(ctx context.Context, id string) (string, []models.VersionRecord, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", nil, fmt.Errorf("document service: load %s: %w", id, err)
	}
	rootID := versioning.ResolveChainRoot(rec)
	members, err := s.repo.ListChain(ctx, rootID)
	if err != nil {
		return "", nil, fmt.Errorf("document service: list chain %s: %w", rootID, err)
	}
	return rootID, members, nil
}

// upload 启动上传任务并等待完成
func (s *documentService) upload(ctx context.Context, actor models.Actor, uploadID string, file *FileInput) (versioning.UploadFacts, error) {
	path := storage.ObjectPath(s.deps.PathPrefix, actor.UID, file.Name, s.deps.Now())
	task := s.uploads.Start(ctx, UploadSpec{
		UploadID:    uploadID,
		ObjectPath:  path,
		Reader:      file.Reader,
		Size:        file.Size,
		ContentType: file.ContentType,
	})
	res, err := task.Wait()
	if err != nil {
		return versioning.UploadFacts{}, fmt.Errorf("document service: upload %s: %w", file.Name, err)
	}
	s.deps.Metrics.RecordUploadBytes(res.Size)

	url := res.URL
	if url == "" {
		if url, err = s.blobs.URL(ctx, res.Path); err != nil {
			// 下载地址可以在下载时重新生成
			logger.Warn("upload: Failed to resolve blob URL", zap.String("path", res.Path), zap.Error(err))
		}
	}
	return versioning.UploadFacts{
		FileName: file.Name,
		FileSize: res.Size,
		FileType: file.ContentType,
		FilePath: res.Path,
		FileURL:  url,
	}, nil
}

// afterMutation 刷新目录并发布事件，两者失败都只记录日志
func (s *documentService) afterMutation(ctx context.Context, ev models.DocumentEvent) {
	if _, err := s.catalog.Refresh(ctx); err != nil {
		logger.Warn("afterMutation: Catalog refresh failed", zap.String("documentID", ev.DocumentID), zap.Error(err))
	}
	if s.deps.Publisher == nil {
		return
	}
	ev.OccurredAt = s.deps.Now()
	if err := s.deps.Publisher.PublishJSON(mq.DocumentEventsQueue, ev); err != nil {
		logger.Error("afterMutation: Failed to publish document event",
			zap.String("type", string(ev.Type)), zap.String("documentID", ev.DocumentID), zap.Error(err))
	}
}

func validateAssignment(a versioning.Assignment, requireDescriptors bool, file *FileInput) error {
	var fields []string
	if requireDescriptors {
		for _, f := range []struct{ name, value string }{
			{"version", a.Version},
			{"code", a.Code},
			{"area", a.Area},
			{"description", a.Description},
		} {
			if f.value == "" {
				fields = append(fields, f.name)
			}
		}
	}
	if a.VersionOwner == "" {
		fields = append(fields, "version_owner")
	}
	if a.Reviewer == "" {
		fields = append(fields, "reviewer")
	}
	if a.Approver == "" {
		fields = append(fields, "approver")
	}
	if err := xerr.NewValidationError(fields); err != nil {
		return err
	}
	if file == nil || file.Reader == nil || strings.TrimSpace(file.Name) == "" {
		return fmt.Errorf("document service: %w", xerr.ErrFileRequired)
	}
	return nil
}

func withDefaults(a versioning.Assignment, base *models.VersionRecord) versioning.Assignment {
	if a.Code == "" {
		a.Code = base.Code
	}
	if a.Area == "" {
		a.Area = base.Area
	}
	if a.Description == "" {
		a.Description = base.Description
	}
	return a
}

// headOf 链头；链上没有 isLatestVersion 记录时返回最后上传的一条
func headOf(members []models.VersionRecord) *models.VersionRecord {
	for i := range members {
		if members[i].IsLatestVersion {
			return &members[i]
		}
	}
	if len(members) == 0 {
		return nil
	}
	return &members[len(members)-1]
}
