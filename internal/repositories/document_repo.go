package repositories

import (
	"context"

	"github.com/3Eeeecho/go-docflow/internal/models"
)

// SuccessorBuilder 在事务内根据已加锁的链头构建新版本
type SuccessorBuilder func(base *models.VersionRecord) (*models.VersionRecord, error)

// DocumentRepository 定义文档版本记录的数据访问层接口
type DocumentRepository interface {
	// Create 插入一条记录，ID 为空时自动分配
	Create(ctx context.Context, record *models.VersionRecord) error
	FindByID(ctx context.Context, id string) (*models.VersionRecord, error)
	// ListLatest 所有链头，按上传时间倒序
	ListLatest(ctx context.Context) ([]models.VersionRecord, error)
	// ListChain 链根及所有 baseDocumentId 指向它的记录，按上传时间正序
	ListChain(ctx context.Context, rootID string) ([]models.VersionRecord, error)

	// Supersede 在同一事务中：读取 base，确认仍是链头，标记为 obsolete，插入新版本
	// base 已不是链头时返回 xerr.ErrChainHeadMoved
	Supersede(ctx context.Context, baseID string, build SuccessorBuilder) (*models.VersionRecord, error)
	UpdateReview(ctx context.Context, id string, update models.ReviewUpdate) (*models.VersionRecord, error)
	// DeleteChain 一次性删除整条链的元数据，返回删除条数
	DeleteChain(ctx context.Context, rootID string) (int, error)
}
