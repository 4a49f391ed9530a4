package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dbDocumentRepository 基于 GORM/MySQL 的实现，版本历史以 JSON 列保存
type dbDocumentRepository struct {
	db *gorm.DB
	tm TransactionManager
}

var _ DocumentRepository = (*dbDocumentRepository)(nil)

// NewDBDocumentRepository 创建 MySQL 文档仓储
func NewDBDocumentRepository(db *gorm.DB, tm TransactionManager) DocumentRepository {
	return &dbDocumentRepository{db: db, tm: tm}
}

func (r *dbDocumentRepository) Create(ctx context.Context, record *models.VersionRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		logger.Error("Create: Failed to create version record in DB", zap.String("documentID", record.ID), zap.Error(err))
		return fmt.Errorf("failed to create version record: %w", xerr.ErrDatabaseError)
	}
	return nil
}

func (r *dbDocumentRepository) FindByID(ctx context.Context, id string) (*models.VersionRecord, error) {
	var record models.VersionRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrDocumentNotFound
		}
		logger.Error("FindByID: Failed to query version record", zap.String("documentID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to find version record: %w", xerr.ErrDatabaseError)
	}
	return &record, nil
}

func (r *dbDocumentRepository) ListLatest(ctx context.Context) ([]models.VersionRecord, error) {
	var records []models.VersionRecord
	err := r.db.WithContext(ctx).
		Where("is_latest_version = ?", true).
		Order("upload_date DESC").
		Find(&records).Error
	if err != nil {
		logger.Error("ListLatest: Failed to query chain heads", zap.Error(err))
		return nil, fmt.Errorf("failed to list latest versions: %w", xerr.ErrDatabaseError)
	}
	return records, nil
}

func (r *dbDocumentRepository) ListChain(ctx context.Context, rootID string) ([]models.VersionRecord, error) {
	var records []models.VersionRecord
	err := r.db.WithContext(ctx).
		Where("id = ? OR base_document_id = ?", rootID, rootID).
		Order("upload_date ASC").
		Find(&records).Error
	if err != nil {
		logger.Error("ListChain: Failed to query chain members", zap.String("chainRootID", rootID), zap.Error(err))
		return nil, fmt.Errorf("failed to list chain: %w", xerr.ErrDatabaseError)
	}
	return records, nil
}

func (r *dbDocumentRepository) Supersede(ctx context.Context, baseID string, build SuccessorBuilder) (*models.VersionRecord, error) {
	var next *models.VersionRecord
	err := r.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		// 1. 锁住当前链头，其他覆盖请求在此等待
		base, err := lockRecord(tx, baseID)
		if err != nil {
			return err
		}
		if !base.IsLatestVersion {
			return xerr.ErrChainHeadMoved
		}

		// 2. 构建新版本
		next, err = build(base)
		if err != nil {
			return err
		}
		if next.ID == "" {
			next.ID = uuid.NewString()
		}

		// 3. 旧链头标记为 obsolete，带条件更新
		res := tx.Model(&models.VersionRecord{}).
			Where("id = ? AND is_latest_version = ?", baseID, true).
			Updates(map[string]any{
				"is_latest_version": false,
				"status":            models.StatusObsolete,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark base obsolete: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return xerr.ErrChainHeadMoved
		}

		// 4. 插入新链头
		if err := tx.Create(next).Error; err != nil {
			return fmt.Errorf("failed to insert successor: %w", err)
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		logger.Error("Supersede: Transaction failed", zap.String("baseID", baseID), zap.Error(err))
		return nil, fmt.Errorf("supersede %s: %w", baseID, xerr.ErrDatabaseError)
	}
	return next, nil
}

func (r *dbDocumentRepository) UpdateReview(ctx context.Context, id string, update models.ReviewUpdate) (*models.VersionRecord, error) {
	var record *models.VersionRecord
	err := r.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		record, err = lockRecord(tx, id)
		if err != nil {
			return err
		}
		if !record.IsLatestVersion {
			// 已被 supersede 的记录保持 obsolete
			return xerr.ErrNotChainHead
		}

		fields := map[string]any{
			"status":   update.Status,
			"comments": update.Comments,
		}
		if update.ReviewDate != nil {
			fields["review_date"] = *update.ReviewDate
		}
		if update.ApprovalDate != nil {
			fields["approval_date"] = *update.ApprovalDate
		}
		res := tx.Model(&models.VersionRecord{}).Where("id = ? AND is_latest_version = ?", id, true).Updates(fields)
		if res.Error != nil {
			return fmt.Errorf("failed to update review fields: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return xerr.ErrNotChainHead
		}
		update.Apply(record)
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		logger.Error("UpdateReview: Transaction failed", zap.String("documentID", id), zap.Error(err))
		return nil, fmt.Errorf("update review %s: %w", id, xerr.ErrDatabaseError)
	}
	return record, nil
}

func (r *dbDocumentRepository) DeleteChain(ctx context.Context, rootID string) (int, error) {
	var deleted int64
	err := r.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Where("id = ? OR base_document_id = ?", rootID, rootID).Delete(&models.VersionRecord{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		logger.Error("DeleteChain: Failed to delete chain metadata", zap.String("chainRootID", rootID), zap.Error(err))
		return 0, fmt.Errorf("delete chain %s: %w", rootID, xerr.ErrDatabaseError)
	}
	return int(deleted), nil
}

// lockRecord SELECT ... FOR UPDATE
func lockRecord(tx *gorm.DB, id string) (*models.VersionRecord, error) {
	var record models.VersionRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to lock record: %w", err)
	}
	return &record, nil
}

// isDomainError 业务错误原样返回，其余统一包装为数据库错误
func isDomainError(err error) bool {
	return errors.Is(err, xerr.ErrChainHeadMoved) ||
		errors.Is(err, xerr.ErrDocumentNotFound) ||
		errors.Is(err, xerr.ErrValidationFailed) ||
		errors.Is(err, xerr.ErrNotChainHead)
}
