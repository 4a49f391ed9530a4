package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// TransactionManager 版本链的多行写入 (supersede / 审核 / 级联删除) 必须在同一事务内完成
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transactionManager struct {
	db *gorm.DB
}

var _ TransactionManager = (*transactionManager)(nil)

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

// WithTransaction fn 返回错误或 panic 时回滚，fn 的错误原样返回
func (tm *transactionManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	tx := tm.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin transaction: %w", tx.Error)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		tx.Rollback()
		if r := recover(); r != nil {
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit().Error; err != nil {
		committed = true // 提交失败后不再回滚
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
