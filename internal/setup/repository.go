package setup

import (
	"fmt"

	"github.com/3Eeeecho/go-docflow/internal/config"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/3Eeeecho/go-docflow/internal/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InitDocumentRepository 按 database.type 选择文档仓库，mysql 时同时返回 *gorm.DB 供关闭使用
func InitDocumentRepository(cfg *config.Config, fb *FirebaseClients) (repositories.DocumentRepository, *gorm.DB, error) {
	switch cfg.Database.Type {
	case config.DatabaseMySQL:
		db, err := InitMySQL(&cfg.MySQL)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewDBDocumentRepository(db, repositories.NewTransactionManager(db)), db, nil
	case config.DatabaseFirestore:
		if fb == nil || fb.Firestore == nil {
			return nil, nil, fmt.Errorf("firestore selected but client is not initialized")
		}
		return repositories.NewFirestoreDocumentRepository(fb.Firestore, cfg.Database.Collection), nil, nil
	case config.DatabaseMemory:
		logger.Warn("InitDocumentRepository: Using in-memory repository, data will not persist", zap.String("type", cfg.Database.Type))
		return repositories.NewMemoryDocumentRepository(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown database type %q", cfg.Database.Type)
	}
}
