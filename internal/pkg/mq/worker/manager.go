package worker

import (
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/3Eeeecho/go-docflow/internal/repositories"
	"github.com/3Eeeecho/go-docflow/internal/services/search"
	"go.uber.org/zap"
)

// StartAllWorkers 启动应用中所有定义的后台 Worker
func StartAllWorkers(
	consumer Consumer,
	repo repositories.DocumentRepository,
	index search.DocumentIndex,
) {
	// --- 启动索引同步 Worker ---
	if index != nil {
		indexWorker := NewIndexWorker(consumer, repo, index)
		if err := indexWorker.Start(); err != nil {
			logger.Error("StartAllWorkers: Failed to start index worker", zap.Error(err))
		}
	} else {
		logger.Info("StartAllWorkers: Elasticsearch not configured, index worker skipped")
	}

	logger.Info("所有后台工作进程已启动。")
}
