package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const resyncTimeout = 30 * time.Second

// StartResync 按计划定期重建快照，多实例部署时用来收敛其他实例写入的变更
// schedule 为空时不启动，返回 nil
func StartResync(c Catalog, schedule string) (*cron.Cron, error) {
	if schedule == "" {
		logger.Info("StartResync: Catalog resync disabled")
		return nil, nil
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(schedule, func() { resync(c) }); err != nil {
		return nil, fmt.Errorf("invalid catalog resync schedule %q: %w", schedule, err)
	}
	scheduler.Start()
	logger.Info("StartResync: Catalog resync scheduled", zap.String("schedule", schedule))
	return scheduler, nil
}

func resync(c Catalog) {
	ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
	defer cancel()

	heads, err := c.Refresh(ctx)
	if err != nil {
		logger.Warn("resync: Catalog refresh failed", zap.Error(err))
		return
	}
	logger.Debug("resync: Catalog refreshed", zap.Int("heads", len(heads)))
}
