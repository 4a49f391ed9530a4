package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/3Eeeecho/go-docflow/internal/models"
	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/3Eeeecho/go-docflow/internal/pkg/mq"
	"github.com/3Eeeecho/go-docflow/internal/pkg/xerr"
	"github.com/3Eeeecho/go-docflow/internal/repositories"
	"github.com/3Eeeecho/go-docflow/internal/services/search"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Consumer RabbitMQClient 的消费能力
type Consumer interface {
	DeclareQueue(queueName string) (amqp.Queue, error)
	Consume(queueName string, handler func(msg amqp.Delivery)) error
}

// IndexWorker 消费文档事件，使搜索索引只包含链头
type IndexWorker struct {
	consumer Consumer
	repo     repositories.DocumentRepository
	index    search.DocumentIndex
}

func NewIndexWorker(consumer Consumer, repo repositories.DocumentRepository, index search.DocumentIndex) *IndexWorker {
	return &IndexWorker{
		consumer: consumer,
		repo:     repo,
		index:    index,
	}
}

func (w *IndexWorker) Start() error {
	if _, err := w.consumer.DeclareQueue(mq.DocumentEventsQueue); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", mq.DocumentEventsQueue, err)
	}
	if err := w.consumer.Consume(mq.DocumentEventsQueue, w.HandleEvent); err != nil {
		return fmt.Errorf("failed to start consuming from %s: %w", mq.DocumentEventsQueue, err)
	}
	logger.Info("Start: Index worker started", zap.String("queue", mq.DocumentEventsQueue))
	return nil
}

func (w *IndexWorker) HandleEvent(msg amqp.Delivery) {
	var ev models.DocumentEvent
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		logger.Error("HandleEvent: Failed to unmarshal document event", zap.Error(err))
		_ = msg.Nack(false, false) // 解析失败,直接抛弃
		return
	}

	logger.Info("HandleEvent: Received document event",
		zap.String("type", string(ev.Type)), zap.String("documentID", ev.DocumentID), zap.String("chainRootID", ev.ChainRootID))

	err := w.apply(context.Background(), ev)
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, errUnknownEvent):
		logger.Error("HandleEvent: Unknown event type, dropping", zap.String("type", string(ev.Type)))
		_ = msg.Nack(false, false)
	default:
		logger.Error("HandleEvent: Failed to apply event, requeueing",
			zap.String("type", string(ev.Type)), zap.String("documentID", ev.DocumentID), zap.Error(err))
		_ = msg.Nack(false, true) // 重新入队
	}
}

var errUnknownEvent = errors.New("unknown document event type")

func (w *IndexWorker) apply(ctx context.Context, ev models.DocumentEvent) error {
	switch ev.Type {
	case models.EventDocumentCreated, models.EventDocumentReviewed:
		return w.syncRecord(ctx, ev.DocumentID)
	case models.EventDocumentSuperseded:
		if ev.SupersededID != "" {
			if err := w.index.Delete(ctx, ev.SupersededID); err != nil {
				return err
			}
		}
		return w.syncRecord(ctx, ev.DocumentID)
	case models.EventDocumentRemoved:
		return w.index.DeleteChain(ctx, ev.ChainRootID)
	default:
		return errUnknownEvent
	}
}

// syncRecord 以数据库当前状态为准：仍是链头则写入索引，否则从索引移除
func (w *IndexWorker) syncRecord(ctx context.Context, id string) error {
	rec, err := w.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, xerr.ErrDocumentNotFound) {
			// 记录已被删除，removed 事件会清理索引
			logger.Info("syncRecord: Document no longer exists", zap.String("documentID", id))
			return w.index.Delete(ctx, id)
		}
		return err
	}
	if !rec.IsLatestVersion {
		return w.index.Delete(ctx, id)
	}
	return w.index.IndexHead(ctx, rec)
}
