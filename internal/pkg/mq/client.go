package mq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/3Eeeecho/go-docflow/internal/pkg/logger"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// DocumentEventsQueue 文档变更事件队列
const DocumentEventsQueue = "document_events_queue"

// 每个消费者未确认消息的上限
const consumerPrefetch = 16

// Publisher 服务层只依赖发布能力
type Publisher interface {
	PublishJSON(queueName string, v any) error
}

// RabbitMQClient 一个连接一个通道，发布与消费共用
type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex // amqp.Channel 不支持并发发布
}

var _ Publisher = (*RabbitMQClient)(nil)

func NewRabbitMQClient(amqpURL string) (*RabbitMQClient, error) {
	conn, err := amqp.DialConfig(amqpURL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set channel qos: %w", err)
	}

	// 连接断开只记录日志，事件发布失败不影响文档操作
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if e, ok := <-closed; ok && e != nil {
			logger.Error("RabbitMQClient: Connection closed", zap.Int("code", e.Code), zap.String("reason", e.Reason))
		}
	}()

	return &RabbitMQClient{conn: conn, channel: ch}, nil
}

// DeclareQueue 声明持久化队列，重复声明是幂等的
func (c *RabbitMQClient) DeclareQueue(queueName string) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel.QueueDeclare(queueName, true, false, false, false, nil)
}

// PublishJSON 以持久化消息发布到默认交换机
func (c *RabbitMQClient) PublishJSON(queueName string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish("", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queueName, err)
	}
	return nil
}

// Consume 手动确认模式，handler 负责 Ack/Nack
func (c *RabbitMQClient) Consume(queueName string, handler func(msg amqp.Delivery)) error {
	c.mu.Lock()
	msgs, err := c.channel.Consume(queueName, "", false, false, false, false, nil)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			handler(msg)
		}
		logger.Warn("Consume: Delivery channel closed", zap.String("queue", queueName))
	}()

	logger.Info("Consume: Waiting for messages", zap.String("queue", queueName))
	return nil
}

func (c *RabbitMQClient) Close() {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			logger.Warn("Close: Failed to close RabbitMQ channel", zap.Error(err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			logger.Warn("Close: Failed to close RabbitMQ connection", zap.Error(err))
		}
	}
}
