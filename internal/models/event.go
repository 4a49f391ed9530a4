package models

import "time"

// DocumentEventType 文档事件类型
type DocumentEventType string

const (
	EventDocumentCreated    DocumentEventType = "created"
	EventDocumentSuperseded DocumentEventType = "superseded"
	EventDocumentReviewed   DocumentEventType = "reviewed"
	EventDocumentRemoved    DocumentEventType = "removed"
)

// DocumentEvent 发布到 document_events_queue 的消息体
type DocumentEvent struct {
	Type         DocumentEventType `json:"type"`
	DocumentID   string            `json:"documentId"`
	ChainRootID  string            `json:"chainRootId"`
	SupersededID string            `json:"supersededId,omitempty"` // 仅 superseded 事件
	Version      string            `json:"version"`
	Status       DocumentStatus    `json:"status"`
	ActorUID     string            `json:"actorUid"`
	OccurredAt   time.Time         `json:"occurredAt"`
}
