package audit

import (
	"context"
	"encoding/json"

	xerrors "Supervisor-Integration-Agent/internal/errors"
	"Supervisor-Integration-Agent/internal/protocol"
)

// Entry 是一次智能体调用的审计事件。
type Entry struct {
	ConversationID string `json:"conversation_id"`
	Agent          string `json:"agent"`
	Intent         string `json:"intent"`
	Status         string `json:"status"`
	OccurredAt     int64  `json:"occurred_at"`
}

// NewEntry 由使用记录构造审计事件。
func NewEntry(conversationID string, used protocol.UsedAgentEntry, occurredAt int64) Entry {
	return Entry{
		ConversationID: conversationID,
		Agent:          used.Name,
		Intent:         used.Intent,
		Status:         used.Status,
		OccurredAt:     occurredAt,
	}
}

// Encode 将事件序列化为队列消息体。
func (e Entry) Encode() ([]byte, error) {
	encoded, err := json.Marshal(e)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeQueueFailure, err, "序列化审计事件失败")
	}
	return encoded, nil
}

// DecodeEntry 从队列消息体还原事件。
func DecodeEntry(payload []byte) (Entry, error) {
	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return Entry{}, xerrors.Wrap(xerrors.CodeQueueFailure, err, "解析审计事件失败")
	}
	return entry, nil
}

// Handler 处理来自队列的审计事件。
type Handler func(ctx context.Context, entry Entry) error

// Producer 负责向队列投递审计事件。
type Producer interface {
	Publish(ctx context.Context, entry Entry) error
	Close() error
}

// Consumer 负责从队列中消费审计事件。
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue 同时具备生产者与消费者能力。
type Queue interface {
	Producer
	Consumer
}
