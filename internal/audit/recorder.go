package audit

import (
	"context"
	"log/slog"
	"time"

	"Supervisor-Integration-Agent/internal/protocol"
	"Supervisor-Integration-Agent/pkg/logger"
)

// Recorder 在每次查询处理结束后把使用记录投递到审计队列。
// 投递是尽力而为的：队列故障只记录日志，不影响查询结果。
type Recorder struct {
	producer Producer
	logger   *slog.Logger
}

// NewRecorder 创建 Recorder。producer 为 nil 时记录被直接丢弃。
func NewRecorder(producer Producer) *Recorder {
	return &Recorder{
		producer: producer,
		logger:   logger.Named("audit"),
	}
}

// Record 逐条投递使用记录。
func (r *Recorder) Record(ctx context.Context, conversationID string, used []protocol.UsedAgentEntry) {
	if r == nil || r.producer == nil || len(used) == 0 {
		return
	}
	now := time.Now().Unix()
	for _, entry := range used {
		if err := r.producer.Publish(ctx, NewEntry(conversationID, entry, now)); err != nil {
			r.logger.Warn("投递审计事件失败",
				slog.Any("error", err),
				slog.String("conversation_id", conversationID),
				slog.String("agent", entry.Name),
			)
			return
		}
	}
}
