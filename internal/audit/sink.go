package audit

import (
	"context"
	"log/slog"

	"Supervisor-Integration-Agent/internal/observability/alerting"
	"Supervisor-Integration-Agent/internal/protocol"
	"Supervisor-Integration-Agent/pkg/logger"
)

// Sink 消费审计队列，将事件镜像到审计日志，并对错误状态的调用
// 触发告警。
type Sink struct {
	consumer    Consumer
	alerter     alerting.Dispatcher
	workerCount int
}

// SinkOption 定义可选配置。
type SinkOption func(*Sink)

// WithAlertDispatcher 配置告警派发器。
func WithAlertDispatcher(dispatcher alerting.Dispatcher) SinkOption {
	return func(s *Sink) {
		s.alerter = dispatcher
	}
}

// WithSinkWorkers 设置消费协程数量。
func WithSinkWorkers(workers int) SinkOption {
	return func(s *Sink) {
		if workers > 0 {
			s.workerCount = workers
		}
	}
}

// NewSink 创建 Sink。
func NewSink(consumer Consumer, opts ...SinkOption) *Sink {
	sink := &Sink{consumer: consumer, workerCount: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(sink)
		}
	}
	return sink
}

// Start 启动消费循环，直到上下文取消。
func (s *Sink) Start(ctx context.Context) error {
	if s.consumer == nil {
		return nil
	}
	return s.consumer.Consume(ctx, s.workerCount, s.handle)
}

func (s *Sink) handle(ctx context.Context, entry Entry) error {
	logger.Audit().Info("agent_invocation",
		slog.String("conversation_id", entry.ConversationID),
		slog.String("agent", entry.Agent),
		slog.String("intent", entry.Intent),
		slog.String("status", entry.Status),
		slog.Int64("occurred_at", entry.OccurredAt),
	)

	if entry.Status != protocol.StatusSuccess && s.alerter != nil {
		event := alerting.Event{
			ConversationID: entry.ConversationID,
			Agent:          entry.Agent,
			Intent:         entry.Intent,
			Status:         entry.Status,
			Message:        "agent invocation returned error status",
			OccurredAt:     entry.OccurredAt,
		}
		if err := s.alerter.Notify(ctx, event); err != nil {
			logger.L().Error("告警通知失败",
				slog.Any("error", err),
				slog.String("agent", entry.Agent),
			)
		}
	}
	return nil
}
