package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"Supervisor-Integration-Agent/internal/answer"
	"Supervisor-Integration-Agent/internal/audit"
	"Supervisor-Integration-Agent/internal/conversation"
	xerrors "Supervisor-Integration-Agent/internal/errors"
	"Supervisor-Integration-Agent/internal/executor"
	"Supervisor-Integration-Agent/internal/planner"
	"Supervisor-Integration-Agent/internal/protocol"
	"Supervisor-Integration-Agent/internal/registry"
	"Supervisor-Integration-Agent/pkg/logger"
)

// 未提供用户标识时使用的匿名身份。
const anonymousUserID = "anonymous"

// Query 是一次查询请求。
type Query struct {
	Text           string
	UserID         string
	ConversationID string
	FileUploads    []protocol.FileUpload
}

// Result 是一次查询的完整结果，中间产物按 step_<id> 键暴露。
type Result struct {
	Answer              string                             `json:"answer"`
	ConversationID      string                             `json:"conversation_id"`
	UsedAgents          []protocol.UsedAgentEntry          `json:"used_agents"`
	IntermediateResults map[string]*protocol.AgentResponse `json:"intermediate_results"`
}

// Service 驱动完整的查询处理流程。
type Service struct {
	loadRegistry registry.Loader
	planner      *planner.Planner
	executor     *executor.Executor
	composer     *answer.Composer
	history      conversation.Store
	recorder     *audit.Recorder
	historyLimit int
	logger       *slog.Logger
}

// Option 定义 Service 的可选配置。
type Option func(*Service)

// WithConversationStore 配置会话历史存储。
func WithConversationStore(store conversation.Store, limit int) Option {
	return func(s *Service) {
		s.history = store
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// WithAuditRecorder 配置使用日志投递。
func WithAuditRecorder(recorder *audit.Recorder) Option {
	return func(s *Service) {
		s.recorder = recorder
	}
}

// New 创建 Service。
func New(loader registry.Loader, plan *planner.Planner, exec *executor.Executor, compose *answer.Composer, opts ...Option) *Service {
	service := &Service{
		loadRegistry: loader,
		planner:      plan,
		executor:     exec,
		composer:     compose,
		historyLimit: 20,
		logger:       logger.Named("supervisor"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(service)
		}
	}
	return service
}

// HandleQuery 处理一次用户查询。注册表在每次执行前重新加载，
// 以便运维在不重启进程的情况下调整智能体目录。
func (s *Service) HandleQuery(ctx context.Context, query Query) (*Result, error) {
	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "查询内容不能为空")
	}

	reg, err := s.loadRegistry()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRegistryFailure, err, "加载智能体注册表失败")
	}

	conversationID := strings.TrimSpace(query.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	userID := strings.TrimSpace(query.UserID)
	if userID == "" {
		userID = anonymousUserID
	}

	history := s.loadHistory(ctx, conversationID)

	plan := s.planner.Plan(ctx, text, reg, history)
	s.logger.Info("计划生成完成",
		slog.String("conversation_id", conversationID),
		slog.Int("steps", len(plan.Steps)),
	)

	cctx := protocol.CallContext{
		UserID:         userID,
		ConversationID: conversationID,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		FileUploads:    query.FileUploads,
	}

	ledger, used := s.executor.Execute(ctx, text, plan, reg, cctx)

	final := s.composer.Compose(ctx, text, ledger, history)

	s.appendHistory(ctx, conversationID, text, final)
	if s.recorder != nil {
		s.recorder.Record(ctx, conversationID, used)
	}

	return &Result{
		Answer:              final,
		ConversationID:      conversationID,
		UsedAgents:          used,
		IntermediateResults: intermediateResults(ledger),
	}, nil
}

// loadHistory 读取会话历史，失败时按空历史继续。
func (s *Service) loadHistory(ctx context.Context, conversationID string) []conversation.Turn {
	if s.history == nil {
		return nil
	}
	turns, err := s.history.History(ctx, conversationID, s.historyLimit)
	if err != nil {
		s.logger.Warn("读取会话历史失败",
			slog.Any("error", err),
			slog.String("conversation_id", conversationID),
		)
		return nil
	}
	return turns
}

// appendHistory 记录本轮问答，失败只记日志。
func (s *Service) appendHistory(ctx context.Context, conversationID, query, reply string) {
	if s.history == nil {
		return
	}
	now := time.Now().Unix()
	turns := []conversation.Turn{
		{Role: conversation.RoleUser, Content: query, CreatedAt: now},
		{Role: conversation.RoleAssistant, Content: reply, CreatedAt: now},
	}
	for _, turn := range turns {
		if err := s.history.Append(ctx, conversationID, turn); err != nil {
			s.logger.Warn("写入会话历史失败",
				slog.Any("error", err),
				slog.String("conversation_id", conversationID),
			)
			return
		}
	}
}

func intermediateResults(ledger executor.Ledger) map[string]*protocol.AgentResponse {
	results := make(map[string]*protocol.AgentResponse, len(ledger))
	for stepID, response := range ledger {
		results[fmt.Sprintf("step_%d", stepID)] = response
	}
	return results
}
