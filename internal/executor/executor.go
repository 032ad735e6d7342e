package executor

import (
	"context"
	"log/slog"

	"Supervisor-Integration-Agent/internal/invoker"
	"Supervisor-Integration-Agent/internal/protocol"
	"Supervisor-Integration-Agent/internal/registry"
	"Supervisor-Integration-Agent/pkg/logger"
)

// 链式触发的契约常量：知识库构建智能体成功创建任务后，
// 自动调用依赖解析智能体，由其自行从外部存储拉取工作集。
const (
	KnowledgeBuilderAgentName   = "KnowledgeBaseBuilderAgent"
	IntentCreateTask            = "create_task"
	DependencyResolverAgentName = "task_dependency_agent"
	IntentResolveDependencies   = "task.resolve_dependencies"
)

// chainTriggerInput 是链式调用替换输入负载使用的触发信号。
func chainTriggerInput() map[string]any {
	return map[string]any{"trigger": "database_update"}
}

// Caller 抽象了执行器所需的调用能力。
type Caller interface {
	Invoke(ctx context.Context, meta registry.AgentMetadata, intent, text string, cctx protocol.CallContext, opts ...invoker.CallOption) *protocol.AgentResponse
}

// Executor 按计划顺序驱动智能体调用。一次 Execute 是无状态的单遍操作，
// 账本与审计日志均为本次执行私有。
type Executor struct {
	caller Caller
	logger *slog.Logger
}

// Option 定义可选的执行器配置。
type Option func(*Executor)

// WithLogger 指定日志输出。
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// New 创建执行器。
func New(caller Caller, opts ...Option) *Executor {
	exec := &Executor{
		caller: caller,
		logger: logger.Named("executor"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(exec)
		}
	}
	return exec
}

// Execute 按序执行计划中的每个步骤并收集响应。单个步骤失败不会
// 中断循环：账本中记录错误状态的响应，后续步骤照常执行。
func (e *Executor) Execute(ctx context.Context, query string, plan Plan, reg *registry.Registry, cctx protocol.CallContext) (Ledger, []protocol.UsedAgentEntry) {
	ledger := make(Ledger, len(plan.Steps))
	usage := make([]protocol.UsedAgentEntry, 0, len(plan.Steps))

	for _, step := range plan.Steps {
		meta, found := reg.FindAgentByName(step.Agent)
		if !found {
			// 未注册的智能体以空元数据继续，调用方会归类为 config_error。
			meta = registry.AgentMetadata{Name: step.Agent}
		}

		text, kind := ResolveInput(step.InputSource, query, ledger)
		if kind == FallbackUserQuery && step.InputSource != InputSourceUserQuery {
			e.logDebug("输入引用无法解析，回退到用户问题",
				slog.Int("step_id", step.StepID),
				slog.String("input_source", step.InputSource),
			)
		}

		response := e.caller.Invoke(ctx, meta, step.Intent, text, cctx)
		ledger[step.StepID] = response
		usage = append(usage, protocol.UsedAgentEntry{
			Name:   meta.Name,
			Intent: step.Intent,
			Status: response.Status,
		})
		logger.Audit().Info("步骤执行完成",
			slog.Int("step_id", step.StepID),
			slog.String("agent", meta.Name),
			slog.String("intent", step.Intent),
			slog.String("status", response.Status),
		)

		// 条件链式触发：结果无论成败都不影响主计划的账本。
		if step.Agent == KnowledgeBuilderAgentName &&
			step.Intent == IntentCreateTask &&
			response.Succeeded() {
			if chained := e.runAutoChain(ctx, reg, cctx); chained.ok {
				syntheticID := ledger.NextSyntheticID()
				ledger[syntheticID] = chained.response
				usage = append(usage, protocol.UsedAgentEntry{
					Name:   DependencyResolverAgentName,
					Intent: IntentResolveDependencies,
					Status: chained.response.Status,
				})
				logger.Audit().Info("链式调用完成",
					slog.Int("step_id", syntheticID),
					slog.String("agent", DependencyResolverAgentName),
					slog.String("status", chained.response.Status),
				)
			}
		}
	}

	return ledger, usage
}

// chainResult 封装链式调用的结果，失败时仅被检视后丢弃，绝不向外传播。
type chainResult struct {
	response *protocol.AgentResponse
	ok       bool
}

// runAutoChain 执行尽力而为的链式调用。依赖解析智能体未注册或调用
// 过程中出现任何意外，都静默跳过，外层循环不受影响。
func (e *Executor) runAutoChain(ctx context.Context, reg *registry.Registry, cctx protocol.CallContext) (result chainResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logDebug("链式调用异常，已跳过", slog.Any("panic", r))
			result = chainResult{}
		}
	}()

	meta, found := reg.FindAgentByName(DependencyResolverAgentName)
	if !found {
		e.logDebug("依赖解析智能体未注册，跳过链式调用")
		return chainResult{}
	}

	response := e.caller.Invoke(ctx, meta, IntentResolveDependencies, "", cctx,
		invoker.WithCustomInput(chainTriggerInput()))
	if response == nil {
		return chainResult{}
	}
	return chainResult{response: response, ok: true}
}

func (e *Executor) logDebug(msg string, attrs ...slog.Attr) {
	if e.logger == nil {
		return
	}
	args := make([]any, len(attrs))
	for idx, attr := range attrs {
		args[idx] = attr
	}
	e.logger.Debug(msg, args...)
}
