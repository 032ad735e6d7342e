package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"Supervisor-Integration-Agent/internal/conversation"
	xerrors "Supervisor-Integration-Agent/internal/errors"
	"Supervisor-Integration-Agent/internal/executor"
	"Supervisor-Integration-Agent/internal/llm"
	"Supervisor-Integration-Agent/internal/registry"
	"Supervisor-Integration-Agent/pkg/logger"
)

// 规划失败时兜底计划使用的意图。
const fallbackIntent = "process_query"

const systemPrompt = `You are the planning component of a supervisor agent. ` +
	`Given a user query and a list of available agents, produce an execution plan ` +
	`as a JSON array. Each element must be an object with the keys "step_id" ` +
	`(integer, starting at 1), "agent" (an agent name from the list), "intent" ` +
	`(the operation to request) and "input_source" (either "user_query" or ` +
	`"step:<id>" to feed a previous step's output). Respond with the JSON array ` +
	`only, no prose and no code fences.`

// Planner 负责将用户查询转换为可执行计划。
type Planner struct {
	client llm.Client
	logger *slog.Logger
}

// Option 定义 Planner 的可选配置。
type Option func(*Planner)

// WithLogger 覆盖默认日志器。
func WithLogger(log *slog.Logger) Option {
	return func(p *Planner) {
		if log != nil {
			p.logger = log
		}
	}
}

// New 创建 Planner。client 为 nil 时始终返回兜底计划。
func New(client llm.Client, opts ...Option) *Planner {
	planner := &Planner{
		client: client,
		logger: logger.Named("planner"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(planner)
		}
	}
	return planner
}

// Plan 生成执行计划。模型不可用或回复无法解析时返回兜底的单步计划，
// 永远不会让查询因规划失败而中断。
func (p *Planner) Plan(ctx context.Context, query string, reg *registry.Registry, history []conversation.Turn) executor.Plan {
	if p.client == nil {
		return fallbackPlan(reg)
	}

	reply, err := p.client.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      buildPrompt(query, reg, history),
		Temperature: 0.1,
	})
	if err != nil {
		p.logger.Warn("规划模型调用失败，使用兜底计划", slog.Any("error", err))
		return fallbackPlan(reg)
	}

	plan, err := parsePlan(reply, reg)
	if err != nil {
		p.logger.Warn("规划结果解析失败，使用兜底计划",
			slog.Any("error", err),
			slog.String("reply", truncate(reply, 512)),
		)
		return fallbackPlan(reg)
	}
	return plan
}

func buildPrompt(query string, reg *registry.Registry, history []conversation.Turn) string {
	var builder strings.Builder
	builder.WriteString("Available agents:\n")
	if reg != nil {
		for _, meta := range reg.Agents() {
			fmt.Fprintf(&builder, "- %s (type: %s)\n", meta.Name, meta.Type)
		}
	}
	if len(history) > 0 {
		builder.WriteString("\nConversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&builder, "%s: %s\n", turn.Role, turn.Content)
		}
	}
	builder.WriteString("\nUser query:\n")
	builder.WriteString(query)
	return builder.String()
}

// planStep 是模型回复中的单个计划步骤。
type planStep struct {
	StepID      int    `json:"step_id"`
	Agent       string `json:"agent"`
	Intent      string `json:"intent"`
	InputSource string `json:"input_source"`
}

func parsePlan(reply string, reg *registry.Registry) (executor.Plan, error) {
	cleaned := stripCodeFence(reply)

	var steps []planStep
	if err := json.Unmarshal([]byte(cleaned), &steps); err != nil {
		return executor.Plan{}, xerrors.Wrap(xerrors.CodePlannerFailure, err, "计划不是合法的 JSON 数组")
	}
	if len(steps) == 0 {
		return executor.Plan{}, xerrors.New(xerrors.CodePlannerFailure, "计划为空")
	}

	plan := executor.Plan{Steps: make([]executor.Step, 0, len(steps))}
	for i, step := range steps {
		if step.Agent == "" || step.Intent == "" {
			return executor.Plan{}, xerrors.New(xerrors.CodePlannerFailure,
				fmt.Sprintf("第 %d 步缺少 agent 或 intent", i+1))
		}
		if reg != nil {
			if _, ok := reg.FindAgentByName(step.Agent); !ok {
				return executor.Plan{}, xerrors.New(xerrors.CodePlannerFailure,
					fmt.Sprintf("第 %d 步引用了未注册的智能体 %s", i+1, step.Agent))
			}
		}
		if step.StepID == 0 {
			step.StepID = i + 1
		}
		source := step.InputSource
		if source == "" {
			source = executor.InputSourceUserQuery
		}
		plan.Steps = append(plan.Steps, executor.Step{
			StepID:      step.StepID,
			Agent:       step.Agent,
			Intent:      step.Intent,
			InputSource: source,
		})
	}
	return plan, nil
}

// fallbackPlan 返回确定性的单步计划：注册表中第一个可用的 HTTP 智能体
// 直接处理原始查询。没有可用智能体时返回空计划。
func fallbackPlan(reg *registry.Registry) executor.Plan {
	if reg == nil {
		return executor.Plan{}
	}
	for _, meta := range reg.Agents() {
		if meta.Capability() != registry.CapabilityHTTP {
			continue
		}
		return executor.Plan{Steps: []executor.Step{{
			StepID:      1,
			Agent:       meta.Name,
			Intent:      fallbackIntent,
			InputSource: executor.InputSourceUserQuery,
		}}}
	}
	return executor.Plan{}
}

func stripCodeFence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
