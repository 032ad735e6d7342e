package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"Supervisor-Integration-Agent/internal/conversation"
	"Supervisor-Integration-Agent/internal/executor"
	"Supervisor-Integration-Agent/internal/llm"
	"Supervisor-Integration-Agent/pkg/logger"
)

const systemPrompt = `You are the answer composer of a supervisor agent. ` +
	`Given a user query and the outputs collected from the agents that handled ` +
	`it, write a single helpful reply in the language of the query. Do not ` +
	`mention step numbers, agents or internal mechanics.`

// Composer 负责将执行台账汇总为最终回复。
type Composer struct {
	client llm.Client
	logger *slog.Logger
}

// New 创建 Composer。client 为 nil 时直接返回降级摘要。
func New(client llm.Client) *Composer {
	return &Composer{
		client: client,
		logger: logger.Named("answer"),
	}
}

// Compose 生成最终回复。模型失败时降级为对成功步骤输出的直接摘要，
// 永远不会返回错误。
func (c *Composer) Compose(ctx context.Context, query string, ledger executor.Ledger, history []conversation.Turn) string {
	outputs := collectOutputs(ledger)
	if len(outputs) == 0 {
		return "I could not get a useful result from the available agents for this request."
	}

	if c != nil && c.client != nil {
		reply, err := c.client.Complete(ctx, llm.Request{
			System:      systemPrompt,
			Prompt:      buildPrompt(query, outputs, history),
			Temperature: 0.3,
		})
		if err == nil && strings.TrimSpace(reply) != "" {
			return strings.TrimSpace(reply)
		}
		if err != nil {
			c.logger.Warn("回复合成模型调用失败，使用降级摘要", slog.Any("error", err))
		}
	}

	return degradedSummary(outputs)
}

// collectOutputs 按步骤序号取出成功步骤的输出文本。
func collectOutputs(ledger executor.Ledger) []string {
	ids := make([]int, 0, len(ledger))
	for id := range ledger {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	outputs := make([]string, 0, len(ids))
	for _, id := range ids {
		response := ledger[id]
		if response == nil || !response.Succeeded() || response.Output == nil {
			continue
		}
		text := formatResult(response.Output.Result)
		if text == "" {
			continue
		}
		outputs = append(outputs, text)
	}
	return outputs
}

func buildPrompt(query string, outputs []string, history []conversation.Turn) string {
	var builder strings.Builder
	if len(history) > 0 {
		builder.WriteString("Conversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&builder, "%s: %s\n", turn.Role, turn.Content)
		}
		builder.WriteString("\n")
	}
	builder.WriteString("User query:\n")
	builder.WriteString(query)
	builder.WriteString("\n\nCollected results:\n")
	for i, output := range outputs {
		fmt.Fprintf(&builder, "%d. %s\n", i+1, output)
	}
	return builder.String()
}

func degradedSummary(outputs []string) string {
	if len(outputs) == 1 {
		return outputs[0]
	}
	var builder strings.Builder
	builder.WriteString("Here is what I found:\n")
	for _, output := range outputs {
		builder.WriteString("- ")
		builder.WriteString(output)
		builder.WriteString("\n")
	}
	return strings.TrimRight(builder.String(), "\n")
}

func formatResult(result any) string {
	switch value := result.(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(encoded)
	}
}
