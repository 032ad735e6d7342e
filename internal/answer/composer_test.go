package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"Supervisor-Integration-Agent/internal/executor"
	"Supervisor-Integration-Agent/internal/llm"
	"Supervisor-Integration-Agent/internal/protocol"
)

type fakeLLM struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.prompt = req.Prompt
	return f.reply, f.err
}

func ledgerWith(entries map[int]any) executor.Ledger {
	ledger := make(executor.Ledger, len(entries))
	for id, result := range entries {
		ledger[id] = &protocol.AgentResponse{
			Status: protocol.StatusSuccess,
			Output: &protocol.OutputModel{Result: result},
		}
	}
	return ledger
}

func TestComposeUsesModelReply(t *testing.T) {
	client := &fakeLLM{reply: "  Here is your summary.  "}
	c := New(client)

	got := c.Compose(context.Background(), "summarize", ledgerWith(map[int]any{1: "doc contents"}), nil)

	if got != "Here is your summary." {
		t.Fatalf("应返回裁剪后的模型回复: %q", got)
	}
	if !strings.Contains(client.prompt, "doc contents") {
		t.Fatalf("提示词应包含步骤输出: %q", client.prompt)
	}
}

func TestComposeDegradesOnModelError(t *testing.T) {
	c := New(&fakeLLM{err: errors.New("unavailable")})

	got := c.Compose(context.Background(), "summarize", ledgerWith(map[int]any{1: "only result"}), nil)

	if got != "only result" {
		t.Fatalf("单条输出的降级摘要应直接返回该输出: %q", got)
	}
}

func TestComposeDegradedSummaryOrdersSteps(t *testing.T) {
	c := New(&fakeLLM{err: errors.New("unavailable")})

	got := c.Compose(context.Background(), "summarize",
		ledgerWith(map[int]any{2: "second", 1: "first"}), nil)

	firstIdx := strings.Index(got, "first")
	secondIdx := strings.Index(got, "second")
	if firstIdx < 0 || secondIdx < 0 || firstIdx > secondIdx {
		t.Fatalf("降级摘要应按步骤序号排列: %q", got)
	}
}

func TestComposeSkipsFailedSteps(t *testing.T) {
	ledger := ledgerWith(map[int]any{1: "good"})
	ledger[2] = &protocol.AgentResponse{
		Status: protocol.StatusError,
		Error:  &protocol.ErrorModel{Type: protocol.ErrorTypeHTTP, Message: "HTTP 500"},
	}
	client := &fakeLLM{reply: "ok"}
	c := New(client)

	c.Compose(context.Background(), "q", ledger, nil)

	if strings.Contains(client.prompt, "HTTP 500") {
		t.Fatalf("失败步骤不应进入提示词: %q", client.prompt)
	}
}

func TestComposeNoUsableOutput(t *testing.T) {
	c := New(nil)

	got := c.Compose(context.Background(), "q", executor.Ledger{}, nil)
	if !strings.Contains(got, "could not") {
		t.Fatalf("无可用输出时应返回说明性回复: %q", got)
	}
}

func TestComposeStructuredOutput(t *testing.T) {
	c := New(nil)

	got := c.Compose(context.Background(), "q",
		ledgerWith(map[int]any{1: map[string]any{"task_id": 7}}), nil)

	if !strings.Contains(got, "task_id") {
		t.Fatalf("结构化输出应以 JSON 文本呈现: %q", got)
	}
}
