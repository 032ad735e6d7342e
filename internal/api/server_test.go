package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"Supervisor-Integration-Agent/internal/answer"
	"Supervisor-Integration-Agent/internal/executor"
	"Supervisor-Integration-Agent/internal/invoker"
	"Supervisor-Integration-Agent/internal/planner"
	"Supervisor-Integration-Agent/internal/protocol"
	"Supervisor-Integration-Agent/internal/registry"
	"Supervisor-Integration-Agent/internal/supervisor"
)

type echoCaller struct {
	lastText string
	lastCtx  protocol.CallContext
}

func (c *echoCaller) Invoke(ctx context.Context, meta registry.AgentMetadata, intent, text string, cctx protocol.CallContext, opts ...invoker.CallOption) *protocol.AgentResponse {
	c.lastText = text
	c.lastCtx = cctx
	return &protocol.AgentResponse{
		RequestID: "req-1",
		AgentName: meta.Name,
		Status:    protocol.StatusSuccess,
		Output:    &protocol.OutputModel{Result: "echo: " + text},
	}
}

func newTestServer(t *testing.T, caller executor.Caller) *Server {
	t.Helper()

	path := filepath.Join(t.TempDir(), "agents.yaml")
	content := "agents:\n  - name: echo_agent\n    type: http\n    endpoint: http://127.0.0.1:9/invoke\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入注册表失败: %v", err)
	}
	loader := registry.FileLoader(path)

	service := supervisor.New(
		loader,
		planner.New(nil),
		executor.New(caller),
		answer.New(nil),
	)
	return NewServer(":0", service, loader)
}

func TestHandleQuerySuccess(t *testing.T) {
	caller := &echoCaller{}
	server := newTestServer(t, caller)

	body := strings.NewReader(`{"query":"hello there","user_id":"u-7"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/query", body)
	rec := httptest.NewRecorder()
	server.handleQuery(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d: %s", rec.Code, rec.Body.String())
	}

	var result supervisor.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if result.Answer != "echo: hello there" {
		t.Fatalf("回复不符: %q", result.Answer)
	}
	if result.ConversationID == "" {
		t.Fatal("应当生成会话 ID")
	}
	if len(result.UsedAgents) != 1 || result.UsedAgents[0].Name != "echo_agent" {
		t.Fatalf("使用记录不符: %+v", result.UsedAgents)
	}
	if _, ok := result.IntermediateResults["step_1"]; !ok {
		t.Fatalf("缺少 step_1 中间结果: %v", result.IntermediateResults)
	}
	if caller.lastCtx.UserID != "u-7" {
		t.Fatalf("用户标识未透传: %q", caller.lastCtx.UserID)
	}
}

func TestHandleQueryEmptyQuery(t *testing.T) {
	server := newTestServer(t, &echoCaller{})

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"  "}`))
	rec := httptest.NewRecorder()
	server.handleQuery(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("期望 400，实际 %d", rec.Code)
	}
}

func TestHandleQueryMethodNotAllowed(t *testing.T) {
	server := newTestServer(t, &echoCaller{})

	req := httptest.NewRequest(http.MethodGet, "/api/query", nil)
	rec := httptest.NewRecorder()
	server.handleQuery(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("期望 405，实际 %d", rec.Code)
	}
}

func TestHandleQueryFileUploadMarker(t *testing.T) {
	caller := &echoCaller{}
	server := newTestServer(t, caller)

	query := "please summarize [FILE_UPLOAD:data:text/plain;base64,aGVsbG8=:notes.txt:text/plain] for me"
	payload, _ := json.Marshal(QueryRequest{Query: query})
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(string(payload)))
	rec := httptest.NewRecorder()
	server.handleQuery(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d: %s", rec.Code, rec.Body.String())
	}
	if want := "please summarize [Uploaded file: notes.txt] for me"; caller.lastText != want {
		t.Fatalf("标记未替换: %q", caller.lastText)
	}
	if len(caller.lastCtx.FileUploads) != 1 {
		t.Fatalf("上传文件未透传: %+v", caller.lastCtx.FileUploads)
	}
	upload := caller.lastCtx.FileUploads[0]
	if upload.Base64Data != "aGVsbG8=" || upload.Filename != "notes.txt" || upload.MimeType != "text/plain" {
		t.Fatalf("上传文件字段不符: %+v", upload)
	}
}

func TestHandleAgents(t *testing.T) {
	server := newTestServer(t, &echoCaller{})

	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	rec := httptest.NewRecorder()
	server.handleAgents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", rec.Code)
	}
	var body struct {
		Agents []registry.AgentMetadata `json:"agents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(body.Agents) != 1 || body.Agents[0].Name != "echo_agent" {
		t.Fatalf("智能体列表不符: %+v", body.Agents)
	}
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(t, &echoCaller{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", rec.Code)
	}
}

func TestExtractFileUploadsNoMarker(t *testing.T) {
	text, uploads := extractFileUploads("plain question")
	if text != "plain question" || uploads != nil {
		t.Fatalf("无标记文本不应被改写: %q %+v", text, uploads)
	}
}
