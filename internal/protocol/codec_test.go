package protocol

import (
	"strings"
	"testing"
)

func TestNewRequestDefaults(t *testing.T) {
	req := NewRequest("kb_agent", "create_task", "build it", CallContext{UserID: "u-1"})

	if req.RequestID == "" {
		t.Fatal("应生成 request_id")
	}
	if req.AgentName != "kb_agent" || req.Intent != "create_task" {
		t.Fatalf("请求头字段不符: %+v", req)
	}
	if req.Input["text"] != "build it" {
		t.Fatalf("输入文本不符: %+v", req.Input)
	}
	metadata, ok := req.Input["metadata"].(InputMetadata)
	if !ok {
		t.Fatalf("元数据缺失: %+v", req.Input)
	}
	if metadata.Language != "en" {
		t.Fatalf("语言标签应固定为 en: %q", metadata.Language)
	}
	if metadata.Extra == nil {
		t.Fatal("extra 应初始化为空映射")
	}

	second := NewRequest("kb_agent", "create_task", "build it", CallContext{})
	if second.RequestID == req.RequestID {
		t.Fatal("每次请求应生成全新的 request_id")
	}
}

func TestNewRequestEmbedsFirstFileOnly(t *testing.T) {
	cctx := CallContext{FileUploads: []FileUpload{
		{Base64Data: "YQ==", Filename: "a.txt", MimeType: "text/plain"},
		{Base64Data: "Yg==", Filename: "b.txt", MimeType: "text/plain"},
	}}
	req := NewRequest("agent", "intent", "text", cctx)

	metadata := req.Input["metadata"].(InputMetadata)
	if metadata.FileBase64 != "YQ==" || metadata.Filename != "a.txt" {
		t.Fatalf("应仅嵌入第一个文件: %+v", metadata)
	}
}

func TestNewRequestFileDefaults(t *testing.T) {
	cctx := CallContext{FileUploads: []FileUpload{{Base64Data: "YQ=="}}}
	req := NewRequest("agent", "intent", "text", cctx)

	metadata := req.Input["metadata"].(InputMetadata)
	if metadata.MimeType != "application/octet-stream" {
		t.Fatalf("缺省 MIME 类型不符: %q", metadata.MimeType)
	}
	if metadata.Filename != "uploaded_file" {
		t.Fatalf("缺省文件名不符: %q", metadata.Filename)
	}
}

func TestDecodeResponse(t *testing.T) {
	payload := `{
		"request_id": "req-1",
		"agent_name": "kb_agent",
		"status": "success",
		"output": {"result": {"task_id": 7}}
	}`
	resp, err := DecodeResponse(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if !resp.Succeeded() {
		t.Fatalf("应判定为成功: %+v", resp)
	}

	if _, err := DecodeResponse(strings.NewReader("oops")); err == nil {
		t.Fatal("畸形响应应返回错误")
	}
}

func TestSucceeded(t *testing.T) {
	if (&AgentResponse{Status: StatusError}).Succeeded() {
		t.Fatal("错误状态不应判定为成功")
	}
	if (&AgentResponse{Status: "SUCCESS"}).Succeeded() {
		t.Fatal("状态比较应区分大小写")
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("req-9", "agent", ErrorTypeConfig, "agent endpoint/command not configured")
	if resp.Status != StatusError {
		t.Fatalf("状态应为 error: %q", resp.Status)
	}
	if resp.Error == nil || resp.Error.Type != ErrorTypeConfig {
		t.Fatalf("错误分类不符: %+v", resp.Error)
	}
	if resp.Output != nil {
		t.Fatal("错误响应不应携带输出")
	}
}

func TestReplaceInput(t *testing.T) {
	req := NewRequest("agent", "intent", "text", CallContext{})
	req.ReplaceInput(map[string]any{"trigger": "database_update"})

	if req.Input["trigger"] != "database_update" {
		t.Fatalf("输入未被替换: %+v", req.Input)
	}
	if _, ok := req.Input["text"]; ok {
		t.Fatalf("原始输入不应残留: %+v", req.Input)
	}

	req.ReplaceInput(nil)
	if req.Input["trigger"] != "database_update" {
		t.Fatal("nil 负载不应清空输入")
	}
}
