package protocol

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// defaultLanguage 是握手元数据中固定携带的语言标签。
const defaultLanguage = "en"

// NewRequest 构造一次握手请求并生成全新的 request_id。
// 上下文中若存在文件上传，仅第一个文件会被嵌入元数据（单文件限制）。
func NewRequest(agentName, intent, text string, cctx CallContext) *AgentRequest {
	metadata := InputMetadata{Language: defaultLanguage, Extra: map[string]any{}}
	if len(cctx.FileUploads) > 0 {
		first := cctx.FileUploads[0]
		if first.Base64Data != "" {
			metadata.FileBase64 = first.Base64Data
			metadata.MimeType = first.MimeType
			if metadata.MimeType == "" {
				metadata.MimeType = "application/octet-stream"
			}
			metadata.Filename = first.Filename
			if metadata.Filename == "" {
				metadata.Filename = "uploaded_file"
			}
		}
	}

	return &AgentRequest{
		RequestID: uuid.NewString(),
		AgentName: agentName,
		Intent:    intent,
		Input: map[string]any{
			"text":     text,
			"metadata": metadata,
		},
		Context: cctx,
	}
}

// ReplaceInput 用自定义负载整体替换请求输入。链式调用通过该入口
// 传递触发信号而非内联文本。
func (r *AgentRequest) ReplaceInput(input map[string]any) {
	if r == nil || input == nil {
		return
	}
	r.Input = input
}

// Encode 将请求序列化为 JSON 字节流。
func (r *AgentRequest) Encode() ([]byte, error) {
	encoded, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("序列化握手请求失败: %w", err)
	}
	return encoded, nil
}

// DecodeResponse 从传输层回复中直接解析握手响应。
// 结构解析失败由调用方归类为 network_error，此处仅返回原始错误。
func DecodeResponse(r io.Reader) (*AgentResponse, error) {
	var resp AgentResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("解析握手响应失败: %w", err)
	}
	return &resp, nil
}

// NewErrorResponse 构造一个带有错误分类的终态响应。
// 调用方的所有失败路径最终都会落到这里，保证不向上抛出异常。
func NewErrorResponse(requestID, agentName, errType, message string) *AgentResponse {
	return &AgentResponse{
		RequestID: requestID,
		AgentName: agentName,
		Status:    StatusError,
		Error: &ErrorModel{
			Type:    errType,
			Message: message,
		},
	}
}
