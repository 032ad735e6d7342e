package langchain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"Supervisor-Integration-Agent/internal/llm"
)

const (
	defaultModelName = "gpt-4o-mini"
	defaultTimeout   = 60 * time.Second
)

// Config 描述通过 OpenAI 兼容接口调用大模型所需的信息。
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client 基于 langchaingo 封装 OpenAI 兼容的推理服务。
type Client struct {
	model   llms.Model
	timeout time.Duration
}

// NewClient 根据配置创建客户端。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("未提供大模型 API Key")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelName
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, openai.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}

	backend, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{model: backend, timeout: timeout}, nil
}

// Complete 调用模型生成补全内容。
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]llms.MessageContent, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, llms.MessageContent{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(req.System)},
		})
	}
	messages = append(messages, llms.MessageContent{
		Role:  schema.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(req.Prompt)},
	})

	resp, err := c.model.GenerateContent(callCtx, messages, llms.WithTemperature(req.Temperature))
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("模型响应中没有有效的 choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Content)
	if content == "" {
		return "", errors.New("模型响应内容为空")
	}
	return content, nil
}

// Ensure Client 实现 llm.Client 接口。
var _ llm.Client = (*Client)(nil)
