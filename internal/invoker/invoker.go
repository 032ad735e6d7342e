package invoker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"Supervisor-Integration-Agent/internal/observability/metrics"
	"Supervisor-Integration-Agent/internal/protocol"
	"Supervisor-Integration-Agent/internal/registry"
	"Supervisor-Integration-Agent/pkg/logger"
)

// Invoker 负责将握手请求派发到智能体的传输层。
type Invoker struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option 定义可选的 Invoker 配置。
type Option func(*Invoker)

// WithHTTPClient 指定底层 HTTP 客户端。传入 nil 表示禁用 HTTP 传输能力，
// 此时 http 类型的智能体会得到 config_error 响应。
func WithHTTPClient(client *http.Client) Option {
	return func(i *Invoker) {
		i.httpClient = client
	}
}

// WithLogger 指定日志输出。
func WithLogger(logger *slog.Logger) Option {
	return func(i *Invoker) {
		i.logger = logger
	}
}

// New 创建一个 Invoker。默认使用不带全局超时的 HTTP 客户端，
// 单次调用的超时由智能体元数据中的 timeout_ms 控制。
func New(opts ...Option) *Invoker {
	inv := &Invoker{
		httpClient: &http.Client{},
		logger:     logger.Named("invoker"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(inv)
		}
	}
	return inv
}

// CallOption 定义单次调用的可选配置。
type CallOption func(*callOptions)

type callOptions struct {
	customInput map[string]any
}

// WithCustomInput 用自定义负载整体替换默认的输入结构。
// 链式调用通过它传递触发信号而非内联文本。
func WithCustomInput(input map[string]any) CallOption {
	return func(o *callOptions) {
		o.customInput = input
	}
}

// Invoke 构造握手请求并调用智能体，按能力分派到对应的传输实现。
// 任何失败路径都会转换为带错误分类的终态响应，绝不向上抛出异常。
func (i *Invoker) Invoke(ctx context.Context, meta registry.AgentMetadata, intent, text string, cctx protocol.CallContext, opts ...CallOption) (resp *protocol.AgentResponse) {
	options := callOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	req := protocol.NewRequest(meta.Name, intent, text, cctx)
	if options.customInput != nil {
		req.ReplaceInput(options.customInput)
	}

	started := time.Now()
	// 兜底保护：即使传输实现出现意外 panic，也转换为 network_error。
	defer func() {
		if r := recover(); r != nil {
			resp = protocol.NewErrorResponse(req.RequestID, meta.Name,
				protocol.ErrorTypeNetwork, fmt.Sprintf("unexpected failure invoking agent: %v", r))
		}
		metrics.ObserveAgentInvocation(meta.Name, resp.Status, time.Since(started))
	}()

	switch meta.Capability() {
	case registry.CapabilityHTTP:
		if i.httpClient == nil {
			return protocol.NewErrorResponse(req.RequestID, meta.Name,
				protocol.ErrorTypeConfig, "transport unavailable")
		}
		return i.invokeHTTP(ctx, meta, req)
	case registry.CapabilityCLI:
		return protocol.NewErrorResponse(req.RequestID, meta.Name,
			protocol.ErrorTypeNotImplemented, "CLI agent execution is not implemented")
	default:
		return protocol.NewErrorResponse(req.RequestID, meta.Name,
			protocol.ErrorTypeConfig, "agent endpoint/command not configured")
	}
}

// invokeHTTP 将握手请求以 JSON POST 发送到智能体端点。
func (i *Invoker) invokeHTTP(ctx context.Context, meta registry.AgentMetadata, req *protocol.AgentRequest) *protocol.AgentResponse {
	payload, err := req.Encode()
	if err != nil {
		return protocol.NewErrorResponse(req.RequestID, meta.Name,
			protocol.ErrorTypeNetwork, err.Error())
	}

	callCtx, cancel := context.WithTimeout(ctx, meta.Timeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, meta.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return protocol.NewErrorResponse(req.RequestID, meta.Name,
			protocol.ErrorTypeNetwork, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := i.httpClient.Do(httpReq)
	if err != nil {
		i.logDebug("调用智能体失败",
			slog.String("agent", meta.Name),
			slog.String("endpoint", meta.Endpoint),
			slog.Any("error", err),
		)
		return protocol.NewErrorResponse(req.RequestID, meta.Name,
			protocol.ErrorTypeNetwork, err.Error())
	}
	defer func() {
		_, _ = io.Copy(io.Discard, httpResp.Body)
		_ = httpResp.Body.Close()
	}()

	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		return protocol.NewErrorResponse(req.RequestID, meta.Name,
			protocol.ErrorTypeHTTP,
			fmt.Sprintf("HTTP %d calling %s", httpResp.StatusCode, meta.Endpoint))
	}

	decoded, err := protocol.DecodeResponse(httpResp.Body)
	if err != nil {
		return protocol.NewErrorResponse(req.RequestID, meta.Name,
			protocol.ErrorTypeNetwork, err.Error())
	}
	// 信任远端自身的 status/output/error 字段，原样返回。
	return decoded
}

func (i *Invoker) logDebug(msg string, attrs ...slog.Attr) {
	if i.logger == nil {
		return
	}
	args := make([]any, len(attrs))
	for idx, attr := range attrs {
		args[idx] = attr
	}
	i.logger.Debug(msg, args...)
}
