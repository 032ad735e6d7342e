package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	xerrors "Supervisor-Integration-Agent/internal/errors"
	"Supervisor-Integration-Agent/internal/observability/metrics"
	"Supervisor-Integration-Agent/internal/protocol"
	"Supervisor-Integration-Agent/internal/registry"
	"Supervisor-Integration-Agent/internal/supervisor"
)

// fileUploadPattern 匹配查询文本中的内联文件标记：
// [FILE_UPLOAD:<data_url>:<filename>:<mime_type>]。
// data URL 自身包含冒号，因此文件名与类型从末尾贪婪匹配。
var fileUploadPattern = regexp.MustCompile(`\[FILE_UPLOAD:(.+):([^:]+):([^\]]+)\]`)

// QueryRequest 是 POST /api/query 的请求体。
type QueryRequest struct {
	Query          string `json:"query"`
	UserID         string `json:"user_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// errorResponse 是统一的错误响应体。
type errorResponse struct {
	Error string `json:"error"`
}

// Server 负责暴露 REST 接口，供外部驱动查询处理。
type Server struct {
	addr    string
	service *supervisor.Service
	agents  registry.Loader
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, service *supervisor.Service, agents registry.Loader) *Server {
	return &Server{addr: addr, service: service, agents: agents}
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/api/agents", s.handleAgents)
	mux.HandleFunc("/health", s.handleHealth)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, withMetrics(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// handleQuery 处理一次用户查询。
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "仅支持 POST")
		return
	}
	if s.service == nil {
		writeError(w, http.StatusServiceUnavailable, "服务未初始化")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}

	text, uploads := extractFileUploads(req.Query)

	result, err := s.service.HandleQuery(r.Context(), supervisor.Query{
		Text:           text,
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		FileUploads:    uploads,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if xerrors.CodeOf(err) == xerrors.CodeInvalidArgument {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAgents 返回注册表中的智能体列表。
func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "仅支持 GET")
		return
	}
	if s.agents == nil {
		writeError(w, http.StatusServiceUnavailable, "注册表未配置")
		return
	}
	reg, err := s.agents()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": reg.Agents()})
}

// handleHealth 提供存活检查。
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// extractFileUploads 解析查询文本中的文件上传标记，返回替换后的文本
// 与上传文件列表。标记在文本中被替换为 [Uploaded file: <name>]。
func extractFileUploads(query string) (string, []protocol.FileUpload) {
	matches := fileUploadPattern.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return query, nil
	}

	uploads := make([]protocol.FileUpload, 0, len(matches))
	for _, match := range matches {
		dataURL, filename, mimeType := match[1], match[2], match[3]
		uploads = append(uploads, protocol.FileUpload{
			Base64Data: base64Payload(dataURL),
			Filename:   filename,
			MimeType:   mimeType,
		})
		query = strings.Replace(query, match[0], "[Uploaded file: "+filename+"]", 1)
	}
	return query, uploads
}

// base64Payload 从 data URL 中取出 base64 数据段。
func base64Payload(dataURL string) string {
	if _, payload, found := strings.Cut(dataURL, "base64,"); found {
		return payload
	}
	if idx := strings.LastIndex(dataURL, ","); idx >= 0 {
		return dataURL[idx+1:]
	}
	return dataURL
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// statusRecorder 捕获响应状态码供指标上报。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withMetrics 为每个请求上报耗时与状态指标。
func withMetrics(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		handler.ServeHTTP(recorder, r)
		metrics.ObserveHTTPRequest(r.URL.Path, r.Method, recorder.status, time.Since(start))
	})
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			writeError(w, http.StatusServiceUnavailable, "服务已关闭")
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
