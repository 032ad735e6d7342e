package protocol

// Status 表示智能体响应的最终状态。
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// 错误分类标签，所有失败路径都会归入其中之一。
const (
	ErrorTypeHTTP           = "http_error"
	ErrorTypeNetwork        = "network_error"
	ErrorTypeConfig         = "config_error"
	ErrorTypeNotImplemented = "not_implemented"
)

// FileUpload 描述随请求上传的单个文件。
type FileUpload struct {
	Base64Data string `json:"base64_data"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
}

// CallContext 是随每次调用透传给智能体的会话上下文。
type CallContext struct {
	UserID         string       `json:"user_id"`
	ConversationID string       `json:"conversation_id"`
	Timestamp      string       `json:"timestamp"`
	FileUploads    []FileUpload `json:"file_uploads,omitempty"`
}

// InputMetadata 附加在输入文本上的元信息。语言标签恒为 en；
// 若上下文中存在文件上传，则嵌入第一个文件的内容与类型。
type InputMetadata struct {
	Language   string         `json:"language"`
	FileBase64 string         `json:"file_base64,omitempty"`
	MimeType   string         `json:"mime_type,omitempty"`
	Filename   string         `json:"filename,omitempty"`
	Extra      map[string]any `json:"extra"`
}

// AgentRequest 是发送给智能体的握手请求。Input 使用松散的映射结构，
// 以便链式调用可以整体替换输入负载。
type AgentRequest struct {
	RequestID string         `json:"request_id"`
	AgentName string         `json:"agent_name"`
	Intent    string         `json:"intent"`
	Input     map[string]any `json:"input"`
	Context   CallContext    `json:"context"`
}

// OutputModel 是智能体成功时返回的结果负载。Result 对核心透明，
// 仅在输入解析时取其标量字符串形式。
type OutputModel struct {
	Result any `json:"result"`
}

// ErrorModel 描述一次失败的分类与诊断信息。
type ErrorModel struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// AgentResponse 是智能体返回的握手响应。Output 与 Error 互斥，
// 由 Status 决定哪一个存在。
type AgentResponse struct {
	RequestID string       `json:"request_id"`
	AgentName string       `json:"agent_name"`
	Status    string       `json:"status"`
	Output    *OutputModel `json:"output,omitempty"`
	Error     *ErrorModel  `json:"error,omitempty"`
}

// Succeeded 判断响应是否成功。
func (r *AgentResponse) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// UsedAgentEntry 是一次真实调用的审计记录。
type UsedAgentEntry struct {
	Name   string `json:"name"`
	Intent string `json:"intent"`
	Status string `json:"status"`
}
