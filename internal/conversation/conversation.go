package conversation

import (
	"context"

	xerrors "Supervisor-Integration-Agent/internal/errors"
)

// 对话角色。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn 是会话中的一条记录。
type Turn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

// Store 抽象了会话历史的持久化接口。
type Store interface {
	Append(ctx context.Context, conversationID string, turn Turn) error
	History(ctx context.Context, conversationID string, limit int) ([]Turn, error)
	Close() error
}

// ErrConversationNotFound 表示指定会话不存在。历史查询对不存在的会话
// 返回空切片而非该错误，仅供未来的管理接口使用。
var ErrConversationNotFound = xerrors.New(xerrors.CodeNotFound, "conversation not found")
