package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	xerrors "Supervisor-Integration-Agent/internal/errors"
)

// maxTurnsPerConversation 限制单个会话在内存中保留的记录数量。
const maxTurnsPerConversation = 200

// MemoryStore 以内存方式保存会话历史，主要用于测试和单机部署。
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]Turn
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string][]Turn)}
}

// Append 追加一条会话记录。
func (m *MemoryStore) Append(_ context.Context, conversationID string, turn Turn) error {
	if strings.TrimSpace(conversationID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "会话 ID 不能为空")
	}
	if turn.CreatedAt == 0 {
		turn.CreatedAt = time.Now().Unix()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	history := append(m.turns[conversationID], turn)
	if len(history) > maxTurnsPerConversation {
		history = history[len(history)-maxTurnsPerConversation:]
	}
	m.turns[conversationID] = history
	return nil
}

// History 返回会话最近的记录，按时间先后排列。
func (m *MemoryStore) History(_ context.Context, conversationID string, limit int) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.turns[conversationID]
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	clone := make([]Turn, len(history))
	copy(clone, history)
	return clone, nil
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}

// ensure interface compliance at compile time
var _ Store = (*MemoryStore)(nil)
