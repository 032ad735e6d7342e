package conversation

import (
	"context"
	"fmt"
	"testing"
)

func TestMemoryStoreAppendAndHistory(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	turns := []Turn{
		{Role: RoleUser, Content: "你好"},
		{Role: RoleAssistant, Content: "你好，有什么可以帮忙？"},
		{Role: RoleUser, Content: "查一下天气"},
	}
	for _, turn := range turns {
		if err := store.Append(ctx, "conv-1", turn); err != nil {
			t.Fatalf("写入失败: %v", err)
		}
	}

	history, err := store.History(ctx, "conv-1", 10)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("应返回 3 条记录，实际 %d", len(history))
	}
	if history[0].Content != "你好" || history[2].Content != "查一下天气" {
		t.Fatalf("记录应按时间先后排列: %+v", history)
	}
	if history[0].CreatedAt == 0 {
		t.Fatal("写入时应补齐时间戳")
	}
}

func TestMemoryStoreHistoryLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = store.Append(ctx, "conv-1", Turn{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	history, err := store.History(ctx, "conv-1", 2)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("应仅返回最近 2 条，实际 %d", len(history))
	}
	if history[0].Content != "m3" || history[1].Content != "m4" {
		t.Fatalf("应返回最近的记录: %+v", history)
	}
}

func TestMemoryStoreUnknownConversation(t *testing.T) {
	store := NewMemoryStore()

	history, err := store.History(context.Background(), "ghost", 10)
	if err != nil {
		t.Fatalf("未知会话不应报错: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("未知会话应返回空历史: %+v", history)
	}
}

func TestMemoryStoreEmptyConversationID(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Append(context.Background(), "  ", Turn{Role: RoleUser, Content: "x"}); err == nil {
		t.Fatal("空会话 ID 应报错")
	}
}

func TestMemoryStoreCapsTurns(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < maxTurnsPerConversation+10; i++ {
		_ = store.Append(ctx, "conv-1", Turn{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	history, _ := store.History(ctx, "conv-1", 0)
	if len(history) != maxTurnsPerConversation {
		t.Fatalf("历史应被截断到上限: %d", len(history))
	}
}
