package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryQueueRoundTrip(t *testing.T) {
	queue := NewMemoryQueue(8)
	defer queue.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []Entry
	done := make(chan struct{})

	go func() {
		_ = queue.Consume(ctx, 2, func(ctx context.Context, entry Entry) error {
			mu.Lock()
			received = append(received, entry)
			if len(received) == 3 {
				close(done)
			}
			mu.Unlock()
			return nil
		})
	}()

	for i := 0; i < 3; i++ {
		entry := Entry{ConversationID: "conv-1", Agent: "kb_agent", Intent: "create_task", Status: "success"}
		if err := queue.Publish(ctx, entry); err != nil {
			t.Fatalf("投递失败: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("消费超时")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 {
		t.Fatalf("应消费 3 条事件，实际 %d", len(received))
	}
	if received[0].Agent != "kb_agent" {
		t.Fatalf("事件内容不符: %+v", received[0])
	}
}

func TestMemoryQueuePublishAfterClose(t *testing.T) {
	queue := NewMemoryQueue(1)
	_ = queue.Close()

	if err := queue.Publish(context.Background(), Entry{}); err == nil {
		t.Fatal("关闭后投递应报错")
	}
}

func TestEntryEncodeDecode(t *testing.T) {
	entry := Entry{
		ConversationID: "conv-1",
		Agent:          "kb_agent",
		Intent:         "create_task",
		Status:         "error",
		OccurredAt:     1756000000,
	}
	payload, err := entry.Encode()
	if err != nil {
		t.Fatalf("序列化失败: %v", err)
	}
	decoded, err := DecodeEntry(payload)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if decoded != entry {
		t.Fatalf("往返结果不符: %+v", decoded)
	}

	if _, err := DecodeEntry([]byte("not json")); err == nil {
		t.Fatal("畸形消息应报错")
	}
}
