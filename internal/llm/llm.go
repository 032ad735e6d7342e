package llm

import "context"

// Request 描述一次模型补全所需的上下文。
type Request struct {
	// System 是系统提示词，约束模型的输出格式。
	System string
	// Prompt 是用户侧提示词。
	Prompt string
	// Temperature 控制采样随机性，规划类调用应保持较低值。
	Temperature float64
}

// Client 定义了调用大模型的统一接口。
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
