package executor

import (
	"fmt"
	"strconv"
	"strings"

	"Supervisor-Integration-Agent/internal/protocol"
)

// InputSourceUserQuery 表示步骤输入直接取自用户原始问题。
const InputSourceUserQuery = "user_query"

// stepRefPrefix 是步骤间引用的前缀，完整形式为 step:<id>[.<field>]。
const stepRefPrefix = "step:"

// Step 是规划器产出的单个执行步骤。StepID 在计划内唯一，
// 仅作为账本键使用，执行顺序由序列顺序决定。
type Step struct {
	StepID      int    `json:"step_id"`
	Agent       string `json:"agent"`
	Intent      string `json:"intent"`
	InputSource string `json:"input_source"`
}

// Plan 是有序的步骤序列。
type Plan struct {
	Steps []Step `json:"steps"`
}

// Ledger 是一次执行内从步骤 ID 到响应的账本，执行结束后即被丢弃。
type Ledger map[int]*protocol.AgentResponse

// NextSyntheticID 计算链式调用使用的新步骤 ID：现有键最大值加一，
// 账本为空时为零。
func (l Ledger) NextSyntheticID() int {
	next := 0
	for id := range l {
		if id >= next {
			next = id + 1
		}
	}
	return next
}

// ResolutionKind 标记输入解析的来源，便于区分"按计划使用原始问题"
// 与"引用失效后的静默回退"。
type ResolutionKind int

const (
	// ResolvedUserQuery 表示输入源显式指定了用户原始问题。
	ResolvedUserQuery ResolutionKind = iota
	// ResolvedStepOutput 表示输入取自某个前序步骤的输出。
	ResolvedStepOutput
	// FallbackUserQuery 表示引用无法解析，静默回退到用户原始问题。
	FallbackUserQuery
)

// ResolveInput 将步骤声明的输入源解析为具体文本。解析永不失败：
// 无法解析的引用回退到用户原始问题，这是刻意的健壮性选择，
// 保证畸形计划不会中断执行。
func ResolveInput(inputSource, userQuery string, ledger Ledger) (string, ResolutionKind) {
	if inputSource == InputSourceUserQuery {
		return userQuery, ResolvedUserQuery
	}
	if strings.HasPrefix(inputSource, stepRefPrefix) {
		ref := strings.TrimPrefix(inputSource, stepRefPrefix)
		// 点号后缀语法上允许，但字段投影尚未启用，仅取前导 ID 段。
		idSegment, _, _ := strings.Cut(ref, ".")
		stepID, err := strconv.Atoi(idSegment)
		if err == nil {
			if prior, ok := ledger[stepID]; ok && prior != nil && prior.Output != nil {
				return stringify(prior.Output.Result), ResolvedStepOutput
			}
		}
	}
	return userQuery, FallbackUserQuery
}

// stringify 返回输出负载的标量字符串形式。
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
