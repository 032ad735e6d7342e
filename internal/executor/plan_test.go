package executor

import (
	"testing"

	"Supervisor-Integration-Agent/internal/protocol"
)

func successResponse(result any) *protocol.AgentResponse {
	return &protocol.AgentResponse{
		Status: protocol.StatusSuccess,
		Output: &protocol.OutputModel{Result: result},
	}
}

func TestResolveInput(t *testing.T) {
	ledger := Ledger{
		1: successResponse("first output"),
		2: successResponse(42),
		3: {Status: protocol.StatusError, Error: &protocol.ErrorModel{Type: protocol.ErrorTypeHTTP}},
	}

	tests := []struct {
		name     string
		source   string
		wantText string
		wantKind ResolutionKind
	}{
		{"用户问题", InputSourceUserQuery, "原始问题", ResolvedUserQuery},
		{"引用前序输出", "step:1", "first output", ResolvedStepOutput},
		{"非字符串输出转为标量文本", "step:2", "42", ResolvedStepOutput},
		{"点号后缀仅取前导 ID", "step:2.count", "42", ResolvedStepOutput},
		{"引用不存在的步骤", "step:9", "原始问题", FallbackUserQuery},
		{"引用无输出的失败步骤", "step:3", "原始问题", FallbackUserQuery},
		{"引用段不是数字", "step:abc", "原始问题", FallbackUserQuery},
		{"未知输入源", "garbage", "原始问题", FallbackUserQuery},
		{"空输入源", "", "原始问题", FallbackUserQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, kind := ResolveInput(tt.source, "原始问题", ledger)
			if text != tt.wantText {
				t.Fatalf("文本不符: got %q want %q", text, tt.wantText)
			}
			if kind != tt.wantKind {
				t.Fatalf("解析类别不符: got %v want %v", kind, tt.wantKind)
			}
		})
	}
}

func TestNextSyntheticID(t *testing.T) {
	if got := (Ledger{}).NextSyntheticID(); got != 0 {
		t.Fatalf("空账本应返回 0，实际 %d", got)
	}
	ledger := Ledger{1: successResponse("a"), 7: successResponse("b"), 3: successResponse("c")}
	if got := ledger.NextSyntheticID(); got != 8 {
		t.Fatalf("应返回最大键加一，实际 %d", got)
	}
}
