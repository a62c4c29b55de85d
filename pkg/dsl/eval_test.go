package dsl

import (
	"testing"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/pkg/utils"
)

func fixture() (*core.Candidate, *core.QueryContext) {
	c := core.NewCandidate("p1")
	c.Similarity = 0.9
	c.Signal = 0.4
	c.Score = 0.8
	c.PutLabel("recall_source", utils.Label{Value: "ann", Source: "recall"})

	qctx := &core.QueryContext{
		QueryID:   "u1",
		Direction: core.DirectionUserToProduct,
		Hits:      10,
		Cold:      false,
		Seg:       "",
	}
	return c, qctx
}

func TestEvaluate(t *testing.T) {
	c, qctx := fixture()

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"空表达式恒真", "", true},
		{"候选数值字段", "candidate.score > 0.7", true},
		{"数值不满足", "candidate.signal > 0.5", false},
		{"标签简写访问", `label.recall_source == "ann"`, true},
		{"标签不匹配", `label.recall_source == "segment"`, false},
		{"逻辑组合", `label.recall_source == "ann" && candidate.similarity >= 0.5`, true},
		{"请求侧字段", `query.direction == "user_to_product"`, true},
		{"冷启动标记", "query.cold", false},
		{"取反", "!query.cold", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEval(c, qctx).Evaluate(tt.expr)
			if err != nil {
				t.Fatalf("表达式 %q 执行失败: %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("表达式 %q 期望 %v，实际 %v", tt.expr, tt.want, got)
			}
		})
	}
}

func TestEvaluate_CompileError(t *testing.T) {
	c, qctx := fixture()
	if _, err := NewEval(c, qctx).Evaluate("candidate.score >"); err == nil {
		t.Fatal("非法表达式应返回编译错误")
	}
}

func TestEvaluate_NonBooleanResult(t *testing.T) {
	c, qctx := fixture()
	if _, err := NewEval(c, qctx).Evaluate("candidate.score"); err == nil {
		t.Fatal("非布尔结果应返回错误")
	}
}

func TestEvaluate_NilCandidate(t *testing.T) {
	got, err := NewEval(nil, nil).Evaluate("true")
	if err != nil || !got {
		t.Errorf("常量表达式不依赖输入: %v %v", got, err)
	}
}
