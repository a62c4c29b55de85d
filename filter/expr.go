package filter

import (
	"context"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/pkg/dsl"
)

// ExprFilter 是基于 CEL 表达式的候选过滤器。
// 表达式返回 true 表示保留该候选（注意语义：表达式描述"保留条件"）。
//
// 示例：
//
//	&ExprFilter{Expr: `candidate.signal > 0.0 || label.recall_source == "segment"`}
type ExprFilter struct {
	Expr string
}

func (f *ExprFilter) Name() string { return "filter.expr" }

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	qctx *core.QueryContext,
	c *core.Candidate,
) (bool, error) {
	if f.Expr == "" {
		return false, nil
	}
	keep, err := dsl.NewEval(c, qctx).Evaluate(f.Expr)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
