package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/pkg/utils"
)

type alwaysFilter struct {
	name string
	out  bool
	err  error
}

func (f *alwaysFilter) Name() string { return f.name }

func (f *alwaysFilter) ShouldFilter(_ context.Context, _ *core.QueryContext, _ *core.Candidate) (bool, error) {
	return f.out, f.err
}

func cand(id string, signal float64) *core.Candidate {
	c := core.NewCandidate(id)
	c.Signal = signal
	return c
}

func TestFilterNode_RemovesFiltered(t *testing.T) {
	n := &FilterNode{Filters: []Filter{&alwaysFilter{name: "block_all", out: true}}}

	cands := []*core.Candidate{cand("p1", 0), cand("p2", 0)}
	out, err := n.Process(context.Background(), nil, cands)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("全部候选应被过滤，实际剩 %d", len(out))
	}
	// 被过滤的候选打上 filtered 标签并记录来源
	lbl := cands[0].Labels["filtered"]
	if lbl.Value != "true" || lbl.Source != "block_all" {
		t.Errorf("过滤标签不正确: %+v", lbl)
	}
}

func TestFilterNode_ErrorSkipsFilter(t *testing.T) {
	n := &FilterNode{Filters: []Filter{
		&alwaysFilter{name: "broken", err: errors.New("boom")},
	}}

	out, err := n.Process(context.Background(), nil, []*core.Candidate{cand("p1", 0)})
	if err != nil {
		t.Fatalf("过滤器出错应跳过而非中断: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("出错的过滤器不应删除候选，实际剩 %d", len(out))
	}
}

func TestFilterNode_FirstMatchWins(t *testing.T) {
	n := &FilterNode{Filters: []Filter{
		&alwaysFilter{name: "pass", out: false},
		&alwaysFilter{name: "block", out: true},
		&alwaysFilter{name: "never_reached", out: true},
	}}

	cands := []*core.Candidate{cand("p1", 0)}
	out, err := n.Process(context.Background(), nil, cands)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("候选应被第二个过滤器拦下")
	}
	if cands[0].Labels["filtered"].Source != "block" {
		t.Errorf("标签来源应是命中的过滤器: %+v", cands[0].Labels["filtered"])
	}
}

func TestFilterNode_NoFilters(t *testing.T) {
	n := &FilterNode{}
	cands := []*core.Candidate{cand("p1", 0)}

	out, err := n.Process(context.Background(), nil, cands)
	if err != nil || len(out) != 1 {
		t.Errorf("无过滤器时原样透传: %v %v", out, err)
	}
}

func TestExprFilter_KeepSemantics(t *testing.T) {
	// 表达式描述保留条件：signal > 0.1 的候选保留
	f := &ExprFilter{Expr: "candidate.signal > 0.1"}
	qctx := &core.QueryContext{QueryID: "u1", Direction: core.DirectionUserToProduct}

	hot := cand("p_hot", 0.5)
	cold := cand("p_cold", 0.0)

	if filtered, err := f.ShouldFilter(context.Background(), qctx, hot); err != nil || filtered {
		t.Errorf("满足保留条件的候选不应被过滤: %v %v", filtered, err)
	}
	if filtered, err := f.ShouldFilter(context.Background(), qctx, cold); err != nil || !filtered {
		t.Errorf("不满足保留条件的候选应被过滤: %v %v", filtered, err)
	}
}

func TestExprFilter_EmptyExprKeepsAll(t *testing.T) {
	f := &ExprFilter{}
	if filtered, err := f.ShouldFilter(context.Background(), nil, cand("p1", 0)); err != nil || filtered {
		t.Errorf("空表达式不过滤任何候选: %v %v", filtered, err)
	}
}

func TestExprFilter_LabelBasedKeep(t *testing.T) {
	f := &ExprFilter{Expr: `label.recall_source == "segment" || candidate.signal > 0.0`}
	qctx := &core.QueryContext{QueryID: "u1", Direction: core.DirectionUserToProduct, Cold: true}

	c := cand("p1", 0)
	c.PutLabel("recall_source", utils.Label{Value: "segment", Source: "recall"})

	if filtered, err := f.ShouldFilter(context.Background(), qctx, c); err != nil || filtered {
		t.Errorf("分群召回的候选应保留: %v %v", filtered, err)
	}
}
