package config

import (
	"testing"

	"github.com/ddev-hyeoncheol/recommendation-system/blend"
	"github.com/ddev-hyeoncheol/recommendation-system/filter"
)

func TestDefaultPipeline_FilterRunsAfterBlend(t *testing.T) {
	s := Default()
	s.FilterExpr = `candidate.signal > 0.1`

	p := DefaultPipeline(nil, s)

	blendIdx, filterIdx := -1, -1
	for i, n := range p.Nodes {
		switch n.(type) {
		case *blend.SignalNode:
			blendIdx = i
		case *filter.FilterNode:
			filterIdx = i
		}
	}
	if blendIdx < 0 || filterIdx < 0 {
		t.Fatalf("链路应同时包含混合与过滤节点: blend=%d filter=%d", blendIdx, filterIdx)
	}
	// 过滤在混合之后，表达式引用的 score/signal 已经算好
	if filterIdx < blendIdx {
		t.Errorf("过滤节点应排在混合节点之后: filter=%d blend=%d", filterIdx, blendIdx)
	}
}

func TestDefaultPipeline_NoFilterWithoutExpr(t *testing.T) {
	p := DefaultPipeline(nil, Default())

	for _, n := range p.Nodes {
		if _, ok := n.(*filter.FilterNode); ok {
			t.Error("未配置表达式时不应插入过滤节点")
		}
	}
}
