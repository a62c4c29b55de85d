package rerank

import (
	"context"
	"sort"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/pipeline"
)

// TopNNode 按混合分降序排序并截断。
// 同分时按 ID 升序，保证同一输入集合的输出完全确定（与输入顺序无关）。
//
// 使用场景：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &blend.SignalNode{...},   // 混合打分
//	        &rerank.DedupeNode{},     // 去重
//	        &rerank.TopNNode{},       // 排序 + 截断到 hits
//	    },
//	}
type TopNNode struct {
	// N 要保留的候选数量（Top N）
	// 如果 N <= 0，使用 QueryContext.Hits
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	qctx *core.QueryContext,
	candidates []*core.Candidate,
) ([]*core.Candidate, error) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})

	limit := n.N
	if limit <= 0 && qctx != nil {
		limit = qctx.Hits
	}
	if limit <= 0 || len(candidates) <= limit {
		return candidates, nil
	}
	return candidates[:limit], nil
}
