package rerank

import (
	"context"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/pipeline"
)

// DedupeNode 按候选 ID 去重，同一 ID 保留分数最高的一条（keep-best）。
// 双向召回合并、或引擎返回重复实体时使用；labels 会合并到保留的候选上。
type DedupeNode struct{}

func (n *DedupeNode) Name() string {
	return "rerank.dedupe"
}

func (n *DedupeNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *DedupeNode) Process(
	_ context.Context,
	_ *core.QueryContext,
	candidates []*core.Candidate,
) ([]*core.Candidate, error) {
	if len(candidates) <= 1 {
		return candidates, nil
	}

	best := make(map[string]int, len(candidates))
	out := make([]*core.Candidate, 0, len(candidates))

	for _, c := range candidates {
		if c == nil {
			continue
		}
		idx, seen := best[c.ID]
		if !seen {
			best[c.ID] = len(out)
			out = append(out, c)
			continue
		}
		kept := out[idx]
		if c.Score > kept.Score {
			// 新候选更优：换位并把旧 labels 合并过来
			for k, v := range kept.Labels {
				c.PutLabel(k, v)
			}
			out[idx] = c
			continue
		}
		for k, v := range c.Labels {
			kept.PutLabel(k, v)
		}
	}

	return out, nil
}
