package recall

import (
	"context"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/pipeline"
	"github.com/ddev-hyeoncheol/recommendation-system/pkg/utils"
)

// Segment 是冷启动兜底召回源：无向量的用户按分群标签取同群用户交互过的
// 热门商品（训练期预计算，按热度降序）。
// 分群里没有同伴时返回空列表，这是合法结果，不是错误。
type Segment struct {
	// Products 分群候选表：分群标签 -> 按热度降序的商品列表
	Products map[string][]string
}

func (r *Segment) Name() string        { return "recall.segment" }
func (r *Segment) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口。只有冷启动请求走这条路径。
func (r *Segment) Process(
	ctx context.Context,
	qctx *core.QueryContext,
	candidates []*core.Candidate,
) ([]*core.Candidate, error) {
	if qctx == nil || !qctx.Cold {
		return candidates, nil
	}
	return r.Recall(ctx, qctx)
}

// Recall 实现 Source 接口。
func (r *Segment) Recall(
	_ context.Context,
	qctx *core.QueryContext,
) ([]*core.Candidate, error) {
	if qctx == nil || qctx.Seg == "" {
		return nil, nil
	}

	pids := r.Products[qctx.Seg]
	limit := qctx.TargetHits
	if limit <= 0 {
		limit = qctx.Hits
	}
	if limit > 0 && len(pids) > limit {
		pids = pids[:limit]
	}

	// 热度排名转为递减的伪相似度分，保证与向量路径同构地参与后续混合
	out := make([]*core.Candidate, 0, len(pids))
	for i, pid := range pids {
		c := core.NewCandidate(pid)
		c.Similarity = 1.0 / float64(1+i)
		c.PutLabel("recall_source", utils.Label{Value: "segment", Source: "recall"})
		c.PutLabel("segment", utils.Label{Value: qctx.Seg, Source: "recall"})
		out = append(out, c)
	}
	return out, nil
}
