package blend

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/pipeline"
	"github.com/ddev-hyeoncheol/recommendation-system/pkg/utils"
)

// SignalNode 是混合打分节点：把引擎相似度与辅助排序信号加权融合。
//
//	score = alpha*similarity + beta*signal
//
// 信号按候选 ID 批量并发拉取；取不到的候选按 signal=0 参与融合。
// 信号源故障只降级（全部按 0 处理）不失败，保证检索结果始终可用。
//
// 示例：
//
//	node := &blend.SignalNode{
//	    Signals: redisStore,
//	    Alpha:   0.8,
//	    Beta:    0.2,
//	}
type SignalNode struct {
	Signals core.SignalService // 辅助信号源（Redis / Feast / 内存实现）
	Alpha   float64            // 相似度权重
	Beta    float64            // 信号权重
	Batch   int                // 单次 BatchGet 的 ID 数上限（<=0 时不分批）
}

func (n *SignalNode) Name() string        { return "blend.signal" }
func (n *SignalNode) Kind() pipeline.Kind { return pipeline.KindBlend }

func (n *SignalNode) Process(
	ctx context.Context,
	qctx *core.QueryContext,
	candidates []*core.Candidate,
) ([]*core.Candidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	signals := n.fetchSignals(ctx, qctx, candidates)

	for _, c := range candidates {
		if c == nil {
			continue
		}
		c.Signal = signals[c.ID]
		c.Score = n.Alpha*c.Similarity + n.Beta*c.Signal
		c.PutLabel("blend", utils.Label{Value: "signal", Source: "blend"})
	}
	return candidates, nil
}

// fetchSignals 并发分批拉取候选的辅助信号。任一批次失败时整体降级为空信号。
func (n *SignalNode) fetchSignals(
	ctx context.Context,
	qctx *core.QueryContext,
	candidates []*core.Candidate,
) map[string]float64 {
	if n.Signals == nil {
		return nil
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c != nil {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	// 候选是对端实体：user_to_product 查商品信号，反之查用户信号
	kind := core.QueryKind(qctx.Direction).Counterpart()

	batch := n.Batch
	if batch <= 0 || batch >= len(ids) {
		got, err := n.Signals.BatchGet(ctx, kind, ids)
		if err != nil {
			log.Warn().Err(err).Str("kind", string(kind)).Msg("signal fetch failed, degrading to zero")
			return nil
		}
		return got
	}

	var (
		mu     sync.Mutex
		merged = make(map[string]float64, len(ids))
		eg, _  = errgroup.WithContext(ctx)
	)
	for start := 0; start < len(ids); start += batch {
		end := start + batch
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		eg.Go(func() error {
			got, err := n.Signals.BatchGet(ctx, kind, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			for id, v := range got {
				merged[id] = v
			}
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).Msg("signal fetch failed, degrading to zero")
		return nil
	}
	return merged
}
