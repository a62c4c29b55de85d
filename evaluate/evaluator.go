package evaluate

import (
	"math"
	"math/rand"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// Evaluator 用留出测试集评估训练好的向量，产出排序质量指标。
//
// 对每个持有训练向量的测试用户：
//   - 用 用户向量·商品矩阵 算全量预测分
//   - 屏蔽训练集中已见过的商品（分数置 -Inf），再取 TopK
//   - 与该用户的测试商品求重合，累计 Recall / Precision / HitRate / NDCG
//
// 退化情况的处理：
//   - 测试集中未进入训练映射的用户/商品不报错，计入 skipped_cold
//   - 零范数用户向量计入 degenerate 并跳过
//   - Coverage = 出现在任一 TopK 结果中的商品占全目录比例，
//     用于发现向量坍缩（所有查询都推同一批商品）
type Evaluator struct {
	// TopK 推荐列表长度 K（默认 10）
	TopK int

	// SampleN 评估用户采样上限，0 表示全量评估
	SampleN int

	// Seed 采样随机种子
	Seed int64
}

// Evaluate 执行评估。userFactors / productFactors 与两侧 IDMapping 下标对齐。
func (e *Evaluator) Evaluate(
	train, test []core.WeightedInteraction,
	users, products *core.IDMapping,
	userFactors, productFactors [][]float64,
) core.EvalMetrics {
	topK := e.TopK
	if topK <= 0 {
		topK = 10
	}

	metrics := core.EvalMetrics{K: topK}

	// 测试集按用户聚合，映射外的实体计入 skipped_cold
	testItems := make(map[int]map[int]struct{})
	for _, p := range test {
		uIdx, uOK := users.Index(p.UserID)
		pIdx, pOK := products.Index(p.ProductID)
		if !uOK || !pOK {
			metrics.SkippedCold++
			continue
		}
		set, ok := testItems[uIdx]
		if !ok {
			set = make(map[int]struct{})
			testItems[uIdx] = set
		}
		set[pIdx] = struct{}{}
	}

	if len(testItems) == 0 {
		log.Warn().Msg("evaluate: empty test set, nothing to score")
		return metrics
	}

	// 训练集中已见过的商品，评估时屏蔽
	trainItems := make(map[int]map[int]struct{})
	for _, p := range train {
		uIdx, uOK := users.Index(p.UserID)
		pIdx, pOK := products.Index(p.ProductID)
		if !uOK || !pOK {
			continue
		}
		set, ok := trainItems[uIdx]
		if !ok {
			set = make(map[int]struct{})
			trainItems[uIdx] = set
		}
		set[pIdx] = struct{}{}
	}

	// 固定用户顺序后采样，保证可复现
	evalUsers := make([]int, 0, len(testItems))
	for u := range testItems {
		evalUsers = append(evalUsers, u)
	}
	sort.Ints(evalUsers)
	if e.SampleN > 0 && len(evalUsers) > e.SampleN {
		rng := rand.New(rand.NewSource(e.Seed))
		rng.Shuffle(len(evalUsers), func(i, j int) {
			evalUsers[i], evalUsers[j] = evalUsers[j], evalUsers[i]
		})
		evalUsers = evalUsers[:e.SampleN]
		sort.Ints(evalUsers)
	}

	var sumRecall, sumPrecision, sumHit, sumNDCG float64
	covered := make(map[int]struct{})

	for _, uIdx := range evalUsers {
		uVec := userFactors[uIdx]
		if norm(uVec) == 0 {
			metrics.Degenerate++
			continue
		}

		actual := testItems[uIdx]
		seen := trainItems[uIdx]

		scores := make([]float64, len(productFactors))
		for c := range productFactors {
			scores[c] = dot(productFactors[c], uVec)
		}
		for c := range seen {
			if _, isActual := actual[c]; !isActual {
				scores[c] = math.Inf(-1)
			}
		}

		top := topIndices(scores, topK)
		for _, c := range top {
			covered[c] = struct{}{}
		}

		var correct int
		var dcg float64
		for rank, c := range top {
			if _, ok := actual[c]; ok {
				correct++
				dcg += 1.0 / math.Log2(float64(rank)+2)
			}
		}
		var idcg float64
		for i := 0; i < minInt(len(actual), topK); i++ {
			idcg += 1.0 / math.Log2(float64(i)+2)
		}

		sumRecall += float64(correct) / float64(len(actual))
		sumPrecision += float64(correct) / float64(topK)
		if correct > 0 {
			sumHit++
		}
		if idcg > 0 {
			sumNDCG += dcg / idcg
		}
		metrics.Evaluated++
	}

	if metrics.Evaluated > 0 {
		n := float64(metrics.Evaluated)
		metrics.RecallAtK = sumRecall / n
		metrics.PrecisionAt = sumPrecision / n
		metrics.HitRate = sumHit / n
		metrics.NDCG = sumNDCG / n
	}
	if products.Len() > 0 {
		metrics.Coverage = float64(len(covered)) / float64(products.Len())
	}

	log.Info().
		Int("evaluated", metrics.Evaluated).
		Int("skipped_cold", metrics.SkippedCold).
		Float64("recall", metrics.RecallAtK).
		Float64("ndcg", metrics.NDCG).
		Float64("coverage", metrics.Coverage).
		Msg("evaluate: done")

	return metrics
}

// topIndices 返回分数最高的 k 个下标，按分数降序（同分按下标升序）。
func topIndices(scores []float64, k int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if scores[idx[a]] != scores[idx[b]] {
			return scores[idx[a]] > scores[idx[b]]
		}
		return idx[a] < idx[b]
	})
	if len(idx) > k {
		idx = idx[:k]
	}
	// 全部被屏蔽时不计入结果
	out := idx[:0]
	for _, i := range idx {
		if !math.IsInf(scores[i], -1) {
			out = append(out, i)
		}
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
