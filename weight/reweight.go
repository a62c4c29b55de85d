package weight

import (
	"math"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// Reweighter 在聚合后的 (用户, 商品) 权重上做二次变换，
// 用于压缩权重分布或校正热门偏置。对输入不做修改，返回新切片。
type Reweighter interface {
	Name() string
	Apply(pairs []core.WeightedInteraction) []core.WeightedInteraction
}

// LogNorm 对权重做 log(1 + x) 压缩，削弱离群重度用户的影响。
type LogNorm struct {
	// Base 对数底，<= 0 或 e 时取自然对数
	Base float64
}

func (l *LogNorm) Name() string { return "weight.lognorm" }

func (l *LogNorm) Apply(pairs []core.WeightedInteraction) []core.WeightedInteraction {
	out := make([]core.WeightedInteraction, len(pairs))
	logBase := 0.0
	if l.Base > 0 && l.Base != math.E {
		logBase = math.Log(l.Base)
	}
	for i, p := range pairs {
		w := math.Log1p(p.Weight)
		if logBase != 0 {
			w /= logBase
		}
		out[i] = core.WeightedInteraction{UserID: p.UserID, ProductID: p.ProductID, Weight: w}
	}
	return out
}

// BM25 对权重做 BM25 变换，同时校正商品热门偏置（IDF 项）
// 与用户活跃度差异（长度归一化项）。
//
// 公式：IDF * (w * (k1 + 1)) / (w + k1 * (1 - b + b * (L_u / L_avg)))
//   - IDF = log((N - n_i + 0.5) / (n_i + 0.5) + 1)，N 为用户数，n_i 为商品的交互用户数
//   - L_u 为用户权重总和，L_avg 为 L_u 的均值
type BM25 struct {
	// K1 饱和系数，控制权重增长多快进入饱和（默认 1.2）
	K1 float64

	// B 长度归一化系数，控制对重度用户的惩罚力度（默认 0.75）
	B float64
}

func (t *BM25) Name() string { return "weight.bm25" }

func (t *BM25) Apply(pairs []core.WeightedInteraction) []core.WeightedInteraction {
	if len(pairs) == 0 {
		return nil
	}

	k1 := t.K1
	if k1 <= 0 {
		k1 = 1.2
	}
	b := t.B
	if b <= 0 {
		b = 0.75
	}

	// 用户活跃度与商品文档频率
	userLen := make(map[string]float64)
	docFreq := make(map[string]int)
	for _, p := range pairs {
		userLen[p.UserID] += p.Weight
		docFreq[p.ProductID]++
	}

	n := float64(len(userLen))
	var lAvg float64
	for _, l := range userLen {
		lAvg += l
	}
	lAvg /= n

	out := make([]core.WeightedInteraction, len(pairs))
	for i, p := range pairs {
		ni := float64(docFreq[p.ProductID])
		idf := math.Log((n-ni+0.5)/(ni+0.5) + 1)

		norm := 1 - b + b*(userLen[p.UserID]/lAvg)
		w := idf * (p.Weight * (k1 + 1)) / (p.Weight + k1*norm)

		out[i] = core.WeightedInteraction{UserID: p.UserID, ProductID: p.ProductID, Weight: w}
	}
	return out
}
