package core

import "github.com/ddev-hyeoncheol/recommendation-system/pkg/utils"

// Candidate 是服务链路中的统一承载结构：相似度、辅助信号、混合分、元信息、标签。
// Similarity 与 Signal 是混合打分的两个输入；Score 是最终排序依据。
type Candidate struct {
	// ID 对端实体 ID（user_to_product 时是 pid，反之是 uid）
	ID string

	// Similarity 引擎原生相似度分（向量路径）或分群热度分（冷启动路径）
	Similarity float64

	// Signal 归一化到 [0,1] 的辅助排序信号（热度/新近度等），缺失为 0
	Signal float64

	// Score 混合后的最终分：alpha*Similarity + beta*Signal
	Score float64

	Meta   map[string]any
	Labels map[string]utils.Label
}

func NewCandidate(id string) *Candidate {
	return &Candidate{
		ID:     id,
		Meta:   make(map[string]any),
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (c *Candidate) PutLabel(key string, lbl utils.Label) {
	if c.Labels == nil {
		c.Labels = make(map[string]utils.Label)
	}
	if old, ok := c.Labels[key]; ok {
		c.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	c.Labels[key] = lbl
}
