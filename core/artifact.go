package core

import "time"

// EmbeddingSet 是与一份 IDMapping 下标对齐的定长向量集合。
// 每次训练整体重建，训练完成后只读。
type EmbeddingSet struct {
	Dim     int
	Vectors [][]float64 // Vectors[i] 对应 IDMapping 下标 i
}

// Vector 按下标取向量。越界返回 nil 和 false。
func (s *EmbeddingSet) Vector(idx int) ([]float64, bool) {
	if s == nil || idx < 0 || idx >= len(s.Vectors) {
		return nil, false
	}
	return s.Vectors[idx], true
}

// Len 返回向量数量。
func (s *EmbeddingSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Vectors)
}

// UserMeta 是用户元数据记录（父记录，供响应和分群使用）。
type UserMeta struct {
	UID     string `json:"uid" yaml:"uid"`
	Country string `json:"country" yaml:"country"`
	State   string `json:"state" yaml:"state"`
	Zipcode string `json:"zipcode" yaml:"zipcode"`
}

// ProductMeta 是商品元数据记录（父记录）。
type ProductMeta struct {
	PID        string   `json:"pid" yaml:"pid"`
	Name       string   `json:"name" yaml:"name"`
	Categories []string `json:"categories" yaml:"categories"`
}

// EvalMetrics 是一次训练运行的评估结果，随 ModelArtifact 一起固化。
type EvalMetrics struct {
	K           int     `json:"k" yaml:"k"`
	RecallAtK   float64 `json:"recall_at_k" yaml:"recall_at_k"`
	PrecisionAt float64 `json:"precision_at_k" yaml:"precision_at_k"`
	HitRate     float64 `json:"hit_rate" yaml:"hit_rate"`
	NDCG        float64 `json:"ndcg" yaml:"ndcg"`
	Coverage    float64 `json:"coverage" yaml:"coverage"`

	Evaluated   int `json:"evaluated" yaml:"evaluated"`
	SkippedCold int `json:"skipped_cold" yaml:"skipped_cold"`
	Degenerate  int `json:"degenerate" yaml:"degenerate"` // 零范数向量数量
}

// ModelArtifact 是一次训练运行的版本化产物：两侧 ID 映射、两侧向量集、
// 用户分群表、评估指标。创建后不可变，新版本只会整体替代旧版本；
// 在线服务始终只引用一个被钉住（pinned）的版本。
type ModelArtifact struct {
	Version   string
	TrainedAt time.Time
	Dimension int

	Users    *IDMapping
	Products *IDMapping

	UserEmbeddings    *EmbeddingSet
	ProductEmbeddings *EmbeddingSet

	UserMeta    map[string]UserMeta
	ProductMeta map[string]ProductMeta

	// Segments 用户冷启动分群表：uid -> 分群标签。
	// 只作为无训练向量用户的替代信号，绝不覆盖已训练向量。
	Segments map[string]string

	// SegmentProducts 分群候选表：分群标签 -> 该群用户交互过的商品（按热度降序）。
	// 冷启动路径直接从这里取候选。
	SegmentProducts map[string][]string

	Metrics EvalMetrics
}

// UserVector 按外部 uid 取用户向量。未收录（冷用户）返回 false。
func (a *ModelArtifact) UserVector(uid string) ([]float64, bool) {
	idx, ok := a.Users.Index(uid)
	if !ok {
		return nil, false
	}
	return a.UserEmbeddings.Vector(idx)
}

// ProductVector 按外部 pid 取商品向量。未收录返回 false。
func (a *ModelArtifact) ProductVector(pid string) ([]float64, bool) {
	idx, ok := a.Products.Index(pid)
	if !ok {
		return nil, false
	}
	return a.ProductEmbeddings.Vector(idx)
}

// SegmentOf 查询用户的分群标签。
func (a *ModelArtifact) SegmentOf(uid string) (string, bool) {
	seg, ok := a.Segments[uid]
	return seg, ok
}

// KnownUser 判断 uid 是否可服务：出现在训练映射或分群表中。
// 元数据表只参与响应装配，不构成可服务的 ID 空间。
func (a *ModelArtifact) KnownUser(uid string) bool {
	if _, ok := a.Users.Index(uid); ok {
		return true
	}
	_, ok := a.Segments[uid]
	return ok
}
