// Package train 把离线管线的各阶段按固定顺序编排为一次训练运行：
// 权重变换 -> 数据切分 -> 矩阵构建 -> 矩阵分解 -> 评估 -> 分群 -> 产物落盘 + Feed 导出。
// 任一阶段出错整个运行中止，不落任何产物。
package train

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ddev-hyeoncheol/recommendation-system/artifact"
	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/evaluate"
	"github.com/ddev-hyeoncheol/recommendation-system/factorize"
	"github.com/ddev-hyeoncheol/recommendation-system/feed"
	"github.com/ddev-hyeoncheol/recommendation-system/matrix"
	"github.com/ddev-hyeoncheol/recommendation-system/segment"
	"github.com/ddev-hyeoncheol/recommendation-system/split"
	"github.com/ddev-hyeoncheol/recommendation-system/weight"
)

// Runner 编排一次完整的训练运行。
type Runner struct {
	Store *artifact.Store

	Transformer *weight.Transformer
	Reweighter  weight.Reweighter // 可选的聚合后再变换
	Splitter    *split.Splitter
	Trainer     *factorize.Trainer
	Evaluator   *evaluate.Evaluator
	Assigner    *segment.Assigner
	Exporter    *feed.Exporter

	// Version 产物版本号，留空时按时间戳生成
	Version string
}

// Input 是一次训练运行的全部输入。
type Input struct {
	Interactions []core.Interaction

	// UserMeta / ProductMeta 元数据表（可选）。
	// 缺失的实体照常训练，响应元数据与分群退化到活跃度规则。
	UserMeta    map[string]core.UserMeta
	ProductMeta map[string]core.ProductMeta
}

// Run 执行训练并把版本化产物（含 Feed 流）原子落盘。
func (r *Runner) Run(in *Input) (*core.ModelArtifact, error) {
	version := r.Version
	if version == "" {
		version = time.Now().UTC().Format("v20060102T150405Z")
	}

	log.Info().
		Str("version", version).
		Int("interactions", len(in.Interactions)).
		Msg("training run started")

	// 1. 权重变换
	pairs, err := r.Transformer.Transform(in.Interactions)
	if err != nil {
		return nil, err
	}
	if r.Reweighter != nil {
		pairs = r.Reweighter.Apply(pairs)
	}

	// 2. 切分
	trainPairs, testPairs, err := r.Splitter.Split(pairs)
	if err != nil {
		return nil, err
	}

	// 3. 矩阵构建（仅训练集）
	m, users, products := matrix.Build(trainPairs)

	// 4. 分解
	result, err := r.Trainer.Train(m)
	if err != nil {
		return nil, err
	}

	// 5. 评估
	metrics := r.Evaluator.Evaluate(trainPairs, testPairs, users, products,
		result.UserFactors, result.ProductFactors)

	// 6. 分群：覆盖交互数据与元数据里出现过的所有用户，
	// 冷启动查询才能命中分群表
	population := segmentPopulation(pairs, in.UserMeta)
	segments := r.Assigner.Assign(population, in.UserMeta, pairs)
	segmentProducts := segment.BuildSegmentProducts(segments, pairs)

	a := &core.ModelArtifact{
		Version:   version,
		TrainedAt: time.Now().UTC(),
		Dimension: r.Trainer.K,
		Users:     users,
		Products:  products,
		UserEmbeddings: &core.EmbeddingSet{
			Dim:     r.Trainer.K,
			Vectors: result.UserFactors,
		},
		ProductEmbeddings: &core.EmbeddingSet{
			Dim:     r.Trainer.K,
			Vectors: result.ProductFactors,
		},
		UserMeta:        in.UserMeta,
		ProductMeta:     in.ProductMeta,
		Segments:        segments,
		SegmentProducts: segmentProducts,
		Metrics:         metrics,
	}

	// 7. 辅助信号：双侧归一化热度
	signals := ComputeSignals(pairs)

	// 8. 落盘：Feed 导出在 staging 目录内完成，随产物一起原子发布
	exporter := r.Exporter
	if exporter == nil {
		exporter = &feed.Exporter{}
	}
	if err := r.Store.Save(a, func(dir string) error {
		return exporter.Export(a, signals, dir)
	}); err != nil {
		return nil, err
	}

	log.Info().
		Str("version", version).
		Int("users", users.Len()).
		Int("products", products.Len()).
		Float64("recall_at_k", metrics.RecallAtK).
		Float64("ndcg", metrics.NDCG).
		Msg("training run finished")

	return a, nil
}

// ComputeSignals 从聚合权重计算双侧辅助排序信号：
// 实体累计权重 / 全体最大累计权重，归一化到 [0,1]。
func ComputeSignals(pairs []core.WeightedInteraction) map[core.EntityKind]map[string]float64 {
	userTotal := make(map[string]float64)
	productTotal := make(map[string]float64)
	for _, p := range pairs {
		userTotal[p.UserID] += p.Weight
		productTotal[p.ProductID] += p.Weight
	}

	return map[core.EntityKind]map[string]float64{
		core.EntityUser:    normalize(userTotal),
		core.EntityProduct: normalize(productTotal),
	}
}

func normalize(totals map[string]float64) map[string]float64 {
	var max float64
	for _, v := range totals {
		if v > max {
			max = v
		}
	}
	out := make(map[string]float64, len(totals))
	if max <= 0 {
		return out
	}
	for id, v := range totals {
		out[id] = v / max
	}
	return out
}

func segmentPopulation(pairs []core.WeightedInteraction, meta map[string]core.UserMeta) []string {
	seen := make(map[string]struct{}, len(meta))
	out := make([]string, 0, len(meta))
	for _, p := range pairs {
		if _, ok := seen[p.UserID]; !ok {
			seen[p.UserID] = struct{}{}
			out = append(out, p.UserID)
		}
	}
	for uid := range meta {
		if _, ok := seen[uid]; !ok {
			seen[uid] = struct{}{}
			out = append(out, uid)
		}
	}
	return out
}
