package recall

import (
	"context"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/pipeline"
	"github.com/ddev-hyeoncheol/recommendation-system/pkg/utils"
)

// ParamQueryVector 是服务层在 Resolve 后写入 QueryContext.Params 的查询向量 key。
const ParamQueryVector = "query_vector"

// ANN 是 Embedding 向量检索召回源（Approximate Nearest Neighbor）。
// 根据推荐方向检索对端集合：uid -> product_vector，pid -> user_vector。
// ANN 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type ANN struct {
	Engine core.VectorService // 向量引擎（Milvus / 内存实现 / 重试包装）
	Metric string             // 距离度量：cosine / euclidean / inner_product

	// UserCollection / ProductCollection 覆盖默认集合名（可选）
	UserCollection    string
	ProductCollection string
}

func (r *ANN) Name() string        { return "recall.ann" }
func (r *ANN) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口。冷启动请求不走向量路径，原样透传交给分群召回。
func (r *ANN) Process(
	ctx context.Context,
	qctx *core.QueryContext,
	candidates []*core.Candidate,
) ([]*core.Candidate, error) {
	if qctx != nil && qctx.Cold {
		return candidates, nil
	}
	return r.Recall(ctx, qctx)
}

// Recall 实现 Source 接口。
func (r *ANN) Recall(
	ctx context.Context,
	qctx *core.QueryContext,
) ([]*core.Candidate, error) {
	if r.Engine == nil || qctx == nil {
		return nil, nil
	}

	vec, ok := queryVector(qctx)
	if !ok {
		return nil, nil
	}

	topK := qctx.TargetHits
	if topK <= 0 {
		topK = qctx.Hits
	}
	if topK <= 0 {
		topK = 10
	}

	metric := r.Metric
	if metric == "" {
		metric = string(core.MetricCosine)
	}

	res, err := r.Engine.Search(ctx, &core.VectorSearchRequest{
		Collection: r.collection(qctx.Direction),
		Vector:     vec,
		TopK:       topK,
		Metric:     metric,
	})
	if err != nil {
		if core.IsRetrievalBackend(err) {
			return nil, err
		}
		return nil, core.WrapDomainError(core.ModuleVector, core.ErrorCodeRetrievalBackend,
			"vector search failed", err)
	}

	out := make([]*core.Candidate, 0, len(res.Items))
	for _, item := range res.Items {
		// 查询实体自身可能出现在对端集合的近邻里（双向训练共享因子空间），
		// 但 ID 空间不同，无需在这里剔除
		c := core.NewCandidate(item.ID)
		c.Similarity = item.Score
		c.PutLabel("recall_source", utils.Label{Value: "ann", Source: "recall"})
		c.PutLabel("ann_metric", utils.Label{Value: metric, Source: "recall"})
		out = append(out, c)
	}
	return out, nil
}

func (r *ANN) collection(d core.Direction) string {
	if d == core.DirectionProductToUser {
		if r.UserCollection != "" {
			return r.UserCollection
		}
		return "user_vector"
	}
	if r.ProductCollection != "" {
		return r.ProductCollection
	}
	return "product_vector"
}

func queryVector(qctx *core.QueryContext) ([]float64, bool) {
	raw, ok := qctx.Params[ParamQueryVector]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case []float64:
		return v, len(v) > 0
	case []float32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, len(out) > 0
	case []interface{}:
		out := make([]float64, 0, len(v))
		for _, e := range v {
			if f, ok := e.(float64); ok {
				out = append(out, f)
			}
		}
		return out, len(out) > 0
	}
	return nil, false
}
