package core

import "context"

// VectorService 是向量检索引擎的领域接口（ANN 查询侧）。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（vector / store）实现
//   - 领域层只描述"给向量找 TopK 邻居"这一个契约，不关心引擎实现
//
// 实现：
//   - vector.MilvusService 对接 Milvus（生产）
//   - store.MemoryVectorService 内存实现（测试/开发）
//   - vector.RetrySearcher 在任意实现之上叠加超时与有界重试
//
// 错误约定：引擎不可达/超时必须以 RETRIEVAL_BACKEND 错误浮出，
// 绝不转换为空结果。
type VectorService interface {
	// Search 向量搜索，返回按相似度降序的 TopK 结果
	Search(ctx context.Context, req *VectorSearchRequest) (*VectorSearchResult, error)

	// Close 关闭连接
	Close() error
}

// VectorSearchRequest 向量搜索请求
type VectorSearchRequest struct {
	// Collection 集合名称（按实体类型分集合，如 "user_vector" / "product_vector"）
	Collection string

	// Vector 查询向量
	Vector []float64

	// TopK 候选池大小（对应配置中的 target_hits）
	TopK int

	// Metric 距离度量方式：cosine / euclidean / inner_product
	Metric string

	// Filter 过滤条件（可选，如 {"model_version": "v3"}）
	Filter map[string]interface{}

	// Params 额外引擎参数（可选，如 {"ef": 200}）
	Params map[string]interface{}
}

// VectorSearchItem 单个向量搜索结果项
type VectorSearchItem struct {
	// ID 实体 ID
	ID string

	// Score 引擎原生相似度分数
	Score float64

	// Distance 距离
	Distance float64
}

// VectorSearchResult 向量搜索结果
type VectorSearchResult struct {
	// Items 搜索结果项列表（按相似度排序）
	Items []VectorSearchItem
}

// ValidateVectorMetric 验证距离度量类型
func ValidateVectorMetric(metric string) bool {
	switch metric {
	case "cosine", "euclidean", "inner_product":
		return true
	default:
		return false
	}
}

// MetricType 距离度量类型（用于类型安全）
type MetricType string

const (
	MetricCosine       MetricType = "cosine"
	MetricEuclidean    MetricType = "euclidean"
	MetricInnerProduct MetricType = "inner_product"
)
