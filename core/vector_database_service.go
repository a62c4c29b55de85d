package core

import "context"

// VectorDatabaseService 是完整的向量数据库服务接口，供导出/摄入链路使用。
//
// 查询侧只需要 VectorService；Feed Loader 需要建集合与批量写入，
// 因此在 VectorService 之上扩展管理操作。
//
// 实现：
//   - vector.MilvusService（生产）
//   - store.MemoryVectorService（测试/开发）
type VectorDatabaseService interface {
	VectorService

	// Insert 批量插入向量（可附带元数据列）
	Insert(ctx context.Context, req *VectorInsertRequest) error

	// Delete 按 ID 删除向量
	Delete(ctx context.Context, req *VectorDeleteRequest) error

	// CreateCollection 创建集合
	CreateCollection(ctx context.Context, req *VectorCreateCollectionRequest) error

	// DropCollection 删除集合
	DropCollection(ctx context.Context, collection string) error

	// HasCollection 检查集合是否存在
	HasCollection(ctx context.Context, collection string) (bool, error)
}

// VectorInsertRequest 向量插入请求
type VectorInsertRequest struct {
	// Collection 集合名称
	Collection string

	// Vectors 向量列表
	Vectors [][]float64

	// IDs 对应的实体 ID 列表，长度必须与 Vectors 一致
	IDs []string

	// Metadata 每个向量的元数据（可选，如 model_version、父记录引用）
	Metadata []map[string]interface{}
}

// VectorDeleteRequest 向量删除请求
type VectorDeleteRequest struct {
	// Collection 集合名称
	Collection string

	// IDs 要删除的实体 ID 列表
	IDs []string
}

// VectorCreateCollectionRequest 创建集合请求
type VectorCreateCollectionRequest struct {
	// Name 集合名称
	Name string

	// Dimension 向量维度（等于训练配置的 VECTOR_DIMENSION）
	Dimension int

	// Metric 距离度量方式
	Metric string

	// Params 额外参数
	Params map[string]interface{}
}
