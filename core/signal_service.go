package core

import "context"

// SignalService 是辅助排序信号（secondary signal）的领域接口。
//
// 混合打分 score = alpha*similarity + beta*signal 中的 signal 从这里取。
// 信号值由生产方预先归一化到 [0,1]；取不到的 ID 按 0 处理，不算错误。
//
// 实现：
//   - store.RedisSignalStore 从 Redis 读热度分（生产）
//   - feast.SignalSource 从 Feast 在线特征库读（生产，特征平台接入方）
//   - store.MemorySignalStore 内存实现（测试/开发）
type SignalService interface {
	// BatchGet 批量获取候选的辅助信号。
	// 返回 map 中缺失的 ID 表示无信号（调用方按 0 处理）。
	BatchGet(ctx context.Context, kind EntityKind, ids []string) (map[string]float64, error)

	// Close 关闭连接
	Close() error
}

// SignalWriter 是辅助信号的写入接口，Feed 摄入链路使用。
// 在线查询侧只依赖 SignalService，不感知写入。
type SignalWriter interface {
	// BatchSet 批量写入（覆盖）信号值
	BatchSet(ctx context.Context, kind EntityKind, values map[string]float64) error
}

// EntityKind 实体类型，决定信号与集合的命名空间。
type EntityKind string

const (
	EntityUser    EntityKind = "user"
	EntityProduct EntityKind = "product"
)

// Counterpart 返回对端实体类型。
func (k EntityKind) Counterpart() EntityKind {
	if k == EntityUser {
		return EntityProduct
	}
	return EntityUser
}

// QueryKind 返回方向对应的查询侧实体类型。
func QueryKind(d Direction) EntityKind {
	if d == DirectionProductToUser {
		return EntityProduct
	}
	return EntityUser
}
