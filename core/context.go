package core

// Direction 是推荐方向：给用户推商品，或给商品找目标用户。
type Direction string

const (
	// DirectionUserToProduct uid -> 商品候选
	DirectionUserToProduct Direction = "user_to_product"
	// DirectionProductToUser pid -> 用户候选
	DirectionProductToUser Direction = "product_to_user"
)

// Valid 校验方向取值。
func (d Direction) Valid() bool {
	return d == DirectionUserToProduct || d == DirectionProductToUser
}

// QueryContext 承载单次推荐请求的全部输入，贯穿整个服务链路透传。
// 每次请求独立构建，请求间无共享可变状态。
type QueryContext struct {
	// QueryID 查询实体 ID（方向为 user_to_product 时是 uid，反之是 pid）
	QueryID string

	// Direction 推荐方向
	Direction Direction

	// Hits 最终返回的结果条数
	Hits int

	// TargetHits 去重/过滤前向引擎请求的候选池大小，约束 TargetHits >= Hits
	TargetHits int

	// Cold 标记本次请求走了冷启动路径（由服务层在 Resolve 后写入，
	// 供过滤/混合节点感知来源）
	Cold bool

	// Seg 冷启动路径解析出的分群标签
	Seg string

	// Params 请求级扩展参数（过滤表达式可引用）
	Params map[string]any
}
