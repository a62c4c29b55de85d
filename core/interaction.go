package core

import "time"

// EventType 是交互事件类型。权重变换阶段据此查表确定事件乘数。
type EventType string

const (
	EventView     EventType = "view"     // 浏览
	EventCartAdd  EventType = "cart_add" // 加购
	EventPurchase EventType = "purchase" // 购买
)

// Interaction 是不可变的原始交互记录（追加写，不更新）。
//
// 身份由 (UserID, ProductID, Timestamp, EventType) 四元组确定；
// 允许重复，重复记录在权重变换阶段累加，绝不静默丢弃。
type Interaction struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`

	// RawWeight 原始权重（可选，默认 1）。
	// 例如同一事件的重复次数、评分等。
	RawWeight float64 `json:"raw_weight,omitempty"`
}

// Validate 在摄入边界做快速失败校验，避免缺字段记录进入训练管道。
func (in *Interaction) Validate() error {
	if in.UserID == "" {
		return NewDomainError(ModuleWeight, ErrorCodeInvalidInput, "interaction missing user_id")
	}
	if in.ProductID == "" {
		return NewDomainError(ModuleWeight, ErrorCodeInvalidInput, "interaction missing product_id")
	}
	if in.EventType == "" {
		return NewDomainError(ModuleWeight, ErrorCodeInvalidInput, "interaction missing event_type")
	}
	if in.Timestamp.IsZero() {
		return NewDomainError(ModuleWeight, ErrorCodeInvalidInput, "interaction missing timestamp")
	}
	if in.RawWeight < 0 {
		return NewDomainError(ModuleWeight, ErrorCodeInvalidInput, "interaction raw_weight must be >= 0")
	}
	return nil
}

// WeightedInteraction 是衰减/聚合后的 (用户, 商品) 权重对。
// 每个去重后的 (UserID, ProductID) 只保留一条，Weight >= 0。
type WeightedInteraction struct {
	UserID    string  `json:"user_id"`
	ProductID string  `json:"product_id"`
	Weight    float64 `json:"weight"`
}
