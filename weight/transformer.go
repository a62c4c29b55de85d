package weight

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// DefaultEventWeights 是默认的事件类型乘数表，事件越重要乘数越大。
var DefaultEventWeights = map[core.EventType]float64{
	core.EventView:     1.0,
	core.EventCartAdd:  3.0,
	core.EventPurchase: 5.0,
}

// Transformer 将原始交互事件转换为每个 (用户, 商品) 对的非负交互权重。
//
// 计算规则：
//   - 时间衰减：乘数 = exp(-lambda * age)，age 以天计，
//     基准时刻取数据集内最大时间戳（而非墙上时钟），保证离线重跑可复现
//   - 事件乘数：按 EventWeights 查表；未注册的事件类型直接报错，
//     避免静默按 0 权重吞掉数据
//   - 聚合：同一 (用户, 商品) 的多条事件权重相加
//
// 纯函数：不修改输入，相同输入（含时间戳）必然得到相同输出。
type Transformer struct {
	// Lambda 衰减系数，0 表示不衰减
	Lambda float64

	// EventWeights 事件类型 -> 正乘数。为 nil 时使用 DefaultEventWeights。
	EventWeights map[core.EventType]float64
}

// Transform 把原始交互转换为聚合后的加权交互。
// 输出按 (UserID, ProductID) 升序排列，与输入顺序无关。
func (t *Transformer) Transform(interactions []core.Interaction) ([]core.WeightedInteraction, error) {
	if len(interactions) == 0 {
		return nil, nil
	}

	events := t.EventWeights
	if events == nil {
		events = DefaultEventWeights
	}

	// 基准时刻：数据集内最大时间戳
	var ref time.Time
	for i := range interactions {
		if err := interactions[i].Validate(); err != nil {
			return nil, err
		}
		if interactions[i].Timestamp.After(ref) {
			ref = interactions[i].Timestamp
		}
	}

	type pairKey struct {
		user    string
		product string
	}
	agg := make(map[pairKey]float64, len(interactions))

	for i := range interactions {
		in := &interactions[i]

		multiplier, ok := events[in.EventType]
		if !ok {
			return nil, core.NewDomainError(core.ModuleWeight, core.ErrorCodeUnknownEventType,
				fmt.Sprintf("unknown event type %q", in.EventType))
		}

		raw := in.RawWeight
		if raw == 0 {
			raw = 1.0
		}

		ageDays := ref.Sub(in.Timestamp).Hours() / 24.0
		decay := 1.0
		if t.Lambda > 0 {
			decay = math.Exp(-t.Lambda * ageDays)
		}

		agg[pairKey{in.UserID, in.ProductID}] += raw * multiplier * decay
	}

	out := make([]core.WeightedInteraction, 0, len(agg))
	for k, w := range agg {
		out = append(out, core.WeightedInteraction{UserID: k.user, ProductID: k.product, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ProductID < out[j].ProductID
	})

	return out, nil
}
