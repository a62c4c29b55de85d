package segment

import (
	"sort"
	"strings"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// 活跃度分段阈值（无人口属性可用时的兜底规则）
const (
	lowActivityMax = 3
)

// Assigner 给用户打离散分群标签，规则确定、每用户恰好一个标签。
//
// 分群只在在线侧作为冷启动代理使用：查询用户没有训练向量时，
// 借同分群用户的交互热点生成候选。已有训练向量的用户即使在表里
// 也不会被分群覆盖（服务层优先走向量路径）。
//
// 规则（按优先级）：
//  1. 有国家属性：region:<country>/<state>（小写；state 缺失记为 "-"）
//  2. 否则按交互条数分活跃度段：activity:none / activity:low / activity:high
type Assigner struct{}

// Assign 为 population 中的每个用户产出分群标签。
func (a *Assigner) Assign(
	population []string,
	meta map[string]core.UserMeta,
	pairs []core.WeightedInteraction,
) map[string]string {
	counts := make(map[string]int)
	for _, p := range pairs {
		counts[p.UserID]++
	}

	out := make(map[string]string, len(population))
	for _, uid := range population {
		out[uid] = labelFor(uid, meta, counts)
	}
	return out
}

func labelFor(uid string, meta map[string]core.UserMeta, counts map[string]int) string {
	if m, ok := meta[uid]; ok && m.Country != "" {
		state := m.State
		if state == "" {
			state = "-"
		}
		return "region:" + strings.ToLower(m.Country) + "/" + strings.ToLower(state)
	}

	switch n := counts[uid]; {
	case n == 0:
		return "activity:none"
	case n <= lowActivityMax:
		return "activity:low"
	default:
		return "activity:high"
	}
}

// BuildSegmentProducts 为每个分群预计算候选商品表：
// 该分群用户交互过的商品，按累计权重降序（同权重按 pid 升序，保证确定性）。
// 冷启动路径直接从这张表取候选，只要分群里有同伴就保证非空。
func BuildSegmentProducts(segments map[string]string, pairs []core.WeightedInteraction) map[string][]string {
	type acc map[string]float64
	weights := make(map[string]acc)

	for _, p := range pairs {
		seg, ok := segments[p.UserID]
		if !ok {
			continue
		}
		byProduct, ok := weights[seg]
		if !ok {
			byProduct = make(acc)
			weights[seg] = byProduct
		}
		byProduct[p.ProductID] += p.Weight
	}

	out := make(map[string][]string, len(weights))
	for seg, byProduct := range weights {
		pids := make([]string, 0, len(byProduct))
		for pid := range byProduct {
			pids = append(pids, pid)
		}
		sort.Slice(pids, func(i, j int) bool {
			wi, wj := byProduct[pids[i]], byProduct[pids[j]]
			if wi != wj {
				return wi > wj
			}
			return pids[i] < pids[j]
		})
		out[seg] = pids
	}
	return out
}
