package matrix

import (
	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// Sparse 是用户×商品的稀疏权重矩阵（COO 存储，按对聚合）。
// 下标来自配套的 IDMapping，所有元素 >= 0。
type Sparse struct {
	Rows int
	Cols int

	RowIdx []int
	ColIdx []int
	Values []float64
}

// NNZ 返回非零元素个数。
func (m *Sparse) NNZ() int { return len(m.Values) }

// Sum 返回所有元素之和。用于与输入权重之和对账（无丢失、无重复）。
func (m *Sparse) Sum() float64 {
	var s float64
	for _, v := range m.Values {
		s += v
	}
	return s
}

// MulVec 计算 y = A * x，x 长度必须为 Cols，返回长度 Rows。
func (m *Sparse) MulVec(x []float64) []float64 {
	y := make([]float64, m.Rows)
	for i, v := range m.Values {
		y[m.RowIdx[i]] += v * x[m.ColIdx[i]]
	}
	return y
}

// MulVecT 计算 y = Aᵗ * x，x 长度必须为 Rows，返回长度 Cols。
func (m *Sparse) MulVecT(x []float64) []float64 {
	y := make([]float64, m.Cols)
	for i, v := range m.Values {
		y[m.ColIdx[i]] += v * x[m.RowIdx[i]]
	}
	return y
}

// Build 把训练集聚合为稀疏矩阵，并构建两侧 ID 映射。
//
// 下标按训练集中首次出现顺序分配（输入顺序固定时完全可复现）；
// 重复 (用户, 商品) 对求和，绝不覆盖。
func Build(train []core.WeightedInteraction) (*Sparse, *core.IDMapping, *core.IDMapping) {
	users := core.NewIDMapping()
	products := core.NewIDMapping()

	type cell struct{ r, c int }
	pos := make(map[cell]int, len(train))

	m := &Sparse{}
	for _, p := range train {
		r := users.Add(p.UserID)
		c := products.Add(p.ProductID)

		if at, ok := pos[cell{r, c}]; ok {
			m.Values[at] += p.Weight
			continue
		}
		pos[cell{r, c}] = len(m.Values)
		m.RowIdx = append(m.RowIdx, r)
		m.ColIdx = append(m.ColIdx, c)
		m.Values = append(m.Values, p.Weight)
	}

	m.Rows = users.Len()
	m.Cols = products.Len()
	return m, users, products
}
