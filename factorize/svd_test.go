package factorize

import (
	"math"
	"testing"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/matrix"
)

// denseToSparse 把稠密测试矩阵转成 COO 形式。
func denseToSparse(dense [][]float64) *matrix.Sparse {
	m := &matrix.Sparse{Rows: len(dense), Cols: len(dense[0])}
	for i, row := range dense {
		for j, v := range row {
			if v == 0 {
				continue
			}
			m.RowIdx = append(m.RowIdx, i)
			m.ColIdx = append(m.ColIdx, j)
			m.Values = append(m.Values, v)
		}
	}
	return m
}

// testMatrix 返回一个 6x5 有明显低秩结构的矩阵。
func testMatrix() *matrix.Sparse {
	return denseToSparse([][]float64{
		{5, 4, 0, 1, 0},
		{4, 5, 1, 0, 0},
		{5, 5, 0, 1, 1},
		{0, 1, 5, 4, 4},
		{1, 0, 4, 5, 5},
		{0, 0, 5, 5, 4},
	})
}

func TestTrain_EmptyMatrix(t *testing.T) {
	tr := &Trainer{K: 2, Seed: 42}

	_, err := tr.Train(&matrix.Sparse{})
	if err == nil {
		t.Fatal("空矩阵应返回错误")
	}
	if !core.IsDimension(err) {
		t.Errorf("期望 DIMENSION 错误，实际 %v", err)
	}
}

func TestTrain_KOutOfRange(t *testing.T) {
	m := testMatrix()
	// maxK = min(6, 5) - 1 = 4
	for _, k := range []int{0, -1, 5, 100} {
		tr := &Trainer{K: k, Seed: 42}
		if _, err := tr.Train(m); !core.IsDimension(err) {
			t.Errorf("k=%d 应返回 DIMENSION 错误，实际 %v", k, err)
		}
	}
}

func TestTrain_Shapes(t *testing.T) {
	m := testMatrix()
	tr := &Trainer{K: 3, Seed: 42}

	r, err := tr.Train(m)
	if err != nil {
		t.Fatalf("分解失败: %v", err)
	}
	if len(r.UserFactors) != m.Rows || len(r.UserFactors[0]) != 3 {
		t.Errorf("用户向量维度应为 %dx3", m.Rows)
	}
	if len(r.ProductFactors) != m.Cols || len(r.ProductFactors[0]) != 3 {
		t.Errorf("商品向量维度应为 %dx3", m.Cols)
	}
	for i := 1; i < len(r.SingularValues); i++ {
		if r.SingularValues[i] > r.SingularValues[i-1] {
			t.Errorf("奇异值应降序: %v", r.SingularValues)
		}
	}
}

func TestTrain_Deterministic(t *testing.T) {
	m := testMatrix()

	a, err := (&Trainer{K: 2, Seed: 7}).Train(m)
	if err != nil {
		t.Fatal(err)
	}
	b, err := (&Trainer{K: 2, Seed: 7}).Train(m)
	if err != nil {
		t.Fatal(err)
	}

	for i := range a.UserFactors {
		for j := range a.UserFactors[i] {
			if a.UserFactors[i][j] != b.UserFactors[i][j] {
				t.Fatalf("相同种子应产出逐位相同的结果")
			}
		}
	}
}

func TestTrain_ReconstructionImprovesWithK(t *testing.T) {
	m := testMatrix()
	dense := [][]float64{
		{5, 4, 0, 1, 0},
		{4, 5, 1, 0, 0},
		{5, 5, 0, 1, 1},
		{0, 1, 5, 4, 4},
		{1, 0, 4, 5, 5},
		{0, 0, 5, 5, 4},
	}

	frob := func(r *Result) float64 {
		var s float64
		for i := range dense {
			for j := range dense[i] {
				d := dense[i][j] - r.Reconstruct(i, j)
				s += d * d
			}
		}
		return math.Sqrt(s)
	}

	prev := math.Inf(1)
	for _, k := range []int{1, 2, 4} {
		r, err := (&Trainer{K: k, Seed: 42, PowerIters: 16}).Train(m)
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		e := frob(r)
		if e > prev+1e-9 {
			t.Errorf("k=%d 重构误差 %v 不应高于更小 k 的 %v", k, e, prev)
		}
		prev = e
	}
	// 接近满秩时重构应相当精确
	if prev > 1.0 {
		t.Errorf("k=4 重构误差过大: %v", prev)
	}
}
