package factorize

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/matrix"
)

// Trainer 对稀疏交互矩阵做截断奇异值分解，产出双侧定长隐向量。
//
// 核心思想：
//   - 把用户×商品权重矩阵 A 分解为 A ≈ U·Σ·Vᵗ，只保留前 K 个奇异方向
//   - 奇异值按 sqrt(Σ) 对半折入两侧：用户向量 = U·sqrt(Σ)，商品向量 = V·sqrt(Σ)，
//     这样用户·商品内积近似交互强度，且两侧向量尺度一致，
//     在线做余弦/内积检索都有意义
//
// 求解：随机子空间迭代（seeded）。先用高斯随机矩阵投影出 K 维子空间，
// 交替乘 A、Aᵗ 并正交化若干轮，再对小矩阵做精确特征分解。
// 相同 Seed 必然得到相同结果。
type Trainer struct {
	// K 向量维度（VECTOR_DIMENSION），必须满足 K <= min(rows, cols) - 1
	K int

	// PowerIters 子空间迭代轮数，轮数越多精度越高（默认 8）
	PowerIters int

	// Seed 随机种子
	Seed int64
}

// Result 是分解结果。向量与配套 IDMapping 的下标对齐。
type Result struct {
	UserFactors    [][]float64 // rows x K
	ProductFactors [][]float64 // cols x K
	SingularValues []float64   // 降序
}

// Train 执行分解。K 非法时返回 DIMENSION 错误。
func (t *Trainer) Train(m *matrix.Sparse) (*Result, error) {
	if m == nil || m.Rows == 0 || m.Cols == 0 {
		return nil, core.NewDomainError(core.ModuleFactorize, core.ErrorCodeDimension,
			"interaction matrix is empty")
	}

	maxK := minInt(m.Rows, m.Cols) - 1
	if t.K < 1 || t.K > maxK {
		return nil, core.NewDomainError(core.ModuleFactorize, core.ErrorCodeDimension,
			fmt.Sprintf("vector dimension k=%d out of range [1, %d] for %dx%d matrix",
				t.K, maxK, m.Rows, m.Cols))
	}

	k := t.K
	iters := t.PowerIters
	if iters <= 0 {
		iters = 8
	}

	rng := rand.New(rand.NewSource(t.Seed))

	// 1. 随机投影：Y = A * Omega，Omega 为 cols x k 高斯矩阵
	y := make([][]float64, k)
	for j := 0; j < k; j++ {
		omega := make([]float64, m.Cols)
		for i := range omega {
			omega[i] = rng.NormFloat64()
		}
		y[j] = m.MulVec(omega)
	}
	orthonormalize(y)

	// 2. 子空间迭代：交替乘 Aᵗ、A 并正交化，逼近主奇异子空间
	for it := 0; it < iters; it++ {
		z := make([][]float64, k)
		for j := 0; j < k; j++ {
			z[j] = m.MulVecT(y[j])
		}
		orthonormalize(z)
		for j := 0; j < k; j++ {
			y[j] = m.MulVec(z[j])
		}
		orthonormalize(y)
	}

	// 3. 压缩到小矩阵：B = Qᵗ * A（k x cols），G = B * Bᵗ（k x k 对称）
	b := make([][]float64, k)
	for j := 0; j < k; j++ {
		b[j] = m.MulVecT(y[j])
	}
	g := make([][]float64, k)
	for i := 0; i < k; i++ {
		g[i] = make([]float64, k)
		for j := 0; j <= i; j++ {
			d := dot(b[i], b[j])
			g[i][j] = d
			g[j][i] = d
		}
	}

	// 4. 小矩阵精确特征分解，特征值即奇异值的平方
	eigVals, eigVecs := jacobiEigen(g)
	order := sortDesc(eigVals)

	sigma := make([]float64, k)
	for t2, o := range order {
		if eigVals[o] > 0 {
			sigma[t2] = math.Sqrt(eigVals[o])
		}
	}

	// 5. 回代：u_t = Q * w_t，v_t = Bᵗ * w_t / sigma_t，
	// 再把 sqrt(sigma) 折入两侧
	userFactors := makeMatrix(m.Rows, k)
	productFactors := makeMatrix(m.Cols, k)

	for t2, o := range order {
		if sigma[t2] == 0 {
			continue
		}
		scale := math.Sqrt(sigma[t2])

		for j := 0; j < k; j++ {
			w := eigVecs[j][o]
			if w == 0 {
				continue
			}
			for i := 0; i < m.Rows; i++ {
				userFactors[i][t2] += y[j][i] * w
			}
			for c := 0; c < m.Cols; c++ {
				productFactors[c][t2] += b[j][c] * w
			}
		}
		for i := 0; i < m.Rows; i++ {
			userFactors[i][t2] *= scale
		}
		for c := 0; c < m.Cols; c++ {
			productFactors[c][t2] *= scale / sigma[t2]
		}
	}

	return &Result{
		UserFactors:    userFactors,
		ProductFactors: productFactors,
		SingularValues: sigma,
	}, nil
}

// Reconstruct 计算 (i, j) 位置的重构值，即用户 i 与商品 j 因子向量的内积。
func (r *Result) Reconstruct(i, j int) float64 {
	return dot(r.UserFactors[i], r.ProductFactors[j])
}

// orthonormalize 对列向量组做修正 Gram-Schmidt 正交化。
// 线性相关（范数过小）的列置零。
func orthonormalize(cols [][]float64) {
	const eps = 1e-12
	for j := range cols {
		for p := 0; p < j; p++ {
			d := dot(cols[j], cols[p])
			if d == 0 {
				continue
			}
			for i := range cols[j] {
				cols[j][i] -= d * cols[p][i]
			}
		}
		n := math.Sqrt(dot(cols[j], cols[j]))
		if n < eps {
			for i := range cols[j] {
				cols[j][i] = 0
			}
			continue
		}
		for i := range cols[j] {
			cols[j][i] /= n
		}
	}
}

// jacobiEigen 对对称矩阵做循环 Jacobi 特征分解。
// 返回特征值切片与特征向量矩阵（列 eigVecs[*][t] 对应 eigVals[t]）。
func jacobiEigen(a [][]float64) ([]float64, [][]float64) {
	n := len(a)

	// 工作副本
	m := make([][]float64, n)
	for i := range a {
		m[i] = make([]float64, n)
		copy(m[i], a[i])
	}
	v := makeMatrix(n, n)
	for i := 0; i < n; i++ {
		v[i][i] = 1
	}

	const maxSweeps = 64
	const tol = 1e-14

	for sweep := 0; sweep < maxSweeps; sweep++ {
		var off float64
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				off += m[i][j] * m[i][j]
			}
		}
		if off < tol {
			break
		}

		for p := 0; p < n; p++ {
			for q := p + 1; q < n; q++ {
				if m[p][q] == 0 {
					continue
				}
				theta := (m[q][q] - m[p][p]) / (2 * m[p][q])
				t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				for i := 0; i < n; i++ {
					mip, miq := m[i][p], m[i][q]
					m[i][p] = c*mip - s*miq
					m[i][q] = s*mip + c*miq
				}
				for i := 0; i < n; i++ {
					mpi, mqi := m[p][i], m[q][i]
					m[p][i] = c*mpi - s*mqi
					m[q][i] = s*mpi + c*mqi
				}
				for i := 0; i < n; i++ {
					vip, viq := v[i][p], v[i][q]
					v[i][p] = c*vip - s*viq
					v[i][q] = s*vip + c*viq
				}
			}
		}
	}

	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		vals[i] = m[i][i]
	}
	return vals, v
}

// sortDesc 返回把 vals 按降序排列的下标序（值相同按下标升序，保证确定性）。
func sortDesc(vals []float64) []int {
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	for i := 0; i < len(order); i++ {
		maxAt := i
		for j := i + 1; j < len(order); j++ {
			if vals[order[j]] > vals[order[maxAt]] {
				maxAt = j
			}
		}
		order[i], order[maxAt] = order[maxAt], order[i]
	}
	return order
}

func makeMatrix(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
