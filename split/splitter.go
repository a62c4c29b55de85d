package split

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// Splitter 把加权交互切分为训练集与测试集，按用户分层。
//
// 保证：
//   - 交互数不足 MinInteractions 的用户整体进入训练集（冷启动防护）
//   - 合格用户至少留一条交互在训练集
//   - 测试集中出现的每个用户 ID 和商品 ID 都至少在训练集出现一次，
//     否则评估会拿未训练实体去对比，失去意义
//
// 给定相同 Seed 与相同输入顺序，切分结果完全可复现。
type Splitter struct {
	// TestRatio 测试集比例（默认 0.2）
	TestRatio float64

	// MinInteractions 用户进入测试集的最低交互数（默认 2）
	MinInteractions int

	// MinTotal 有意义训练所需的最低总交互数（默认 10）
	MinTotal int

	// Seed 随机种子
	Seed int64
}

// Split 执行切分。数据量不足时返回 INSUFFICIENT_DATA。
func (s *Splitter) Split(pairs []core.WeightedInteraction) (train, test []core.WeightedInteraction, err error) {
	minTotal := s.MinTotal
	if minTotal <= 0 {
		minTotal = 10
	}
	if len(pairs) < minTotal {
		return nil, nil, core.NewDomainError(core.ModuleSplit, core.ErrorCodeInsufficientData,
			fmt.Sprintf("need at least %d interactions for training, got %d", minTotal, len(pairs)))
	}

	ratio := s.TestRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.2
	}
	minPerUser := s.MinInteractions
	if minPerUser <= 0 {
		minPerUser = 2
	}

	// 按用户分组（下标分组，避免复制）
	byUser := make(map[string][]int)
	for i, p := range pairs {
		byUser[p.UserID] = append(byUser[p.UserID], i)
	}

	// 固定用户遍历顺序，保证可复现
	users := make([]string, 0, len(byUser))
	for u := range byUser {
		users = append(users, u)
	}
	sort.Strings(users)

	rng := rand.New(rand.NewSource(s.Seed))

	trainIdx := make([]int, 0, len(pairs))
	testIdx := make([]int, 0, len(pairs))

	for _, u := range users {
		rows := byUser[u]
		if len(rows) < minPerUser {
			trainIdx = append(trainIdx, rows...)
			continue
		}

		shuffled := make([]int, len(rows))
		copy(shuffled, rows)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		// 至少留一条在训练集
		nTest := int(math.Floor(float64(len(shuffled)) * ratio))
		if nTest >= len(shuffled) {
			nTest = len(shuffled) - 1
		}

		testIdx = append(testIdx, shuffled[:nTest]...)
		trainIdx = append(trainIdx, shuffled[nTest:]...)
	}

	// 覆盖修正：测试集里训练集没见过的商品，整行挪回训练集
	trainProducts := make(map[string]struct{}, len(trainIdx))
	for _, i := range trainIdx {
		trainProducts[pairs[i].ProductID] = struct{}{}
	}

	keptTest := testIdx[:0]
	for _, i := range testIdx {
		if _, ok := trainProducts[pairs[i].ProductID]; !ok {
			trainIdx = append(trainIdx, i)
			trainProducts[pairs[i].ProductID] = struct{}{}
			continue
		}
		keptTest = append(keptTest, i)
	}
	testIdx = keptTest

	sort.Ints(trainIdx)
	sort.Ints(testIdx)

	train = make([]core.WeightedInteraction, len(trainIdx))
	for i, idx := range trainIdx {
		train[i] = pairs[idx]
	}
	test = make([]core.WeightedInteraction, len(testIdx))
	for i, idx := range testIdx {
		test[i] = pairs[idx]
	}

	return train, test, nil
}
