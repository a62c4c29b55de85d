package split

import (
	"fmt"
	"testing"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

func makePairs(userCount, perUser int) []core.WeightedInteraction {
	var out []core.WeightedInteraction
	for u := 0; u < userCount; u++ {
		for p := 0; p < perUser; p++ {
			out = append(out, core.WeightedInteraction{
				UserID:    fmt.Sprintf("u%02d", u),
				ProductID: fmt.Sprintf("p%02d", (u+p)%7),
				Weight:    1,
			})
		}
	}
	return out
}

func TestSplit_InsufficientData(t *testing.T) {
	s := &Splitter{Seed: 1}
	_, _, err := s.Split(makePairs(2, 2))
	if err == nil {
		t.Fatal("数据量不足应报错")
	}
	if !core.IsInsufficientData(err) {
		t.Errorf("期望 INSUFFICIENT_DATA 错误，实际 %v", err)
	}
}

func TestSplit_Partition(t *testing.T) {
	pairs := makePairs(10, 5)
	s := &Splitter{TestRatio: 0.2, Seed: 7}

	train, test, err := s.Split(pairs)
	if err != nil {
		t.Fatalf("Split 失败: %v", err)
	}
	if len(train)+len(test) != len(pairs) {
		t.Errorf("切分应无遗漏无重复：%d + %d != %d", len(train), len(test), len(pairs))
	}
	if len(test) == 0 {
		t.Error("正常数据下测试集不应为空")
	}
}

func TestSplit_SmallUsersStayInTrain(t *testing.T) {
	// u_small 只有 1 条交互，不足 MinInteractions=2，应整体留在训练集
	pairs := append(makePairs(5, 4), core.WeightedInteraction{
		UserID: "u_small", ProductID: "p00", Weight: 1,
	})
	s := &Splitter{TestRatio: 0.5, Seed: 3}

	_, test, err := s.Split(pairs)
	if err != nil {
		t.Fatalf("Split 失败: %v", err)
	}
	for _, p := range test {
		if p.UserID == "u_small" {
			t.Error("低活跃用户不应进入测试集")
		}
	}
}

func TestSplit_EveryUserKeepsTrainRow(t *testing.T) {
	pairs := makePairs(8, 3)
	s := &Splitter{TestRatio: 0.9, Seed: 11}

	train, test, err := s.Split(pairs)
	if err != nil {
		t.Fatalf("Split 失败: %v", err)
	}

	trainUsers := make(map[string]bool)
	for _, p := range train {
		trainUsers[p.UserID] = true
	}
	for _, p := range test {
		if !trainUsers[p.UserID] {
			t.Errorf("测试集用户 %s 在训练集没有任何交互", p.UserID)
		}
	}
}

func TestSplit_TestProductsCoveredByTrain(t *testing.T) {
	pairs := makePairs(12, 4)
	s := &Splitter{TestRatio: 0.4, Seed: 5}

	train, test, err := s.Split(pairs)
	if err != nil {
		t.Fatalf("Split 失败: %v", err)
	}

	trainProducts := make(map[string]bool)
	for _, p := range train {
		trainProducts[p.ProductID] = true
	}
	for _, p := range test {
		if !trainProducts[p.ProductID] {
			t.Errorf("测试集商品 %s 在训练集未出现", p.ProductID)
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	pairs := makePairs(10, 4)
	s := &Splitter{TestRatio: 0.25, Seed: 42}

	train1, test1, err := s.Split(pairs)
	if err != nil {
		t.Fatalf("Split 失败: %v", err)
	}
	train2, test2, err := s.Split(pairs)
	if err != nil {
		t.Fatalf("Split 失败: %v", err)
	}

	if len(train1) != len(train2) || len(test1) != len(test2) {
		t.Fatal("相同种子切分结果应一致")
	}
	for i := range train1 {
		if train1[i] != train2[i] {
			t.Fatalf("训练集第 %d 行不一致", i)
		}
	}
	for i := range test1 {
		if test1[i] != test2[i] {
			t.Fatalf("测试集第 %d 行不一致", i)
		}
	}
}
