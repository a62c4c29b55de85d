package weight

import (
	"math"
	"testing"
	"time"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

func ts(day int) time.Time {
	return time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC)
}

func TestTransform_EventMultipliers(t *testing.T) {
	tr := &Transformer{}
	in := []core.Interaction{
		{UserID: "u1", ProductID: "p1", EventType: core.EventView, Timestamp: ts(1)},
		{UserID: "u1", ProductID: "p2", EventType: core.EventCartAdd, Timestamp: ts(1)},
		{UserID: "u1", ProductID: "p3", EventType: core.EventPurchase, Timestamp: ts(1)},
	}

	out, err := tr.Transform(in)
	if err != nil {
		t.Fatalf("Transform 失败: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("期望 3 个权重对，实际 %d", len(out))
	}

	want := map[string]float64{"p1": 1, "p2": 3, "p3": 5}
	for _, p := range out {
		if got := want[p.ProductID]; math.Abs(p.Weight-got) > 1e-12 {
			t.Errorf("%s 权重期望 %v，实际 %v", p.ProductID, got, p.Weight)
		}
	}
}

func TestTransform_Aggregation(t *testing.T) {
	tr := &Transformer{}
	in := []core.Interaction{
		{UserID: "u1", ProductID: "p1", EventType: core.EventView, Timestamp: ts(1)},
		{UserID: "u1", ProductID: "p1", EventType: core.EventView, Timestamp: ts(1)},
		{UserID: "u1", ProductID: "p1", EventType: core.EventPurchase, Timestamp: ts(1)},
	}

	out, err := tr.Transform(in)
	if err != nil {
		t.Fatalf("Transform 失败: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("期望聚合为 1 个权重对，实际 %d", len(out))
	}
	if math.Abs(out[0].Weight-7) > 1e-12 {
		t.Errorf("重复事件应累加：期望 7，实际 %v", out[0].Weight)
	}
}

func TestTransform_Decay(t *testing.T) {
	tr := &Transformer{Lambda: 0.1}
	in := []core.Interaction{
		{UserID: "u1", ProductID: "p_old", EventType: core.EventView, Timestamp: ts(1)},
		{UserID: "u1", ProductID: "p_new", EventType: core.EventView, Timestamp: ts(11)},
	}

	out, err := tr.Transform(in)
	if err != nil {
		t.Fatalf("Transform 失败: %v", err)
	}

	byPID := make(map[string]float64)
	for _, p := range out {
		byPID[p.ProductID] = p.Weight
	}

	// 基准时刻是数据集内最大时间戳：新事件不衰减
	if math.Abs(byPID["p_new"]-1) > 1e-12 {
		t.Errorf("最新事件不应衰减：实际 %v", byPID["p_new"])
	}
	wantOld := math.Exp(-0.1 * 10)
	if math.Abs(byPID["p_old"]-wantOld) > 1e-12 {
		t.Errorf("10 天前事件期望 %v，实际 %v", wantOld, byPID["p_old"])
	}
}

func TestTransform_UnknownEventType(t *testing.T) {
	tr := &Transformer{}
	in := []core.Interaction{
		{UserID: "u1", ProductID: "p1", EventType: "wishlist", Timestamp: ts(1)},
	}

	_, err := tr.Transform(in)
	if err == nil {
		t.Fatal("未注册事件类型应报错")
	}
	if !core.IsUnknownEventType(err) {
		t.Errorf("期望 UNKNOWN_EVENT_TYPE 错误，实际 %v", err)
	}
}

func TestTransform_PermutationInvariance(t *testing.T) {
	tr := &Transformer{Lambda: 0.05}
	in := []core.Interaction{
		{UserID: "u2", ProductID: "p1", EventType: core.EventView, Timestamp: ts(3)},
		{UserID: "u1", ProductID: "p2", EventType: core.EventCartAdd, Timestamp: ts(2)},
		{UserID: "u1", ProductID: "p1", EventType: core.EventPurchase, Timestamp: ts(1)},
	}
	reversed := []core.Interaction{in[2], in[1], in[0]}

	a, err := tr.Transform(in)
	if err != nil {
		t.Fatalf("Transform 失败: %v", err)
	}
	b, err := tr.Transform(reversed)
	if err != nil {
		t.Fatalf("Transform 失败: %v", err)
	}

	if len(a) != len(b) {
		t.Fatalf("输入顺序不应影响结果数量：%d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("第 %d 个结果不一致：%+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestTransform_NonNegative(t *testing.T) {
	tr := &Transformer{Lambda: 0.5}
	in := []core.Interaction{
		{UserID: "u1", ProductID: "p1", EventType: core.EventView, Timestamp: ts(1), RawWeight: 2.5},
		{UserID: "u2", ProductID: "p2", EventType: core.EventPurchase, Timestamp: ts(20)},
	}

	out, err := tr.Transform(in)
	if err != nil {
		t.Fatalf("Transform 失败: %v", err)
	}
	for _, p := range out {
		if p.Weight < 0 {
			t.Errorf("权重必须非负：%+v", p)
		}
	}
}

func TestLogNorm_Compresses(t *testing.T) {
	pairs := []core.WeightedInteraction{
		{UserID: "u1", ProductID: "p1", Weight: 0},
		{UserID: "u1", ProductID: "p2", Weight: 100},
	}

	out := (&LogNorm{}).Apply(pairs)
	if out[0].Weight != 0 {
		t.Errorf("log1p(0) 应为 0，实际 %v", out[0].Weight)
	}
	if math.Abs(out[1].Weight-math.Log1p(100)) > 1e-12 {
		t.Errorf("log1p(100) 期望 %v，实际 %v", math.Log1p(100), out[1].Weight)
	}
	// 输入不被修改
	if pairs[1].Weight != 100 {
		t.Error("Apply 不应修改输入")
	}
}

func TestBM25_PenalizesPopular(t *testing.T) {
	// p_hot 被所有用户交互，p_niche 只有一个用户：IDF 应给 p_niche 更高权重
	pairs := []core.WeightedInteraction{
		{UserID: "u1", ProductID: "p_hot", Weight: 1},
		{UserID: "u2", ProductID: "p_hot", Weight: 1},
		{UserID: "u3", ProductID: "p_hot", Weight: 1},
		{UserID: "u1", ProductID: "p_niche", Weight: 1},
	}

	out := (&BM25{}).Apply(pairs)
	byKey := make(map[string]float64)
	for _, p := range out {
		byKey[p.UserID+"/"+p.ProductID] = p.Weight
	}

	if byKey["u1/p_niche"] <= byKey["u1/p_hot"] {
		t.Errorf("小众商品应获得更高权重：niche=%v hot=%v",
			byKey["u1/p_niche"], byKey["u1/p_hot"])
	}
}
