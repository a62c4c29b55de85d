package rerank

import (
	"context"
	"testing"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/pkg/utils"
)

func cand(id string, score float64) *core.Candidate {
	c := core.NewCandidate(id)
	c.Score = score
	return c
}

func TestDedupe_KeepBest(t *testing.T) {
	n := &DedupeNode{}

	low := cand("p1", 0.3)
	low.PutLabel("recall_source", utils.Label{Value: "segment", Source: "recall"})
	high := cand("p1", 0.9)
	high.PutLabel("recall_source", utils.Label{Value: "ann", Source: "recall"})

	out, err := n.Process(context.Background(), nil, []*core.Candidate{low, high, cand("p2", 0.5)})
	if err != nil {
		t.Fatal(err)
	}

	if len(out) != 2 {
		t.Fatalf("重复 ID 应合并为一条，实际 %d 条", len(out))
	}
	if out[0].ID != "p1" || out[0].Score != 0.9 {
		t.Errorf("应保留分数更高的一条: %+v", out[0])
	}
	// 被替换候选的 labels 合并到保留者上
	lbl := out[0].Labels["recall_source"]
	if lbl.Value != "ann|segment" {
		t.Errorf("labels 应合并保留历史，实际 %q", lbl.Value)
	}
}

func TestDedupe_KeepFirstWhenNewNotBetter(t *testing.T) {
	n := &DedupeNode{}

	first := cand("p1", 0.9)
	second := cand("p1", 0.9)
	second.PutLabel("blend", utils.Label{Value: "signal", Source: "blend"})

	out, err := n.Process(context.Background(), nil, []*core.Candidate{first, second})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != first {
		t.Fatalf("同分时保留先到者")
	}
	if _, ok := out[0].Labels["blend"]; !ok {
		t.Errorf("后到者的 labels 应合并到保留者")
	}
}

func TestDedupe_PreservesOrder(t *testing.T) {
	n := &DedupeNode{}

	out, err := n.Process(context.Background(), nil, []*core.Candidate{
		cand("p3", 0.1), cand("p1", 0.2), cand("p3", 0.05),
	})
	if err != nil {
		t.Fatal(err)
	}
	if out[0].ID != "p3" || out[1].ID != "p1" {
		t.Errorf("去重不应改变首次出现顺序: %v %v", out[0].ID, out[1].ID)
	}
}

func TestTopN_SortAndTruncate(t *testing.T) {
	n := &TopNNode{N: 2}

	out, err := n.Process(context.Background(), nil, []*core.Candidate{
		cand("p1", 0.2), cand("p2", 0.9), cand("p3", 0.5),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].ID != "p2" || out[1].ID != "p3" {
		t.Errorf("应按分数降序截断到 2 条: %v", ids(out))
	}
}

func TestTopN_TieBreakDeterministic(t *testing.T) {
	n := &TopNNode{N: 3}

	// 两种输入顺序，输出必须一致
	a, _ := n.Process(context.Background(), nil, []*core.Candidate{
		cand("p_b", 0.5), cand("p_a", 0.5), cand("p_c", 0.5),
	})
	b, _ := n.Process(context.Background(), nil, []*core.Candidate{
		cand("p_c", 0.5), cand("p_a", 0.5), cand("p_b", 0.5),
	})

	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("同分候选排序与输入顺序有关: %v vs %v", ids(a), ids(b))
		}
	}
	if a[0].ID != "p_a" {
		t.Errorf("同分按 ID 升序，实际 %v", ids(a))
	}
}

func TestTopN_FallsBackToHits(t *testing.T) {
	n := &TopNNode{}
	qctx := &core.QueryContext{Hits: 1}

	out, err := n.Process(context.Background(), qctx, []*core.Candidate{
		cand("p1", 0.2), cand("p2", 0.9),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != "p2" {
		t.Errorf("N 未设置时用 qctx.Hits 截断: %v", ids(out))
	}
}

func ids(cs []*core.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
