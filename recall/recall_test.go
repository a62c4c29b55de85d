package recall

import (
	"context"
	"errors"
	"testing"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// fakeEngine 返回固定结果或固定错误。
type fakeEngine struct {
	result *core.VectorSearchResult
	err    error

	lastReq *core.VectorSearchRequest
}

func (f *fakeEngine) Search(_ context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeEngine) Close() error { return nil }

func warmQuery() *core.QueryContext {
	return &core.QueryContext{
		QueryID:    "u1",
		Direction:  core.DirectionUserToProduct,
		Hits:       10,
		TargetHits: 100,
		Params:     map[string]any{ParamQueryVector: []float64{0.1, 0.2}},
	}
}

func TestANN_Recall(t *testing.T) {
	eng := &fakeEngine{result: &core.VectorSearchResult{
		Items: []core.VectorSearchItem{
			{ID: "p1", Score: 0.9},
			{ID: "p2", Score: 0.7},
		},
	}}
	r := &ANN{Engine: eng}

	out, err := r.Process(context.Background(), warmQuery(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].ID != "p1" || out[0].Similarity != 0.9 {
		t.Errorf("候选应携带引擎相似度: %+v", out)
	}
	if out[0].Labels["recall_source"].Value != "ann" {
		t.Errorf("应打 ann 召回标签: %+v", out[0].Labels)
	}
	// 请求对端集合、候选池大小用 target_hits
	if eng.lastReq.Collection != "product_vector" {
		t.Errorf("uid 查询应检索商品集合，实际 %q", eng.lastReq.Collection)
	}
	if eng.lastReq.TopK != 100 {
		t.Errorf("TopK 应为 target_hits=100，实际 %d", eng.lastReq.TopK)
	}
}

func TestANN_DirectionSelectsCollection(t *testing.T) {
	eng := &fakeEngine{result: &core.VectorSearchResult{}}
	r := &ANN{Engine: eng}

	qctx := warmQuery()
	qctx.QueryID = "p1"
	qctx.Direction = core.DirectionProductToUser

	if _, err := r.Process(context.Background(), qctx, nil); err != nil {
		t.Fatal(err)
	}
	if eng.lastReq.Collection != "user_vector" {
		t.Errorf("pid 查询应检索用户集合，实际 %q", eng.lastReq.Collection)
	}
}

func TestANN_ColdPassthrough(t *testing.T) {
	eng := &fakeEngine{err: errors.New("should not be called")}
	r := &ANN{Engine: eng}

	qctx := warmQuery()
	qctx.Cold = true

	in := []*core.Candidate{core.NewCandidate("carried")}
	out, err := r.Process(context.Background(), qctx, in)
	if err != nil {
		t.Fatalf("冷启动请求不应触发向量检索: %v", err)
	}
	if len(out) != 1 || out[0].ID != "carried" {
		t.Errorf("冷启动时应原样透传: %+v", out)
	}
}

func TestANN_BackendErrorClassified(t *testing.T) {
	r := &ANN{Engine: &fakeEngine{err: errors.New("connection refused")}}

	_, err := r.Process(context.Background(), warmQuery(), nil)
	if !core.IsRetrievalBackend(err) {
		t.Errorf("引擎故障应以 RETRIEVAL_BACKEND 浮出，实际 %v", err)
	}
}

func TestANN_AlreadyClassifiedNotDoubleWrapped(t *testing.T) {
	inner := core.NewDomainError(core.ModuleVector, core.ErrorCodeRetrievalBackend, "vector engine unavailable")
	r := &ANN{Engine: &fakeEngine{err: inner}}

	_, err := r.Process(context.Background(), warmQuery(), nil)
	if !errors.Is(err, inner) {
		t.Errorf("已分类的错误应原样透出，实际 %v", err)
	}
}

func TestANN_NoQueryVector(t *testing.T) {
	r := &ANN{Engine: &fakeEngine{err: errors.New("should not be called")}}

	qctx := warmQuery()
	delete(qctx.Params, ParamQueryVector)

	out, err := r.Process(context.Background(), qctx, nil)
	if err != nil || out != nil {
		t.Errorf("无查询向量时返回空: %v %v", out, err)
	}
}

func TestSegment_ColdOnly(t *testing.T) {
	r := &Segment{Products: map[string][]string{"region:us/ca": {"p1"}}}

	// 非冷启动请求透传
	qctx := warmQuery()
	in := []*core.Candidate{core.NewCandidate("from_ann")}
	out, err := r.Process(context.Background(), qctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != "from_ann" {
		t.Errorf("向量路径的请求应原样透传: %+v", out)
	}
}

func TestSegment_Recall(t *testing.T) {
	r := &Segment{Products: map[string][]string{
		"region:us/ca": {"p_hot", "p_mid", "p_tail"},
	}}

	qctx := &core.QueryContext{
		QueryID:    "u_cold",
		Direction:  core.DirectionUserToProduct,
		Hits:       10,
		TargetHits: 2,
		Cold:       true,
		Seg:        "region:us/ca",
	}

	out, err := r.Process(context.Background(), qctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("候选应截断到 target_hits=2，实际 %d", len(out))
	}
	// 热度排名转为递减伪相似度
	if out[0].ID != "p_hot" || out[0].Similarity != 1.0 {
		t.Errorf("第 1 名相似度应为 1.0: %+v", out[0])
	}
	if out[1].Similarity != 0.5 {
		t.Errorf("第 2 名相似度应为 0.5，实际 %v", out[1].Similarity)
	}
	if out[0].Labels["segment"].Value != "region:us/ca" {
		t.Errorf("应打分群标签: %+v", out[0].Labels)
	}
}

func TestSegment_EmptySegmentIsLegal(t *testing.T) {
	r := &Segment{Products: map[string][]string{}}

	qctx := &core.QueryContext{
		QueryID:   "u_cold",
		Direction: core.DirectionUserToProduct,
		Hits:      10,
		Cold:      true,
		Seg:       "activity:none",
	}

	out, err := r.Process(context.Background(), qctx, nil)
	if err != nil {
		t.Fatalf("分群无同伴是合法结果不是错误: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("期望空候选集，实际 %d", len(out))
	}
}
