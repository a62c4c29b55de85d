package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/store"
)

func sampleArtifact() *core.ModelArtifact {
	users := core.NewIDMapping()
	users.Add("u1")
	products := core.NewIDMapping()
	products.Add("p1")
	products.Add("p2")

	return &core.ModelArtifact{
		Version:   "v1",
		TrainedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Dimension: 2,
		Users:     users,
		Products:  products,
		UserEmbeddings: &core.EmbeddingSet{
			Dim:     2,
			Vectors: [][]float64{{1, 0}},
		},
		ProductEmbeddings: &core.EmbeddingSet{
			Dim:     2,
			Vectors: [][]float64{{0.9, 0.1}, {0, 1}},
		},
		UserMeta: map[string]core.UserMeta{
			"u1": {UID: "u1", Country: "US", State: "CA", Zipcode: "94107"},
		},
		ProductMeta: map[string]core.ProductMeta{
			"p1": {PID: "p1", Name: "widget", Categories: []string{"tools"}},
			"p2": {PID: "p2", Name: "gadget", Categories: nil},
		},
		Segments: map[string]string{"u1": "region:us/ca"},
	}
}

func TestExport_ChildRecordsReferenceParents(t *testing.T) {
	dir := t.TempDir()
	a := sampleArtifact()

	if err := (&Exporter{}).Export(a, nil, dir); err != nil {
		t.Fatalf("导出失败: %v", err)
	}

	feedDir := filepath.Join(dir, SubDir)
	// 父流收集
	parents := make(map[string]struct{})
	forEachLine(t, filepath.Join(feedDir, StreamProductData), func(raw []byte) {
		var rec ProductDataRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			t.Fatal(err)
		}
		parents[rec.PID] = struct{}{}
	})

	// 子流引用必须都能在父流中找到
	forEachLine(t, filepath.Join(feedDir, StreamProductVector), func(raw []byte) {
		var rec ProductVectorRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			t.Fatal(err)
		}
		if _, ok := parents[rec.ProductDataRef]; !ok {
			t.Errorf("子记录 %q 引用了不存在的父记录 %q", rec.PID, rec.ProductDataRef)
		}
		if rec.ModelVersion != "v1" {
			t.Errorf("子记录应携带模型版本，实际 %q", rec.ModelVersion)
		}
	})
}

func TestExport_SignalStreams(t *testing.T) {
	dir := t.TempDir()
	signals := map[core.EntityKind]map[string]float64{
		core.EntityUser:    {"u1": 0.4},
		core.EntityProduct: {"p1": 1.0, "p2": 0.25},
	}

	if err := (&Exporter{}).Export(sampleArtifact(), signals, dir); err != nil {
		t.Fatal(err)
	}

	var count int
	forEachLine(t, filepath.Join(dir, SubDir, StreamProductSignal), func(raw []byte) {
		var rec SignalRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			t.Fatal(err)
		}
		if rec.Value < 0 || rec.Value > 1 {
			t.Errorf("信号值应已归一化到 [0,1]，实际 %v", rec.Value)
		}
		count++
	})
	if count != 2 {
		t.Errorf("商品信号流应有 2 条记录，实际 %d", count)
	}
}

func TestExportLoad_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	a := sampleArtifact()
	signals := map[core.EntityKind]map[string]float64{
		core.EntityProduct: {"p1": 0.8},
	}

	if err := (&Exporter{}).Export(a, signals, dir); err != nil {
		t.Fatal(err)
	}

	engine := store.NewMemoryVectorService()
	sigStore := store.NewMemorySignalStore()
	loader := &Loader{Engine: engine, Signals: sigStore}

	ctx := context.Background()
	if err := loader.Load(ctx, dir); err != nil {
		t.Fatalf("摄入失败: %v", err)
	}

	// 向量可检索
	res, err := engine.Search(ctx, &core.VectorSearchRequest{
		Collection: CollectionProductVector,
		Vector:     []float64{1, 0},
		TopK:       2,
		Metric:     string(core.MetricCosine),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 2 || res.Items[0].ID != "p1" {
		t.Errorf("p1 与查询向量最相近，实际 %+v", res.Items)
	}

	// 信号可取回
	got, err := sigStore.BatchGet(ctx, core.EntityProduct, []string{"p1", "p2"})
	if err != nil {
		t.Fatal(err)
	}
	if got["p1"] != 0.8 {
		t.Errorf("p1 信号期望 0.8，实际 %v", got["p1"])
	}
	if _, ok := got["p2"]; ok {
		t.Errorf("无信号的 ID 不应出现在结果里")
	}
}

func TestLoad_MissingParentRejected(t *testing.T) {
	dir := t.TempDir()
	feedDir := filepath.Join(dir, SubDir)
	if err := os.MkdirAll(feedDir, 0o755); err != nil {
		t.Fatal(err)
	}

	// 父流为空，子流却引用了 p_ghost
	writeLines(t, filepath.Join(feedDir, StreamProductData), nil)
	writeLines(t, filepath.Join(feedDir, StreamProductVector), []any{
		ProductVectorRecord{PID: "p_ghost", ProductDataRef: "p_ghost", Embedding: []float64{1, 0}, ModelVersion: "v1"},
	})

	loader := &Loader{Engine: store.NewMemoryVectorService()}
	err := loader.Load(context.Background(), dir)
	if err == nil {
		t.Fatal("引用缺失父记录的子流应报错")
	}
	de := core.GetDomainError(err)
	if de == nil || de.Code != core.ErrorCodeInvalidInput {
		t.Errorf("期望 INVALID_INPUT，实际 %v", err)
	}
}

func TestLoad_MissingStreamsAreEmpty(t *testing.T) {
	// 目录里什么流都没有，摄入应当静默完成
	loader := &Loader{Engine: store.NewMemoryVectorService(), Signals: store.NewMemorySignalStore()}
	if err := loader.Load(context.Background(), t.TempDir()); err != nil {
		t.Errorf("不存在的流应视为空流，实际 %v", err)
	}
}

func forEachLine(t *testing.T, path string, fn func(raw []byte)) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("打开流失败: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		fn(scanner.Bytes())
	}
}

func writeLines(t *testing.T, path string, records []any) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			t.Fatal(err)
		}
	}
}
