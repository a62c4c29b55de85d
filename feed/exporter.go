package feed

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// SubDir 是产物版本目录下的 Feed 子目录名。
const SubDir = "feed"

// Exporter 把 ModelArtifact 序列化为外部引擎可摄入的记录流，
// 按（实体类型 × 记录类型）分流：
//
//	user_data / product_data        元数据（父记录）
//	user_vector / product_vector    向量（子记录，引用父记录）
//	user_segment                    分群（子记录）
//	user_signal / product_signal    辅助排序信号
//
// 父流先写完再写子流；两组内部各自并发写。导出目标是产物暂存目录，
// 随产物一起原子发布（全量成功或全量不存在）。
type Exporter struct{}

// Export 在 dir 下写出全部记录流。signals 可为 nil。
func (e *Exporter) Export(a *core.ModelArtifact, signals map[core.EntityKind]map[string]float64, dir string) error {
	feedDir := filepath.Join(dir, SubDir)
	if err := os.MkdirAll(feedDir, 0o755); err != nil {
		return fmt.Errorf("create feed dir: %w", err)
	}

	// 父记录流
	var parents errgroup.Group
	parents.Go(func() error {
		return writeStream(filepath.Join(feedDir, StreamUserData), userDataRecords(a))
	})
	parents.Go(func() error {
		return writeStream(filepath.Join(feedDir, StreamProductData), productDataRecords(a))
	})
	if err := parents.Wait(); err != nil {
		return err
	}

	// 子记录流
	var children errgroup.Group
	children.Go(func() error {
		return writeStream(filepath.Join(feedDir, StreamUserVector), userVectorRecords(a))
	})
	children.Go(func() error {
		return writeStream(filepath.Join(feedDir, StreamProductVector), productVectorRecords(a))
	})
	children.Go(func() error {
		return writeStream(filepath.Join(feedDir, StreamUserSegment), segmentRecords(a))
	})
	children.Go(func() error {
		return writeStream(filepath.Join(feedDir, StreamUserSignal), signalRecords(signals[core.EntityUser]))
	})
	children.Go(func() error {
		return writeStream(filepath.Join(feedDir, StreamProductSignal), signalRecords(signals[core.EntityProduct]))
	})
	if err := children.Wait(); err != nil {
		return err
	}

	log.Info().Str("version", a.Version).Str("dir", feedDir).Msg("feed: export done")
	return nil
}

func userDataRecords(a *core.ModelArtifact) []any {
	uids := make([]string, 0, len(a.UserMeta))
	for uid := range a.UserMeta {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	out := make([]any, 0, len(uids))
	for _, uid := range uids {
		m := a.UserMeta[uid]
		out = append(out, UserDataRecord{UID: uid, Country: m.Country, State: m.State, Zipcode: m.Zipcode})
	}
	return out
}

func productDataRecords(a *core.ModelArtifact) []any {
	pids := make([]string, 0, len(a.ProductMeta))
	for pid := range a.ProductMeta {
		pids = append(pids, pid)
	}
	sort.Strings(pids)

	out := make([]any, 0, len(pids))
	for _, pid := range pids {
		m := a.ProductMeta[pid]
		out = append(out, ProductDataRecord{PID: pid, Name: m.Name, Categories: m.Categories})
	}
	return out
}

func userVectorRecords(a *core.ModelArtifact) []any {
	out := make([]any, 0, a.Users.Len())
	for idx, uid := range a.Users.IDs() {
		vec, _ := a.UserEmbeddings.Vector(idx)
		out = append(out, UserVectorRecord{
			UID:          uid,
			UserDataRef:  uid,
			Embedding:    vec,
			ModelVersion: a.Version,
		})
	}
	return out
}

func productVectorRecords(a *core.ModelArtifact) []any {
	out := make([]any, 0, a.Products.Len())
	for idx, pid := range a.Products.IDs() {
		vec, _ := a.ProductEmbeddings.Vector(idx)
		out = append(out, ProductVectorRecord{
			PID:            pid,
			ProductDataRef: pid,
			Embedding:      vec,
			ModelVersion:   a.Version,
		})
	}
	return out
}

func segmentRecords(a *core.ModelArtifact) []any {
	uids := make([]string, 0, len(a.Segments))
	for uid := range a.Segments {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	out := make([]any, 0, len(uids))
	for _, uid := range uids {
		out = append(out, UserSegmentRecord{
			UID:          uid,
			UserDataRef:  uid,
			Segment:      a.Segments[uid],
			ModelVersion: a.Version,
		})
	}
	return out
}

func signalRecords(values map[string]float64) []any {
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, SignalRecord{ID: id, Value: values[id]})
	}
	return out
}

func writeStream(path string, records []any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create stream %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record in %s: %w", filepath.Base(path), err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush stream %s: %w", filepath.Base(path), err)
	}
	return nil
}
