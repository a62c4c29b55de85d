package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// Loader 把导出的记录流摄入外部引擎与信号存储。
//
// 摄入顺序遵守父先子后：先读完元数据流并建立父 ID 集合，
// 再建向量集合、写入向量子记录；引用了不存在父记录的子记录直接报错，
// 不做静默跳过。
type Loader struct {
	Engine  core.VectorDatabaseService
	Signals core.SignalWriter

	// Metric 建集合用的距离度量（默认 cosine）
	Metric string

	// BatchSize 向量写入批大小（默认 500）
	BatchSize int
}

// Load 摄入 dir（产物版本目录）下的全部记录流。
func (l *Loader) Load(ctx context.Context, dir string) error {
	feedDir := filepath.Join(dir, SubDir)

	// 1. 父记录：建立父 ID 集合供引用校验
	userParents := make(map[string]struct{})
	if err := readStream(feedDir, StreamUserData, func(rec UserDataRecord) error {
		userParents[rec.UID] = struct{}{}
		return nil
	}); err != nil {
		return err
	}

	productParents := make(map[string]struct{})
	if err := readStream(feedDir, StreamProductData, func(rec ProductDataRecord) error {
		productParents[rec.PID] = struct{}{}
		return nil
	}); err != nil {
		return err
	}

	// 2. 向量子记录
	if err := l.loadUserVectors(ctx, feedDir, userParents); err != nil {
		return err
	}
	if err := l.loadProductVectors(ctx, feedDir, productParents); err != nil {
		return err
	}

	// 3. 信号流
	if l.Signals != nil {
		if err := l.loadSignals(ctx, feedDir, StreamUserSignal, core.EntityUser); err != nil {
			return err
		}
		if err := l.loadSignals(ctx, feedDir, StreamProductSignal, core.EntityProduct); err != nil {
			return err
		}
	}

	log.Info().Str("dir", feedDir).Msg("feed: ingest done")
	return nil
}

func (l *Loader) loadUserVectors(ctx context.Context, feedDir string, parents map[string]struct{}) error {
	var ids []string
	var vectors [][]float64
	var meta []map[string]interface{}

	if err := readStream(feedDir, StreamUserVector, func(rec UserVectorRecord) error {
		if _, ok := parents[rec.UserDataRef]; !ok {
			return core.NewDomainError(core.ModuleFeed, core.ErrorCodeInvalidInput,
				fmt.Sprintf("user vector %q references missing parent %q", rec.UID, rec.UserDataRef))
		}
		ids = append(ids, rec.UID)
		vectors = append(vectors, rec.Embedding)
		meta = append(meta, map[string]interface{}{"model_version": rec.ModelVersion})
		return nil
	}); err != nil {
		return err
	}

	return l.ingestCollection(ctx, CollectionUserVector, ids, vectors, meta)
}

func (l *Loader) loadProductVectors(ctx context.Context, feedDir string, parents map[string]struct{}) error {
	var ids []string
	var vectors [][]float64
	var meta []map[string]interface{}

	if err := readStream(feedDir, StreamProductVector, func(rec ProductVectorRecord) error {
		if _, ok := parents[rec.ProductDataRef]; !ok {
			return core.NewDomainError(core.ModuleFeed, core.ErrorCodeInvalidInput,
				fmt.Sprintf("product vector %q references missing parent %q", rec.PID, rec.ProductDataRef))
		}
		ids = append(ids, rec.PID)
		vectors = append(vectors, rec.Embedding)
		meta = append(meta, map[string]interface{}{"model_version": rec.ModelVersion})
		return nil
	}); err != nil {
		return err
	}

	return l.ingestCollection(ctx, CollectionProductVector, ids, vectors, meta)
}

func (l *Loader) ingestCollection(ctx context.Context, collection string, ids []string, vectors [][]float64, meta []map[string]interface{}) error {
	if l.Engine == nil || len(ids) == 0 {
		return nil
	}

	metric := l.Metric
	if metric == "" {
		metric = string(core.MetricCosine)
	}

	exists, err := l.Engine.HasCollection(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		if err := l.Engine.CreateCollection(ctx, &core.VectorCreateCollectionRequest{
			Name:      collection,
			Dimension: len(vectors[0]),
			Metric:    metric,
		}); err != nil {
			return err
		}
	}

	batch := l.BatchSize
	if batch <= 0 {
		batch = 500
	}
	for start := 0; start < len(ids); start += batch {
		end := start + batch
		if end > len(ids) {
			end = len(ids)
		}
		if err := l.Engine.Insert(ctx, &core.VectorInsertRequest{
			Collection: collection,
			IDs:        ids[start:end],
			Vectors:    vectors[start:end],
			Metadata:   meta[start:end],
		}); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadSignals(ctx context.Context, feedDir, stream string, kind core.EntityKind) error {
	values := make(map[string]float64)
	if err := readStream(feedDir, stream, func(rec SignalRecord) error {
		values[rec.ID] = rec.Value
		return nil
	}); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	return l.Signals.BatchSet(ctx, kind, values)
}

// readStream 逐行解码一个 JSONL 流。流文件不存在视为空流。
func readStream[T any](feedDir, name string, fn func(T) error) error {
	f, err := os.Open(filepath.Join(feedDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open stream %s: %w", name, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return fmt.Errorf("parse %s line %d: %w", name, line, err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return scanner.Err()
}
