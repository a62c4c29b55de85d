package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// 版本目录内的固定文件名
const (
	manifestFile        = "manifest.yaml"
	userMappingFile     = "user_mapping.json"
	productMappingFile  = "product_mapping.json"
	userVectorsFile     = "user_vectors.json"
	productVectorsFile  = "product_vectors.json"
	userMetaFile        = "user_meta.json"
	productMetaFile     = "product_meta.json"
	segmentsFile        = "segments.json"
	segmentProductsFile = "segment_products.json"
)

// Store 管理版本化的 ModelArtifact 目录。
//
// 每个版本一个独立子目录，写入走临时目录 + 原子重命名，
// 要么整个版本落盘、要么什么都没有；已存在的版本不可覆盖，
// 新版本只会并列出现，由在线侧配置决定钉住哪一个。
type Store struct {
	Root string
}

// manifest 是版本目录内的 YAML 元信息文件。
type manifest struct {
	Version   string           `yaml:"version"`
	TrainedAt time.Time        `yaml:"trained_at"`
	Dimension int              `yaml:"dimension"`
	Users     int              `yaml:"users"`
	Products  int              `yaml:"products"`
	Metrics   core.EvalMetrics `yaml:"metrics"`
}

// Save 落盘一个新版本。extras 在重命名前于暂存目录内执行
// （Feed 导出等需要与产物同生共死的写入放在这里）。
func (s *Store) Save(a *core.ModelArtifact, extras ...func(dir string) error) error {
	if a.Version == "" {
		return core.NewDomainError(core.ModuleArtifact, core.ErrorCodeInvalidInput, "artifact version is empty")
	}

	final := filepath.Join(s.Root, a.Version)
	if _, err := os.Stat(final); err == nil {
		return core.NewDomainError(core.ModuleArtifact, core.ErrorCodeInvalidInput,
			fmt.Sprintf("artifact version %q already exists", a.Version))
	}

	staging := filepath.Join(s.Root, ".staging-"+a.Version)
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("clean staging dir: %w", err)
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	m := manifest{
		Version:   a.Version,
		TrainedAt: a.TrainedAt,
		Dimension: a.Dimension,
		Users:     a.Users.Len(),
		Products:  a.Products.Len(),
		Metrics:   a.Metrics,
	}
	manifestBytes, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, manifestFile), manifestBytes, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	files := map[string]any{
		userMappingFile:     a.Users.IDs(),
		productMappingFile:  a.Products.IDs(),
		userVectorsFile:     a.UserEmbeddings.Vectors,
		productVectorsFile:  a.ProductEmbeddings.Vectors,
		userMetaFile:        a.UserMeta,
		productMetaFile:     a.ProductMeta,
		segmentsFile:        a.Segments,
		segmentProductsFile: a.SegmentProducts,
	}
	for name, data := range files {
		if err := writeJSON(filepath.Join(staging, name), data); err != nil {
			return err
		}
	}

	for _, extra := range extras {
		if err := extra(staging); err != nil {
			return fmt.Errorf("artifact extra writer: %w", err)
		}
	}

	if err := os.Rename(staging, final); err != nil {
		return fmt.Errorf("publish artifact version: %w", err)
	}

	log.Info().Str("version", a.Version).Str("dir", final).Msg("artifact: version published")
	return nil
}

// Load 读取一个钉住的版本。版本不存在返回 NOT_FOUND。
func (s *Store) Load(version string) (*core.ModelArtifact, error) {
	dir := filepath.Join(s.Root, version)
	if _, err := os.Stat(dir); err != nil {
		return nil, core.NewDomainError(core.ModuleArtifact, core.ErrorCodeNotFound,
			fmt.Sprintf("artifact version %q not found under %s", version, s.Root))
	}

	manifestBytes, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(manifestBytes, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	var userIDs, productIDs []string
	if err := readJSON(filepath.Join(dir, userMappingFile), &userIDs); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, productMappingFile), &productIDs); err != nil {
		return nil, err
	}

	a := &core.ModelArtifact{
		Version:           m.Version,
		TrainedAt:         m.TrainedAt,
		Dimension:         m.Dimension,
		Users:             core.NewIDMapping(),
		Products:          core.NewIDMapping(),
		UserEmbeddings:    &core.EmbeddingSet{Dim: m.Dimension},
		ProductEmbeddings: &core.EmbeddingSet{Dim: m.Dimension},
		Metrics:           m.Metrics,
	}
	for _, id := range userIDs {
		a.Users.Add(id)
	}
	for _, id := range productIDs {
		a.Products.Add(id)
	}

	if err := readJSON(filepath.Join(dir, userVectorsFile), &a.UserEmbeddings.Vectors); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, productVectorsFile), &a.ProductEmbeddings.Vectors); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, userMetaFile), &a.UserMeta); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, productMetaFile), &a.ProductMeta); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, segmentsFile), &a.Segments); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, segmentProductsFile), &a.SegmentProducts); err != nil {
		return nil, err
	}

	if len(a.UserEmbeddings.Vectors) != a.Users.Len() {
		return nil, core.NewDomainError(core.ModuleArtifact, core.ErrorCodeInternalError,
			"user vectors and mapping size mismatch")
	}
	if len(a.ProductEmbeddings.Vectors) != a.Products.Len() {
		return nil, core.NewDomainError(core.ModuleArtifact, core.ErrorCodeInternalError,
			"product vectors and mapping size mismatch")
	}

	return a, nil
}

// Versions 列出已发布的版本名（不含暂存目录）。
func (s *Store) Versions() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && e.Name()[0] != '.' {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
