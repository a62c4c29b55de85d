// Package config 负责进程配置的加载与校验。
//
// 分层加载（低 -> 高优先级）：
//  1. 默认值（Default()）
//  2. YAML 文件（RECSYS_CONFIG 指定路径时）
//  3. 环境变量（VECTOR_DIMENSION、RECOMMEND_HITS 等约定名）
package config

import (
	"errors"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"
)

// Settings 是进程级配置。
type Settings struct {
	// LogLevel 日志级别：debug / info / warn / error
	LogLevel string `koanf:"log_level"`

	// HTTPAddr HTTP 监听地址，例如 ":8080"
	HTTPAddr string `koanf:"http_addr"`

	// VectorDimension 向量维度（训练的因子数，也是引擎集合的维度）
	VectorDimension int `koanf:"vector_dimension"`

	// Hits 最终返回条数
	Hits int `koanf:"recommend_hits"`

	// TargetHits 去重/过滤前向引擎请求的候选池大小
	TargetHits int `koanf:"recommend_target_hits"`

	// Alpha / Beta 混合打分权重
	Alpha float64 `koanf:"recommend_alpha"`
	Beta  float64 `koanf:"recommend_beta"`

	// ModelVersion 在线服务固定读取的模型版本
	ModelVersion string `koanf:"latest_model_version"`

	// ArtifactRoot 模型产物根目录
	ArtifactRoot string `koanf:"artifact_root"`

	// EngineBackend 向量引擎后端：memory / milvus
	EngineBackend string `koanf:"engine_backend"`

	// MilvusAddress Milvus 服务地址
	MilvusAddress string `koanf:"milvus_address"`

	// SignalBackend 辅助信号后端：memory / redis / feast
	SignalBackend string `koanf:"signal_backend"`

	// RedisAddress Redis 服务地址
	RedisAddress string `koanf:"redis_address"`
	RedisDB      int    `koanf:"redis_db"`

	// Feast 在线特征库接入
	FeastHost    string `koanf:"feast_host"`
	FeastPort    int    `koanf:"feast_port"`
	FeastProject string `koanf:"feast_project"`

	// Metric 引擎距离度量：cosine / euclidean / inner_product
	Metric string `koanf:"metric"`

	// RetryAttempts / RetryTimeoutMS 引擎检索的有界重试参数
	RetryAttempts  int `koanf:"retry_attempts"`
	RetryTimeoutMS int `koanf:"retry_timeout_ms"`

	// PipelineConfig 服务链路 YAML 配置路径（可选，缺省用内置链路）
	PipelineConfig string `koanf:"pipeline_config"`

	// FilterExpr 候选过滤 CEL 表达式（可选）
	FilterExpr string `koanf:"filter_expr"`

	// Training 离线训练参数
	Training TrainingSettings `koanf:"training"`
}

// TrainingSettings 离线管线的超参数。
type TrainingSettings struct {
	// InteractionsPath 交互数据（JSONL）路径
	InteractionsPath string `koanf:"interactions_path"`

	// Lambda 时间衰减系数（按天）
	Lambda float64 `koanf:"lambda"`

	// TestRatio 测试集比例
	TestRatio float64 `koanf:"test_ratio"`

	// MinInteractions 用户进入测试切分的最小交互数
	MinInteractions int `koanf:"min_interactions"`

	// Seed 切分/分解共用的随机种子
	Seed int64 `koanf:"seed"`

	// PowerIters 随机化子空间迭代的幂迭代轮数
	PowerIters int `koanf:"power_iters"`

	// TopK 评估的截断位置
	TopK int `koanf:"eval_top_k"`

	// SampleN 评估抽样的用户数（<=0 评估全量）
	SampleN int `koanf:"eval_sample_n"`

	// Reweight 聚合后权重再变换：none / lognorm / bm25
	Reweight string `koanf:"reweight"`

	// Version 产物版本号（留空时训练入口生成时间戳版本）
	Version string `koanf:"version"`
}

// envKeys 环境变量名 -> koanf key。约定名按原样识别，不加前缀。
var envKeys = map[string]string{
	"LOG_LEVEL":             "log_level",
	"HTTP_ADDR":             "http_addr",
	"VECTOR_DIMENSION":      "vector_dimension",
	"RECOMMEND_HITS":        "recommend_hits",
	"RECOMMEND_TARGET_HITS": "recommend_target_hits",
	"RECOMMEND_ALPHA":       "recommend_alpha",
	"RECOMMEND_BETA":        "recommend_beta",
	"LATEST_MODEL_VERSION":  "latest_model_version",
	"ARTIFACT_ROOT":         "artifact_root",
	"ENGINE_BACKEND":        "engine_backend",
	"MILVUS_ADDRESS":        "milvus_address",
	"SIGNAL_BACKEND":        "signal_backend",
	"REDIS_ADDRESS":         "redis_address",
	"REDIS_DB":              "redis_db",
	"FEAST_HOST":            "feast_host",
	"FEAST_PORT":            "feast_port",
	"FEAST_PROJECT":         "feast_project",
	"PIPELINE_CONFIG":       "pipeline_config",
	"FILTER_EXPR":           "filter_expr",
}

// Default 返回带默认值的配置。
func Default() *Settings {
	return &Settings{
		LogLevel:        "info",
		HTTPAddr:        ":8080",
		VectorDimension: 64,
		Hits:            10,
		TargetHits:      100,
		Alpha:           0.8,
		Beta:            0.2,
		ArtifactRoot:    "artifacts",
		EngineBackend:   "memory",
		SignalBackend:   "memory",
		Metric:          "cosine",
		RetryAttempts:   2,
		RetryTimeoutMS:  800,
		Training: TrainingSettings{
			Lambda:          0.01,
			TestRatio:       0.2,
			MinInteractions: 3,
			Seed:            42,
			PowerIters:      8,
			TopK:            10,
			Reweight:        "none",
		},
	}
}

// Load 分层加载配置并校验。
func Load() (*Settings, error) {
	k := koanf.New(".")

	if path := os.Getenv("RECSYS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 环境变量按约定名识别；回调返回空串的变量被忽略
	envProvider := env.Provider("", ".", func(s string) string {
		if key, ok := envKeys[s]; ok {
			return key
		}
		return ""
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// Validate 校验并修正配置。
func (s *Settings) Validate() error {
	if s.Hits <= 0 {
		return errors.New("recommend_hits must be positive")
	}
	if s.VectorDimension <= 0 {
		return errors.New("vector_dimension must be positive")
	}
	if s.Alpha < 0 || s.Beta < 0 {
		return errors.New("recommend_alpha and recommend_beta must be non-negative")
	}
	// 候选池不得小于返回条数
	if s.TargetHits < s.Hits {
		log.Warn().
			Int("target_hits", s.TargetHits).
			Int("hits", s.Hits).
			Msg("target_hits below hits, raising to hits")
		s.TargetHits = s.Hits
	}
	return nil
}
