// server 启动在线推荐服务：加载钉住的模型版本，接好向量引擎与信号库，
// 构建服务链路并对外提供 HTTP 接口。
package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ddev-hyeoncheol/recommendation-system/artifact"
	"github.com/ddev-hyeoncheol/recommendation-system/config"
	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/feast"
	"github.com/ddev-hyeoncheol/recommendation-system/feed"
	"github.com/ddev-hyeoncheol/recommendation-system/pipeline"
	"github.com/ddev-hyeoncheol/recommendation-system/pkg/logger"
	"github.com/ddev-hyeoncheol/recommendation-system/server"
	"github.com/ddev-hyeoncheol/recommendation-system/service"
	"github.com/ddev-hyeoncheol/recommendation-system/store"
	"github.com/ddev-hyeoncheol/recommendation-system/vector"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init("server", settings.LogLevel)

	st := &artifact.Store{Root: settings.ArtifactRoot}
	version := settings.ModelVersion
	if version == "" {
		versions, err := st.Versions()
		if err != nil || len(versions) == 0 {
			log.Fatal().Err(err).Msg("no artifact versions available")
		}
		version = versions[len(versions)-1]
		log.Warn().Str("version", version).Msg("LATEST_MODEL_VERSION not set, using newest artifact")
	}

	a, err := st.Load(version)
	if err != nil {
		log.Fatal().Err(err).Str("version", version).Msg("load artifact")
	}
	log.Info().
		Str("version", a.Version).
		Int("users", a.Users.Len()).
		Int("products", a.Products.Len()).
		Msg("artifact pinned")

	engine, signals := buildBackends(settings, st, a)
	defer engine.Close()
	defer signals.Close()

	deps := &config.Dependencies{
		Engine:          engine,
		Signals:         signals,
		SegmentProducts: a.SegmentProducts,
	}

	p := buildPipeline(settings, deps)

	srv := &server.Server{
		Recommender: &service.Recommender{Artifact: a, Pipeline: p},
		Hits:        settings.Hits,
		TargetHits:  settings.TargetHits,
	}
	if err := srv.Run(settings.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("http server exited")
	}
}

// buildBackends 按配置接好向量引擎与信号库。
// memory 后端从钉住版本的 Feed 流在进程内重建，开发/测试用。
func buildBackends(settings *config.Settings, st *artifact.Store, a *core.ModelArtifact) (core.VectorService, core.SignalService) {
	ctx := context.Background()

	var (
		engine     core.VectorService
		memEngine  *store.MemoryVectorService
		memSignals *store.MemorySignalStore
	)

	switch settings.EngineBackend {
	case "milvus":
		svc, err := vector.NewMilvusService(settings.MilvusAddress)
		if err != nil {
			log.Fatal().Err(err).Msg("connect milvus")
		}
		engine = svc
	default:
		memEngine = store.NewMemoryVectorService()
		engine = memEngine
	}

	var signals core.SignalService
	switch settings.SignalBackend {
	case "redis":
		s, err := store.NewRedisSignalStore(settings.RedisAddress, settings.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		signals = s
	case "feast":
		s, err := feast.NewSignalSource(settings.FeastHost, settings.FeastPort, settings.FeastProject)
		if err != nil {
			log.Fatal().Err(err).Msg("connect feast")
		}
		signals = s
	default:
		memSignals = store.NewMemorySignalStore()
		signals = memSignals
	}

	if memEngine != nil || memSignals != nil {
		loader := &feed.Loader{Metric: settings.Metric}
		if memEngine != nil {
			loader.Engine = memEngine
		}
		if memSignals != nil {
			loader.Signals = memSignals
		}
		dir := filepath.Join(st.Root, a.Version)
		if err := loader.Load(ctx, dir); err != nil {
			log.Fatal().Err(err).Msg("load feed into memory backends")
		}
	}

	engine = &vector.RetrySearcher{
		Inner:    engine,
		Attempts: settings.RetryAttempts,
		Timeout:  time.Duration(settings.RetryTimeoutMS) * time.Millisecond,
	}
	return engine, signals
}

func buildPipeline(settings *config.Settings, deps *config.Dependencies) *pipeline.Pipeline {
	if settings.PipelineConfig == "" {
		return config.DefaultPipeline(deps, settings)
	}

	cfg, err := pipeline.LoadFromYAML(settings.PipelineConfig)
	if err != nil {
		log.Fatal().Err(err).Str("path", settings.PipelineConfig).Msg("load pipeline config")
	}
	p, err := cfg.BuildPipeline(config.DefaultFactory(deps, settings))
	if err != nil {
		log.Fatal().Err(err).Msg("build pipeline")
	}
	return p
}
