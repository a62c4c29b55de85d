// trainer 执行一次离线训练：读取交互数据，产出版本化模型产物与 Feed 流，
// 并可选地把 Feed 摄入向量引擎和信号库。
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/ddev-hyeoncheol/recommendation-system/artifact"
	"github.com/ddev-hyeoncheol/recommendation-system/config"
	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/evaluate"
	"github.com/ddev-hyeoncheol/recommendation-system/factorize"
	"github.com/ddev-hyeoncheol/recommendation-system/feed"
	"github.com/ddev-hyeoncheol/recommendation-system/pkg/logger"
	"github.com/ddev-hyeoncheol/recommendation-system/segment"
	"github.com/ddev-hyeoncheol/recommendation-system/split"
	"github.com/ddev-hyeoncheol/recommendation-system/store"
	"github.com/ddev-hyeoncheol/recommendation-system/train"
	"github.com/ddev-hyeoncheol/recommendation-system/vector"
	"github.com/ddev-hyeoncheol/recommendation-system/weight"
)

func main() {
	var (
		interactionsPath = flag.String("interactions", "", "interactions JSONL path (overrides config)")
		usersPath        = flag.String("users", "", "user metadata JSONL path")
		productsPath     = flag.String("products", "", "product metadata JSONL path")
		version          = flag.String("version", "", "artifact version (default: timestamp)")
		ingest           = flag.Bool("ingest", false, "ingest feed into the vector engine and signal store after training")
	)
	flag.Parse()

	settings, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init("trainer", settings.LogLevel)

	path := settings.Training.InteractionsPath
	if *interactionsPath != "" {
		path = *interactionsPath
	}
	if path == "" {
		log.Fatal().Msg("interactions path is required (flag -interactions or config)")
	}

	interactions, err := train.ReadInteractions(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("read interactions")
	}
	userMeta, err := train.ReadUserMeta(*usersPath)
	if err != nil {
		log.Fatal().Err(err).Msg("read user metadata")
	}
	productMeta, err := train.ReadProductMeta(*productsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("read product metadata")
	}

	runner := buildRunner(settings, *version)
	a, err := runner.Run(&train.Input{
		Interactions: interactions,
		UserMeta:     userMeta,
		ProductMeta:  productMeta,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("training run failed")
	}

	if *ingest {
		if err := ingestFeed(settings, a.Version); err != nil {
			log.Fatal().Err(err).Msg("feed ingestion failed")
		}
	}
}

func buildRunner(settings *config.Settings, version string) *train.Runner {
	t := settings.Training
	if version == "" {
		version = t.Version
	}

	var reweighter weight.Reweighter
	switch t.Reweight {
	case "lognorm":
		reweighter = &weight.LogNorm{}
	case "bm25":
		reweighter = &weight.BM25{}
	}

	return &train.Runner{
		Store:       &artifact.Store{Root: settings.ArtifactRoot},
		Transformer: &weight.Transformer{Lambda: t.Lambda},
		Reweighter:  reweighter,
		Splitter: &split.Splitter{
			TestRatio:       t.TestRatio,
			MinInteractions: t.MinInteractions,
			Seed:            t.Seed,
		},
		Trainer: &factorize.Trainer{
			K:          settings.VectorDimension,
			PowerIters: t.PowerIters,
			Seed:       t.Seed,
		},
		Evaluator: &evaluate.Evaluator{
			TopK:    t.TopK,
			SampleN: t.SampleN,
			Seed:    t.Seed,
		},
		Assigner: &segment.Assigner{},
		Exporter: &feed.Exporter{},
		Version:  version,
	}
}

// ingestFeed 把刚发布的版本目录下的 Feed 流摄入引擎与信号库。
func ingestFeed(settings *config.Settings, version string) error {
	ctx := context.Background()

	var engine core.VectorDatabaseService
	switch settings.EngineBackend {
	case "milvus":
		svc, err := vector.NewMilvusService(settings.MilvusAddress)
		if err != nil {
			return err
		}
		engine = svc
	default:
		log.Warn().Str("backend", settings.EngineBackend).Msg("no persistent engine backend, skipping vector ingestion")
	}

	var signals core.SignalWriter
	switch settings.SignalBackend {
	case "redis":
		st, err := store.NewRedisSignalStore(settings.RedisAddress, settings.RedisDB)
		if err != nil {
			return err
		}
		signals = st
	}

	if engine == nil && signals == nil {
		return nil
	}

	loader := &feed.Loader{
		Engine:  engine,
		Signals: signals,
		Metric:  settings.Metric,
	}
	dir := filepath.Join(settings.ArtifactRoot, version)
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	if err := loader.Load(ctx, dir); err != nil {
		return err
	}

	log.Info().Str("version", version).Msg("feed ingested")
	if engine != nil {
		_ = engine.Close()
	}
	return nil
}
