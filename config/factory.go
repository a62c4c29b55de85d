package config

import (
	"github.com/ddev-hyeoncheol/recommendation-system/blend"
	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/filter"
	"github.com/ddev-hyeoncheol/recommendation-system/pipeline"
	"github.com/ddev-hyeoncheol/recommendation-system/pkg/conv"
	"github.com/ddev-hyeoncheol/recommendation-system/recall"
	"github.com/ddev-hyeoncheol/recommendation-system/rerank"
)

// Dependencies 是配置驱动构建 Node 时注入的运行期依赖。
// ANN 召回需要引擎连接、混合打分需要信号源，这些没法从 YAML 里来。
type Dependencies struct {
	Engine          core.VectorService
	Signals         core.SignalService
	SegmentProducts map[string][]string
}

// DefaultFactory 返回一个包含所有内置 Node 的工厂。
// 构建器从节点配置读取参数，缺省值来自 Settings。
func DefaultFactory(deps *Dependencies, settings *Settings) *pipeline.NodeFactory {
	if deps == nil {
		deps = &Dependencies{}
	}
	if settings == nil {
		settings = Default()
	}

	factory := pipeline.NewNodeFactory()

	factory.Register("recall.ann", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return &recall.ANN{
			Engine:            deps.Engine,
			Metric:            conv.ConfigGet(cfg, "metric", settings.Metric),
			UserCollection:    conv.ConfigGet(cfg, "user_collection", ""),
			ProductCollection: conv.ConfigGet(cfg, "product_collection", ""),
		}, nil
	})

	factory.Register("recall.segment", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return &recall.Segment{Products: deps.SegmentProducts}, nil
	})

	factory.Register("filter.expr", func(cfg map[string]interface{}) (pipeline.Node, error) {
		expr := conv.ConfigGet(cfg, "expr", settings.FilterExpr)
		if expr == "" {
			return &filter.FilterNode{}, nil
		}
		return &filter.FilterNode{
			Filters: []filter.Filter{&filter.ExprFilter{Expr: expr}},
		}, nil
	})

	factory.Register("blend.signal", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return &blend.SignalNode{
			Signals: deps.Signals,
			Alpha:   conv.ConfigGetFloat(cfg, "alpha", settings.Alpha),
			Beta:    conv.ConfigGetFloat(cfg, "beta", settings.Beta),
			Batch:   conv.ConfigGetInt(cfg, "batch", 0),
		}, nil
	})

	factory.Register("rerank.dedupe", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return &rerank.DedupeNode{}, nil
	})

	factory.Register("rerank.topn", func(cfg map[string]interface{}) (pipeline.Node, error) {
		return &rerank.TopNNode{N: conv.ConfigGetInt(cfg, "n", 0)}, nil
	})

	return factory
}

// DefaultPipeline 返回内置的服务链路：召回 -> 混合 -> 过滤 -> 去重 -> 截断。
// 过滤在混合之后执行，表达式可以引用混合后的 score 与 signal。
// 没有提供 YAML 链路配置时使用。
func DefaultPipeline(deps *Dependencies, settings *Settings) *pipeline.Pipeline {
	if deps == nil {
		deps = &Dependencies{}
	}
	if settings == nil {
		settings = Default()
	}

	nodes := []pipeline.Node{
		&recall.ANN{Engine: deps.Engine, Metric: settings.Metric},
		&recall.Segment{Products: deps.SegmentProducts},
		&blend.SignalNode{Signals: deps.Signals, Alpha: settings.Alpha, Beta: settings.Beta},
	}
	if settings.FilterExpr != "" {
		nodes = append(nodes, &filter.FilterNode{
			Filters: []filter.Filter{&filter.ExprFilter{Expr: settings.FilterExpr}},
		})
	}
	nodes = append(nodes,
		&rerank.DedupeNode{},
		&rerank.TopNNode{},
	)

	return &pipeline.Pipeline{Nodes: nodes}
}
