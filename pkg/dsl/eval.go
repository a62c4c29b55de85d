package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量和函数
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		// 定义变量类型
		cel.Variable("candidate", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("query", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是候选过滤 DSL 解释器，使用 CEL (Common Expression Language) 实现。
// CEL 是 Google 开发的表达式语言，具有类型安全、高性能、线程安全等特性。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：label.recall_source == "segment" / label.blend != "signal"
//   - 数值：candidate.score > 0.7 / candidate.similarity >= 0.5
//   - 逻辑：label.recall_source == "ann" && candidate.score > 0.8
//   - 存在性：label.recall_source != null
//   - 请求侧：query.direction == "user_to_product" / query.cold
//
// 示例：
//   - `candidate.signal > 0.1` → 仅保留有业务热度的候选
//   - `label.recall_source == "segment" && candidate.score > 0.3`
type Eval struct {
	candidate *core.Candidate
	qctx      *core.QueryContext
	env       *cel.Env
}

// NewEval 创建一个新的 DSL 解释器。
func NewEval(c *core.Candidate, qctx *core.QueryContext) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		candidate: c,
		qctx:      qctx,
		env:       env,
	}
}

// Evaluate 解析并执行 DSL 表达式，返回布尔结果。
// 空表达式恒为 true。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	if e.env == nil {
		return false, fmt.Errorf("cel env not initialized")
	}

	// 编译表达式
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	// 创建程序
	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	// 执行表达式
	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		// 对于不存在的 key，CEL 会返回错误
		// 用户应该使用 label.key != null 来检查存在性，而不是直接访问
		return false, fmt.Errorf("eval error: %v", err)
	}

	// 转换为布尔值
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}

	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func (e *Eval) buildInput() map[string]interface{} {
	labels := make(map[string]interface{})
	labelAccessor := make(map[string]interface{})
	if e.candidate != nil {
		for k, v := range e.candidate.Labels {
			labels[k] = map[string]interface{}{
				"value":  v.Value,
				"source": v.Source,
			}
			// label.recall_source 直接返回 value，兼容简写访问
			labelAccessor[k] = v.Value
		}
	}

	candidate := map[string]interface{}{}
	if e.candidate != nil {
		candidate = map[string]interface{}{
			"id":         e.candidate.ID,
			"similarity": e.candidate.Similarity,
			"signal":     e.candidate.Signal,
			"score":      e.candidate.Score,
			"meta":       e.candidate.Meta,
			"labels":     labels,
		}
	}

	query := map[string]interface{}{}
	if e.qctx != nil {
		query = map[string]interface{}{
			"id":          e.qctx.QueryID,
			"direction":   string(e.qctx.Direction),
			"hits":        e.qctx.Hits,
			"target_hits": e.qctx.TargetHits,
			"cold":        e.qctx.Cold,
			"segment":     e.qctx.Seg,
			"params":      e.qctx.Params,
		}
	}

	return map[string]interface{}{
		"candidate": candidate,
		"label":     labelAccessor,
		"query":     query,
	}
}
