package recall

import (
	"context"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// Source 表示一个可复用的召回源（向量检索/分群兜底/...）。
// 你可以把它理解为"可按请求路径选择的策略单元"。
type Source interface {
	Name() string
	Recall(ctx context.Context, qctx *core.QueryContext) ([]*core.Candidate, error)
}
