package vector

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// RetrySearcher 在任意 VectorService 之上叠加单次超时与有界重试。
// Search 是幂等只读操作，重试安全；全部尝试失败后以 RETRIEVAL_BACKEND
// 错误浮出，绝不吞掉错误返回空结果。
//
// 示例：
//
//	engine := &vector.RetrySearcher{
//	    Inner:    milvusService,
//	    Attempts: 2,
//	    Timeout:  800 * time.Millisecond,
//	}
type RetrySearcher struct {
	Inner core.VectorService

	// Attempts 总尝试次数（含首次），<=0 时按 1 处理
	Attempts int

	// Timeout 单次尝试的超时，<=0 时不加超时
	Timeout time.Duration

	// Backoff 两次尝试之间的等待，<=0 时立即重试
	Backoff time.Duration
}

func (r *RetrySearcher) Search(ctx context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		if i > 0 && r.Backoff > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				i = attempts
				continue
			case <-time.After(r.Backoff):
			}
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if r.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		}

		res, err := r.Inner.Search(attemptCtx, req)
		cancel()
		if err == nil {
			return res, nil
		}
		lastErr = err
		log.Warn().Err(err).
			Str("collection", req.Collection).
			Int("attempt", i+1).
			Msg("vector search attempt failed")
	}

	return nil, core.WrapDomainError(core.ModuleVector, core.ErrorCodeRetrievalBackend,
		"vector engine unavailable", lastErr)
}

func (r *RetrySearcher) Close() error {
	return r.Inner.Close()
}

var _ core.VectorService = (*RetrySearcher)(nil)
