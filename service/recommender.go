// Package service 是在线推荐的应用层：解析查询实体、选择向量/冷启动路径、
// 驱动服务链路并把候选装配成带元数据的响应。
package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/pipeline"
	"github.com/ddev-hyeoncheol/recommendation-system/recall"
)

// Recommender 是双向推荐服务：uid -> 商品候选，或 pid -> 目标用户候选。
//
// 每次请求独立构建 QueryContext，请求间无共享可变状态；
// 引擎连接复用由 VectorService 实现持有，这里不加锁。
//
// 路径选择：
//   - 查询实体有训练向量 -> 向量路径（ANN 检索对端集合）
//   - 用户无向量但在分群表 -> 冷启动路径（分群候选表，可能为空，不是错误）
//   - 两边都查不到 -> ENTITY_NOT_FOUND
type Recommender struct {
	Artifact *core.ModelArtifact
	Pipeline *pipeline.Pipeline
}

// ProductHit 是 user_to_product 方向的单条结果。
type ProductHit struct {
	PID        string   `json:"pid"`
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
	Score      float64  `json:"score"`
}

// UserHit 是 product_to_user 方向的单条结果。
type UserHit struct {
	UID     string  `json:"uid"`
	Country string  `json:"country"`
	State   string  `json:"state"`
	Zipcode string  `json:"zipcode"`
	Score   float64 `json:"score"`
}

// Response 是一次推荐请求的完整结果。两个结果列表只会填充方向对应的那个。
type Response struct {
	QueryID      string         `json:"query_id"`
	Direction    core.Direction `json:"direction"`
	Cold         bool           `json:"cold"`
	ModelVersion string         `json:"model_version"`

	Products []ProductHit `json:"products,omitempty"`
	Users    []UserHit    `json:"users,omitempty"`
}

// Recommend 执行一次推荐。
func (r *Recommender) Recommend(ctx context.Context, qctx *core.QueryContext) (*Response, error) {
	if qctx == nil || !qctx.Direction.Valid() {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput,
			"invalid recommend direction")
	}
	if qctx.QueryID == "" {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeInvalidInput,
			"query id is required")
	}
	if qctx.TargetHits < qctx.Hits {
		qctx.TargetHits = qctx.Hits
	}

	if err := r.resolve(qctx); err != nil {
		return nil, err
	}

	candidates, err := r.Pipeline.Run(ctx, qctx, nil)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		QueryID:      qctx.QueryID,
		Direction:    qctx.Direction,
		Cold:         qctx.Cold,
		ModelVersion: r.Artifact.Version,
	}
	r.attachMeta(resp, candidates)

	log.Debug().
		Str("query_id", qctx.QueryID).
		Str("direction", string(qctx.Direction)).
		Bool("cold", qctx.Cold).
		Int("results", len(candidates)).
		Msg("recommend served")

	return resp, nil
}

// resolve 解析查询实体并选择路径。冷启动标记与查询向量写入 QueryContext。
func (r *Recommender) resolve(qctx *core.QueryContext) error {
	if qctx.Params == nil {
		qctx.Params = make(map[string]any)
	}

	switch qctx.Direction {
	case core.DirectionUserToProduct:
		if vec, ok := r.Artifact.UserVector(qctx.QueryID); ok {
			qctx.Params[recall.ParamQueryVector] = vec
			return nil
		}
		// 无向量但可服务的用户退到分群冷启动；分群候选可能为空，但不是错误
		if r.Artifact.KnownUser(qctx.QueryID) {
			qctx.Cold = true
			qctx.Seg, _ = r.Artifact.SegmentOf(qctx.QueryID)
			return nil
		}
	case core.DirectionProductToUser:
		if vec, ok := r.Artifact.ProductVector(qctx.QueryID); ok {
			qctx.Params[recall.ParamQueryVector] = vec
			return nil
		}
	}

	return core.NewDomainError(core.ModuleService, core.ErrorCodeEntityNotFound,
		"unknown entity: "+qctx.QueryID)
}

// attachMeta 用产物元数据表装配响应记录。无元数据的实体只带 ID。
func (r *Recommender) attachMeta(resp *Response, candidates []*core.Candidate) {
	switch resp.Direction {
	case core.DirectionUserToProduct:
		resp.Products = make([]ProductHit, 0, len(candidates))
		for _, c := range candidates {
			hit := ProductHit{PID: c.ID, Score: c.Score}
			if m, ok := r.Artifact.ProductMeta[c.ID]; ok {
				hit.Name = m.Name
				hit.Categories = m.Categories
			}
			resp.Products = append(resp.Products, hit)
		}
	case core.DirectionProductToUser:
		resp.Users = make([]UserHit, 0, len(candidates))
		for _, c := range candidates {
			hit := UserHit{UID: c.ID, Score: c.Score}
			if m, ok := r.Artifact.UserMeta[c.ID]; ok {
				hit.Country = m.Country
				hit.State = m.State
				hit.Zipcode = m.Zipcode
			}
			resp.Users = append(resp.Users, hit)
		}
	}
}
