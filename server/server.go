// Package server 暴露推荐服务的 HTTP 接口（gin）。
package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
	"github.com/ddev-hyeoncheol/recommendation-system/service"
)

// Server 持有应用层依赖并注册路由。
type Server struct {
	Recommender *service.Recommender

	// Hits / TargetHits 请求未显式指定时的默认值
	Hits       int
	TargetHits int
}

// Router 构建 gin 引擎。
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/recommend/product/:uid", s.handleRecommendProducts)
	router.GET("/recommend/user/:pid", s.handleRecommendUsers)

	return router
}

// Run 启动 HTTP 服务。
func (s *Server) Run(addr string) error {
	log.Info().Str("addr", addr).Msg("http server listening")
	return s.Router().Run(addr)
}

// handleRecommendProducts GET /recommend/product/:uid —— 给用户推商品。
func (s *Server) handleRecommendProducts(c *gin.Context) {
	qctx := s.queryContext(c, core.DirectionUserToProduct, c.Param("uid"))

	resp, err := s.Recommender.Recommend(c.Request.Context(), qctx)
	if err != nil {
		writeError(c, err)
		return
	}

	recs := make([]gin.H, 0, len(resp.Products))
	for _, p := range resp.Products {
		recs = append(recs, gin.H{
			"pid":        p.PID,
			"name":       p.Name,
			"categories": p.Categories,
			"score":      p.Score,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"uid":             resp.QueryID,
		"model_version":   resp.ModelVersion,
		"cold":            resp.Cold,
		"recommendations": recs,
	})
}

// handleRecommendUsers GET /recommend/user/:pid —— 给商品找目标用户。
func (s *Server) handleRecommendUsers(c *gin.Context) {
	qctx := s.queryContext(c, core.DirectionProductToUser, c.Param("pid"))

	resp, err := s.Recommender.Recommend(c.Request.Context(), qctx)
	if err != nil {
		writeError(c, err)
		return
	}

	users := make([]gin.H, 0, len(resp.Users))
	for _, u := range resp.Users {
		users = append(users, gin.H{
			"uid":     u.UID,
			"country": u.Country,
			"state":   u.State,
			"zipcode": u.Zipcode,
			"score":   u.Score,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"pid":           resp.QueryID,
		"model_version": resp.ModelVersion,
		"target_users":  users,
	})
}

func (s *Server) queryContext(c *gin.Context, d core.Direction, id string) *core.QueryContext {
	qctx := &core.QueryContext{
		QueryID:    id,
		Direction:  d,
		Hits:       s.Hits,
		TargetHits: s.TargetHits,
	}
	if v, err := strconv.Atoi(c.Query("hits")); err == nil && v > 0 {
		qctx.Hits = v
	}
	if v, err := strconv.Atoi(c.Query("target_hits")); err == nil && v > 0 {
		qctx.TargetHits = v
	}
	return qctx
}

// writeError 把领域错误映射为 HTTP 状态码。
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.IsEntityNotFound(err):
		status = http.StatusNotFound
	case core.IsRetrievalBackend(err):
		status = http.StatusBadGateway
	default:
		if de := core.GetDomainError(err); de != nil && de.Code == core.ErrorCodeInvalidInput {
			status = http.StatusBadRequest
		}
	}

	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	body := gin.H{"error": err.Error()}
	if de := core.GetDomainError(err); de != nil {
		body["code"] = de.Code
	}
	c.JSON(status, body)
}
