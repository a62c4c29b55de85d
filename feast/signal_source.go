package feast

import (
	"context"
	"fmt"

	feastsdk "github.com/feast-dev/feast/sdk/go"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// SignalSource 是基于 Feast Feature Store 的辅助信号源实现。
// 已把热度/新近度等信号作为在线特征物化到 Feast 的团队可以直接接入，
// 不需要额外维护 Redis 信号库。
//
// 特征约定（可通过 Features 覆盖）：
//   - user:    "user_stats:signal"，实体键 "user_id"
//   - product: "product_stats:signal"，实体键 "product_id"
//
// 特征值应已归一化到 [0,1]；缺失或非数值的行按无信号处理。
type SignalSource struct {
	client  *feastsdk.GrpcClient
	project string

	// Features 按实体类型覆盖特征名（"feature_view:feature" 形式）
	Features map[core.EntityKind]string
}

// NewSignalSource 连接 Feast Feature Server（gRPC）。
func NewSignalSource(host string, port int, project string) (*SignalSource, error) {
	if port == 0 {
		port = 6565
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("create feast client: %w", err)
	}
	return &SignalSource{
		client:  client,
		project: project,
	}, nil
}

func (s *SignalSource) featureName(kind core.EntityKind) string {
	if name, ok := s.Features[kind]; ok && name != "" {
		return name
	}
	return string(kind) + "_stats:signal"
}

func entityKey(kind core.EntityKind) string {
	return string(kind) + "_id"
}

// BatchGet 实现 core.SignalService 接口。
func (s *SignalSource) BatchGet(ctx context.Context, kind core.EntityKind, ids []string) (map[string]float64, error) {
	if len(ids) == 0 {
		return make(map[string]float64), nil
	}

	feature := s.featureName(kind)
	key := entityKey(kind)

	rows := make([]feastsdk.Row, len(ids))
	for i, id := range ids {
		rows[i] = feastsdk.Row{key: feastsdk.StrVal(id)}
	}

	resp, err := s.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: []string{feature},
		Entities: rows,
		Project:  s.project,
	})
	if err != nil {
		return nil, fmt.Errorf("feast get online features: %w", err)
	}

	respRows := resp.Rows()
	result := make(map[string]float64, len(ids))
	for i, row := range respRows {
		if i >= len(ids) {
			break
		}
		val, ok := row[feature]
		if !ok || val == nil {
			continue
		}
		if d := val.GetDoubleVal(); d != 0 {
			result[ids[i]] = d
			continue
		}
		if f := val.GetFloatVal(); f != 0 {
			result[ids[i]] = float64(f)
		}
	}
	return result, nil
}

func (s *SignalSource) Close() error {
	s.client = nil
	return nil
}

var _ core.SignalService = (*SignalSource)(nil)
