package feast

import (
	"testing"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

func TestFeatureName_Default(t *testing.T) {
	s := &SignalSource{}

	tests := []struct {
		kind core.EntityKind
		want string
	}{
		{core.EntityUser, "user_stats:signal"},
		{core.EntityProduct, "product_stats:signal"},
	}
	for _, tt := range tests {
		if got := s.featureName(tt.kind); got != tt.want {
			t.Errorf("featureName(%s) 期望 %s，实际 %s", tt.kind, tt.want, got)
		}
	}
}

func TestFeatureName_Override(t *testing.T) {
	s := &SignalSource{
		Features: map[core.EntityKind]string{
			core.EntityProduct: "item_popularity:score",
		},
	}

	if got := s.featureName(core.EntityProduct); got != "item_popularity:score" {
		t.Errorf("覆盖后的特征名期望 item_popularity:score，实际 %s", got)
	}
	// 未覆盖的实体类型仍用默认约定
	if got := s.featureName(core.EntityUser); got != "user_stats:signal" {
		t.Errorf("未覆盖实体期望默认特征名，实际 %s", got)
	}
	// 覆盖为空串视为未覆盖
	s.Features[core.EntityUser] = ""
	if got := s.featureName(core.EntityUser); got != "user_stats:signal" {
		t.Errorf("空覆盖期望回退默认特征名，实际 %s", got)
	}
}

func TestEntityKey(t *testing.T) {
	if got := entityKey(core.EntityUser); got != "user_id" {
		t.Errorf("用户实体键期望 user_id，实际 %s", got)
	}
	if got := entityKey(core.EntityProduct); got != "product_id" {
		t.Errorf("商品实体键期望 product_id，实际 %s", got)
	}
}
