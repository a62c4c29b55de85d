package store

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// RedisSignalStore 是 Redis 实现的辅助信号存储。
// 生产环境常用，支持持久化、集群、哨兵等。
//
// key 约定：signal:<kind>:<id>，值为十进制浮点字符串（已归一化到 [0,1]）。
type RedisSignalStore struct {
	client *redis.Client
}

func NewRedisSignalStore(addr string, db int) (*RedisSignalStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisSignalStore{client: client}, nil
}

// NewRedisSignalStoreWithClient 复用已有连接（测试或共享连接池时使用）。
func NewRedisSignalStoreWithClient(client *redis.Client) *RedisSignalStore {
	return &RedisSignalStore{client: client}
}

func signalKey(kind core.EntityKind, id string) string {
	return "signal:" + string(kind) + ":" + id
}

// BatchGet 实现 core.SignalService 接口。
// 缺失的 key 不进结果 map，调用方按 0 处理。
func (r *RedisSignalStore) BatchGet(ctx context.Context, kind core.EntityKind, ids []string) (map[string]float64, error) {
	if len(ids) == 0 {
		return make(map[string]float64), nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = signalKey(kind, id)
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[string]float64, len(ids))
	for i, v := range vals {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		result[ids[i]] = f
	}
	return result, nil
}

// BatchSet 实现 core.SignalWriter 接口，Feed 摄入链路使用。
func (r *RedisSignalStore) BatchSet(ctx context.Context, kind core.EntityKind, values map[string]float64) error {
	if len(values) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for id, v := range values {
		pipe.Set(ctx, signalKey(kind, id), strconv.FormatFloat(v, 'g', -1, 64), 0)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisSignalStore) Close() error {
	return r.client.Close()
}

var (
	_ core.SignalService = (*RedisSignalStore)(nil)
	_ core.SignalWriter  = (*RedisSignalStore)(nil)
)
