package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// presence key: chat:presence:<user>
// Value: node id, TTL controls the online validity period
func presenceKey(user string) string { return "chat:presence:" + user }

// Mirror 把进程内在线表镜像到 Redis，供旁路服务（REST API、运营后台）
// 查询在线状态；引擎自身的在线判定只走进程内注册表。
type Mirror struct {
	rdb  *redis.Client
	node string
	ttl  time.Duration
}

func NewMirror(rdb *redis.Client, node string, ttl time.Duration) *Mirror {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Mirror{rdb: rdb, node: node, ttl: ttl}
}

// Online sets the user as online and renews the TTL.
func (m *Mirror) Online(ctx context.Context, user string) error {
	return m.rdb.Set(ctx, presenceKey(user), m.node, m.ttl).Err()
}

// Offline actively sets the user offline (deletes the key).
func (m *Mirror) Offline(ctx context.Context, user string) error {
	return m.rdb.Del(ctx, presenceKey(user)).Err()
}

// Lookup checks whether the user is online anywhere, and on which node.
func (m *Mirror) Lookup(ctx context.Context, user string) (node string, online bool, err error) {
	val, err := m.rdb.Get(ctx, presenceKey(user)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
