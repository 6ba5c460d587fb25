package service

import (
	"context"
	"time"
)

// UnitLocker 跨进程的单元写锁（由 Redis 实现）
type UnitLocker interface {
	AcquireLock(ctx context.Context, key string, ttl, wait time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// Cache 字节缓存（由 Redis 实现）
type Cache interface {
	CacheGet(ctx context.Context, key string) ([]byte, error)
	CacheSet(ctx context.Context, key string, value []byte, ttl time.Duration) error
	CacheDelete(ctx context.Context, key string) error
}

const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

type actorKey struct{}

// WithActor 将操作人写入 context，持久化时记录为 updated_by
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom 读取 context 中的操作人，未设置时返回空串
func ActorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}
