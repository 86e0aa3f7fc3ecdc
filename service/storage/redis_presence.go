package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Presence mirror: key ychat:presence:<user>, value is the unix-ms timestamp
// of the latest connect, TTL bounds staleness. This is a best-effort copy of
// the in-memory directory for external consumers (ops tooling, other
// services); the realtime core itself never reads it.

func presenceKey(user string) string { return "ychat:presence:" + user }

type PresenceMirror struct {
	TTL time.Duration
}

func (m PresenceMirror) Online(ctx context.Context, user string) error {
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	ttl := m.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return rdb.Set(ctx, presenceKey(user), time.Now().UnixMilli(), ttl).Err()
}

func (m PresenceMirror) Offline(ctx context.Context, user string) error {
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// Lookup reports whether the mirror thinks the user is online and the
// timestamp of their latest connect.
func (m PresenceMirror) Lookup(ctx context.Context, user string) (lastOnlineMS int64, online bool, err error) {
	if rdb == nil {
		return 0, false, fmt.Errorf("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}
