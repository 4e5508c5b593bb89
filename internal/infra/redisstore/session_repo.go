// Package redisstore keeps session bindings in Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/small-engineer/go-web-serv/account/internal/domain"
	"github.com/small-engineer/go-web-serv/account/internal/usecase/auth"
)

const keyPrefix = "sess:"

// NewClient connects and pings, failing fast on an unreachable server.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

type SessionRepo struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewSessionRepo stores bindings with the given ttl; 0 means no expiry.
func NewSessionRepo(rdb redis.Cmdable, ttl time.Duration) *SessionRepo {
	return &SessionRepo{rdb: rdb, ttl: ttl}
}

func key(id auth.SessionID) string {
	return keyPrefix + string(id)
}

func (r *SessionRepo) FindUserID(ctx context.Context, id auth.SessionID) (domain.UserID, bool, error) {
	v, err := r.rdb.Get(ctx, key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, oops.Code("SESSION_READ_FAILED").Wrap(err)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, oops.Code("SESSION_CORRUPT").With("value", v).Wrap(err)
	}
	return domain.UserID(n), true, nil
}

func (r *SessionRepo) Save(ctx context.Context, id auth.SessionID, uid domain.UserID) error {
	if err := r.rdb.Set(ctx, key(id), int64(uid), r.ttl).Err(); err != nil {
		return oops.Code("SESSION_SAVE_FAILED").With("user_id", uid).Wrap(err)
	}
	return nil
}
