package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/small-engineer/go-web-serv/account/internal/config"
	infra "github.com/small-engineer/go-web-serv/account/internal/infra/db"
	"github.com/small-engineer/go-web-serv/account/internal/infra/mem"
	"github.com/small-engineer/go-web-serv/account/internal/infra/pg"
	"github.com/small-engineer/go-web-serv/account/internal/infra/redisstore"
	"github.com/small-engineer/go-web-serv/account/internal/usecase/auth"
)

func noop() {}

func newMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openUsers(ctx context.Context, cfg *config.Config) (auth.UserRepo, func(), error) {
	switch cfg.Store.Users {
	case config.UsersMySQL:
		db, err := newMySQL(ctx, cfg.MySQL.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("mysql: %w", err)
		}
		return infra.NewUserRepo(db), func() { db.Close() }, nil
	case config.UsersPostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		return pg.NewUserRepo(pool), pool.Close, nil
	default:
		return mem.NewUserRepo(), noop, nil
	}
}

func openSessions(ctx context.Context, cfg *config.Config) (auth.SessionRepo, func(), error) {
	switch cfg.Store.Sessions {
	case config.SessionsRedis:
		rdb, err := redisstore.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewSessionRepo(rdb, cfg.Session.TTL), func() { rdb.Close() }, nil
	default:
		return mem.NewSessionRepo(cfg.Session.TTL), noop, nil
	}
}
