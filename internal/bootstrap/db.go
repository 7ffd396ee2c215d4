package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wemb-pms/pms-backend/config"
	"github.com/wemb-pms/pms-backend/internal/storage/postgres"
)

// Stores holds the open connections. Pool and SQL share one database.
type Stores struct {
	Pool  *pgxpool.Pool
	SQL   *sql.DB
	Redis *redis.Client
}

// OpenDB opens the pgx pool and the database/sql handle.
func OpenDB(ctx context.Context, cfg *config.DatabaseConfig) (*Stores, error) {
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	db, err := postgres.NewConnection(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Stores{Pool: pool, SQL: db}, nil
}

// OpenRedis connects and pings. Callers may continue without redis.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (s *Stores) Close() {
	if s == nil {
		return
	}
	if s.Redis != nil {
		s.Redis.Close()
	}
	if s.SQL != nil {
		s.SQL.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}
