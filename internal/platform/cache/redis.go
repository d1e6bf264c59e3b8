package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Config addresses the Redis instance shared by the report cache and the
// job queue.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// AsynqOpt returns the same connection settings for asynq clients and servers.
func (c Config) AsynqOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: c.Addr, Password: c.Password, DB: c.DB}
}

// New connects to Redis and pings it within five seconds.
func New(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/cache: ping %s db %d: %w", cfg.Addr, cfg.DB, err)
	}
	return client, nil
}
