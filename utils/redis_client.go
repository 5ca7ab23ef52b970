package utils

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/devboard/config"
)

const (
	redisDialTimeout = 3 * time.Second
	redisIOTimeout   = 2 * time.Second
)

// NewRedisClient connects to the Redis server named in cfg. It returns nil when no
// host is configured; revocations and OAuth states then stay in process memory.
// An unreachable server is logged and tolerated so the API can still start.
func NewRedisClient(cfg config.AppConfig) *redis.Client {
	opts := redisOptions(cfg)
	if opts == nil {
		return nil
	}
	rc := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisIOTimeout)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		Sugar.Warnw("redis unreachable at startup", "addr", opts.Addr, "error", err)
	}
	return rc
}

func redisOptions(cfg config.AppConfig) *redis.Options {
	if cfg.RedisHost == "" {
		return nil
	}
	return &redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisIOTimeout,
		WriteTimeout: redisIOTimeout,
	}
}
