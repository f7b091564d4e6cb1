package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-professor-gateway/pkg/config"
)

const defaultTimeout = 5 * time.Second

// NewTokenClient connects to the Redis instance that publishes the shared
// bearer token under tokenKey. The key may be absent until a writer sets it,
// but when present it must hold a plain string. Responses are never cached here.
func NewTokenClient(cfg config.RedisConfig, tokenKey string) (*redis.Client, error) {
	if tokenKey == "" {
		return nil, fmt.Errorf("redis token key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	kind, err := client.Type(ctx, tokenKey).Result()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("inspect token key %q on db %d: %w", tokenKey, cfg.DB, err)
	}
	if kind != "none" && kind != "string" {
		_ = client.Close()
		return nil, fmt.Errorf("token key %q on db %d holds a %s, want string", tokenKey, cfg.DB, kind)
	}

	return client, nil
}
