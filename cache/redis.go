// Package cache Redis 连接和曲目元数据缓存。
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StemShare/config"

	"github.com/go-redis/redis/v8"
)

// Connect 创建 Redis 客户端并 Ping 一次
func Connect(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// SelfTest 写入、读取、删除一个临时键
func SelfTest(ctx context.Context, client redis.Cmdable) error {
	const (
		key   = "stemshare:selftest"
		value = "Redis connection successful!"
	)

	if err := client.Set(ctx, key, value, time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set Redis key: %w", err)
	}
	got, err := client.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to get Redis key: %w", err)
	}
	if got != value {
		return fmt.Errorf("unexpected value from Redis: got %s", got)
	}
	if err := client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete Redis key: %w", err)
	}
	return nil
}

// isMiss 键不存在
func isMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
