package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"unistudy_backend/internal/config"

	"github.com/go-redis/redis/v8"
)

// InitRedis 建立 Redis 连接。Redis 承担会话启动锁和画像缓存，
// 未启用时返回 nil，相关功能自动降级为无锁/无缓存。
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		log.Println("Redis disabled, session locks and profile cache degrade to no-op")
		return nil, nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 5,
	})

	// 启动期快速失败，挂掉的 Redis 不应拖死进程启动
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	log.Println("Redis connection established")
	return rdb, nil
}
