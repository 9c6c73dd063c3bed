package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/infrastructure/config"
)

// NewClient 连接Redis(Token黑名单与可借数量缓存共用)
// 启动时连不上直接失败:黑名单不可用时无法安全放行请求
func NewClient(cfg *config.Config, logger *zap.Logger) (*redis.Client, func(), error) {
	rc := cfg.Redis
	client := redis.NewClient(clientOptions(rc))

	ctx, cancel := context.WithTimeout(context.Background(), rc.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("连接Redis %s 失败: %w", rc.Addr(), err)
	}

	logger.Info("Redis已连接", zap.String("addr", rc.Addr()), zap.Int("db", rc.DB), zap.Int("pool_size", rc.PoolSize))

	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("关闭Redis连接失败", zap.Error(err))
		}
	}
	return client, cleanup, nil
}

func clientOptions(rc config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         rc.Addr(),
		Password:     rc.Password,
		DB:           rc.DB,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
		DialTimeout:  rc.DialTimeout,
		ReadTimeout:  rc.ReadTimeout,
		WriteTimeout: rc.WriteTimeout,
	}
}
