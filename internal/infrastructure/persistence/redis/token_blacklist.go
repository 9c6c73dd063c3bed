package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// TokenBlacklist JWT黑名单
// 设计说明:
// 1. Token由外部认证组件签发,登出/强制下线时认证组件写入黑名单
// 2. 本服务的认证中间件只读取黑名单
// 3. Key: blacklist:{jti},过期时间与Token剩余有效期一致
type TokenBlacklist struct {
	client *redis.Client
}

// NewTokenBlacklist 创建Token黑名单
func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client}
}

func blacklistKey(tokenID string) string {
	return fmt.Sprintf("blacklist:%s", tokenID)
}

// Revoke 将Token加入黑名单
func (b *TokenBlacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := b.client.Set(ctx, blacklistKey(tokenID), "revoked", ttl).Err(); err != nil {
		return apperrors.Wrap(err, "添加Token到黑名单失败")
	}
	return nil
}

// IsRevoked 检查Token是否在黑名单中
func (b *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	exists, err := b.client.Exists(ctx, blacklistKey(tokenID)).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "检查黑名单失败")
	}
	return exists > 0, nil
}
