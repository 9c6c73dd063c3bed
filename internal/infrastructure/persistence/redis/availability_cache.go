package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/library/internal/domain/book"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// AvailabilityCache 可借数量展示缓存
// 设计说明:
// 1. Key: book:available:{book_id},值为可借数量
// 2. 只服务于页面展示,允许短暂的旧值;借阅判断以数据库条件UPDATE为准
// 3. 借还提交后由借阅引擎删除缓存,下次读取时回源
type AvailabilityCache struct {
	client *redis.Client
}

// NewAvailabilityCache 创建可借数量缓存
func NewAvailabilityCache(client *redis.Client) *AvailabilityCache {
	return &AvailabilityCache{client: client}
}

var _ book.AvailabilityCache = (*AvailabilityCache)(nil)

func availabilityKey(bookID uint) string {
	return fmt.Sprintf("book:available:%d", bookID)
}

// Get 读取缓存
func (c *AvailabilityCache) Get(ctx context.Context, bookID uint) (int, bool, error) {
	val, err := c.client.Get(ctx, availabilityKey(bookID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, apperrors.Wrap(err, "读取可借数量缓存失败")
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		// 脏数据按未命中处理,回源后会被覆盖
		return 0, false, nil
	}
	return n, true, nil
}

// Set 写入缓存
func (c *AvailabilityCache) Set(ctx context.Context, bookID uint, available int, ttl time.Duration) error {
	if err := c.client.Set(ctx, availabilityKey(bookID), available, ttl).Err(); err != nil {
		return apperrors.Wrap(err, "写入可借数量缓存失败")
	}
	return nil
}

// Invalidate 删除缓存
func (c *AvailabilityCache) Invalidate(ctx context.Context, bookID uint) error {
	if err := c.client.Del(ctx, availabilityKey(bookID)).Err(); err != nil {
		return apperrors.Wrap(err, "删除可借数量缓存失败")
	}
	return nil
}
