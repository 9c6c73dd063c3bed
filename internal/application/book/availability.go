package book

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/book"
)

// GetAvailabilityUseCase 可借数量查询(展示用)
// 先读Redis,未命中再查库并回填;Redis异常时直接查库。
// 返回值可能略旧,借阅判断以借还引擎的原子扣减为准。
type GetAvailabilityUseCase struct {
	books  book.Repository
	cache  book.AvailabilityCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewGetAvailabilityUseCase 创建可借数量查询用例
// cache为nil时每次查库
func NewGetAvailabilityUseCase(books book.Repository, cache book.AvailabilityCache, ttl time.Duration, logger *zap.Logger) *GetAvailabilityUseCase {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &GetAvailabilityUseCase{
		books:  books,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// AvailabilityResponse 可借数量
type AvailabilityResponse struct {
	BookID          uint `json:"book_id"`
	AvailableCopies int  `json:"available_copies"`
	Cached          bool `json:"cached"`
}

// Execute 查询可借数量
func (uc *GetAvailabilityUseCase) Execute(ctx context.Context, bookID uint) (*AvailabilityResponse, error) {
	// 1. 读缓存
	if uc.cache != nil {
		available, ok, err := uc.cache.Get(ctx, bookID)
		switch {
		case err != nil:
			uc.logger.Warn("读取可借数量缓存失败", zap.Uint("book_id", bookID), zap.Error(err))
		case ok:
			return &AvailabilityResponse{BookID: bookID, AvailableCopies: available, Cached: true}, nil
		}
	}

	// 2. 查库
	b, err := uc.books.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	// 3. 回填
	if uc.cache != nil {
		if err := uc.cache.Set(ctx, bookID, b.AvailableCopies, uc.ttl); err != nil {
			uc.logger.Warn("回填可借数量缓存失败", zap.Uint("book_id", bookID), zap.Error(err))
		}
	}

	return &AvailabilityResponse{BookID: bookID, AvailableCopies: b.AvailableCopies}, nil
}
