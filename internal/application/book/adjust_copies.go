package book

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/book"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// Transactor 事务管理(由mysql.TxManager实现)
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AdjustCopiesUseCase 调整馆藏总数用例
//
// 可借数量按总数差值同步调整:available = max(0, available + (newTotal - total))。
// 缩减到少于借出数量时可借数量为0,之后的归还由借还引擎截断到馆藏总数。
// 与借还共用图书行锁,调整过程中不会有借还穿插。
type AdjustCopiesUseCase struct {
	books  book.Repository
	tx     Transactor
	cache  book.AvailabilityCache
	logger *zap.Logger
}

// NewAdjustCopiesUseCase 创建调整馆藏用例
func NewAdjustCopiesUseCase(
	books book.Repository,
	tx Transactor,
	cache book.AvailabilityCache,
	logger *zap.Logger,
) *AdjustCopiesUseCase {
	return &AdjustCopiesUseCase{
		books:  books,
		tx:     tx,
		cache:  cache,
		logger: logger,
	}
}

// AdjustCopiesRequest 调整请求DTO
type AdjustCopiesRequest struct {
	BookID      uint // 图书ID
	TotalCopies int  // 新的馆藏总数
	OperatorID  uint // 操作人(从认证中间件获取)
}

// Execute 执行调整
func (uc *AdjustCopiesUseCase) Execute(ctx context.Context, req AdjustCopiesRequest) (*BookItem, error) {
	if req.BookID == 0 {
		return nil, apperrors.ErrInvalidParams
	}

	var (
		updated  *book.Book
		oldTotal int
	)
	err := uc.tx.Transaction(ctx, func(txCtx context.Context) error {
		// 1. 锁定图书
		b, err := uc.books.LockByID(txCtx, req.BookID)
		if err != nil {
			return err
		}
		oldTotal = b.TotalCopies

		// 2. 按差值重新计算可借数量
		if err := b.ResizeCopies(req.TotalCopies); err != nil {
			return err
		}

		// 3. 保存
		if err := uc.books.UpdateCopies(txCtx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("馆藏数量已调整",
		zap.Uint("book_id", updated.ID),
		zap.Uint("operator_id", req.OperatorID),
		zap.Int("old_total", oldTotal),
		zap.Int("new_total", updated.TotalCopies),
		zap.Int("available_copies", updated.AvailableCopies),
	)

	if uc.cache != nil {
		cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 500*time.Millisecond)
		defer cancel()
		if err := uc.cache.Invalidate(cacheCtx, updated.ID); err != nil {
			uc.logger.Warn("失效可借数量缓存失败", zap.Uint("book_id", updated.ID), zap.Error(err))
		}
	}

	item := toBookItem(updated)
	return &item, nil
}
