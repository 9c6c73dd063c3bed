// Package circulation 借还引擎
//
// 借阅与归还都在一个数据库事务内完成:锁定图书行、检查借阅记录、修改库存与借阅记录、累加罚金。
// 事务提交后再写审计事件与失效展示缓存,这两步失败只记录日志,不影响借还结果。
package circulation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/audit"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrower"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/domain/penalty"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/metrics"
)

const tracerName = "library/circulation"

// 提交后缓存失效的超时
const cacheTimeout = 500 * time.Millisecond

// Transactor 事务管理(由mysql.TxManager实现)
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Engine 借还引擎
type Engine struct {
	books     book.Repository
	loans     loan.Repository
	borrowers borrower.Repository
	tx        Transactor
	policy    penalty.Policy
	recorder  audit.Recorder
	cache     book.AvailabilityCache
	logger    *zap.Logger
	now       func() time.Time
}

// NewEngine 创建借还引擎
// cache可以为nil(不启用展示缓存)
func NewEngine(
	books book.Repository,
	loans loan.Repository,
	borrowers borrower.Repository,
	tx Transactor,
	policy penalty.Policy,
	recorder audit.Recorder,
	cache book.AvailabilityCache,
	logger *zap.Logger,
) *Engine {
	metrics.InitMetrics()
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Engine{
		books:     books,
		loans:     loans,
		borrowers: borrowers,
		tx:        tx,
		policy:    policy,
		recorder:  recorder,
		cache:     cache,
		logger:    logger.Named("circulation"),
		now:       time.Now,
	}
}

// Policy 当前生效的罚金规则
func (e *Engine) Policy() penalty.Policy {
	return e.policy
}

// checkInventory 锁定后校验库存不变式,被破坏时拒绝本次修改
func (e *Engine) checkInventory(op string, b *book.Book) error {
	if b.CheckInvariant() {
		return nil
	}
	metrics.IncCounter(metrics.InvariantViolationsTotal)
	e.logger.Error("库存不变式被破坏,拒绝修改",
		zap.String("operation", op),
		zap.Uint("book_id", b.ID),
		zap.Int("total_copies", b.TotalCopies),
		zap.Int("available_copies", b.AvailableCopies),
	)
	return book.ErrInventoryCorrupted
}

// invalidateCache 提交后失效展示缓存
// 使用脱离取消的ctx,调用方在提交后断开也不影响
func (e *Engine) invalidateCache(ctx context.Context, bookID uint) {
	if e.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheTimeout)
	defer cancel()

	if err := e.cache.Invalidate(ctx, bookID); err != nil {
		e.logger.Warn("失效可借数量缓存失败", zap.Uint("book_id", bookID), zap.Error(err))
	}
}

// observe 记录操作结果与耗时
func (e *Engine) observe(op string, start time.Time, err error) {
	metrics.IncCounterVec(metrics.CirculationOpsTotal, map[string]string{
		"operation": op,
		"result":    resultLabel(err),
	})
	metrics.ObserveHistogramVec(metrics.CirculationDuration, map[string]string{"operation": op}, time.Since(start).Seconds())

	switch {
	case err == nil:
	case apperrors.IsBusinessRejection(err):
		e.logger.Debug("借还被拒绝", zap.String("operation", op), zap.Error(err))
	case errors.Is(err, book.ErrInventoryCorrupted):
		// checkInventory已记录
	default:
		e.logger.Error("借还处理失败", zap.String("operation", op), zap.Error(err))
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, book.ErrBookNotFound):
		return "book_not_found"
	case errors.Is(err, book.ErrNoCopiesAvailable):
		return "no_copies"
	case errors.Is(err, loan.ErrAlreadyBorrowed):
		return "already_borrowed"
	case errors.Is(err, loan.ErrNoActiveBorrow):
		return "no_active_borrow"
	case errors.Is(err, book.ErrInventoryCorrupted):
		return "invariant_violation"
	case apperrors.IsBusinessRejection(err):
		return "rejected"
	default:
		return "error"
	}
}
