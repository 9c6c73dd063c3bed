package circulation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/audit"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/domain/penalty"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

// ReturnResult 归还结果
type ReturnResult struct {
	Loan            *loan.Loan
	BookTitle       string
	AvailableCopies int  // 归还后的可借数量
	Clamped         bool // 馆藏缩减后可借数量已满,本次归还未增加
}

// Return 归还(ACTIVE → RETURNED)
//
// 在同一事务内:关闭借阅记录、可借数量+1(不超过馆藏总数)、累加借阅者罚金。
// 借阅记录的关闭是带 returned_at IS NULL 条件的UPDATE,重复归还返回ErrNoActiveBorrow,
// 不会重复增加库存或重复计罚。
func (e *Engine) Return(ctx context.Context, borrowerID, bookID uint) (result *ReturnResult, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Circulation.Return",
		attribute.Int64("borrower.id", int64(borrowerID)),
		attribute.Int64("book.id", int64(bookID)),
	)
	start := time.Now()
	defer func() {
		e.observe("return", start, err)
		tracing.EndSpan(span, err)
	}()

	if borrowerID == 0 || bookID == 0 {
		return nil, apperrors.ErrInvalidParams
	}

	var (
		closed    *loan.Loan
		title     string
		available int
		clamped   bool
	)
	err = e.tx.Transaction(ctx, func(txCtx context.Context) error {
		// 1. 锁定图书
		b, err := e.books.LockByID(txCtx, bookID)
		if err != nil {
			return err
		}
		if err := e.checkInventory("return", b); err != nil {
			return err
		}

		// 2. 查找进行中的借阅
		l, err := e.loans.FindActive(txCtx, borrowerID, bookID)
		if err != nil {
			return err
		}

		// 3. 计算逾期与罚金
		now := e.now()
		daysLate := e.policy.DaysLate(l.DueDate, now)
		cents := e.policy.Penalty(daysLate)

		// 4. 关闭借阅记录
		if err := l.Close(now, daysLate, cents); err != nil {
			return err
		}
		if err := e.loans.Close(txCtx, l.ID, now, daysLate, cents); err != nil {
			return err
		}

		// 5. 可借数量+1
		// 锁定时已满说明馆藏被缩减过,按截断规则保持不变
		n, err := e.books.IncrementAvailable(txCtx, bookID)
		if err != nil {
			return err
		}
		if n > b.TotalCopies || n < 0 {
			b.AvailableCopies = n
			return e.checkInventory("return", b)
		}

		// 6. 累加罚金
		if err := e.borrowers.AddPenalty(txCtx, borrowerID, cents); err != nil {
			return err
		}

		closed, title, available = l, b.Title, n
		clamped = b.AvailableCopies >= b.TotalCopies
		return nil
	})
	if err != nil {
		return nil, err
	}

	if clamped {
		metrics.IncCounter(metrics.InventoryClampsTotal)
		e.logger.Info("归还时可借数量已达馆藏总数,未增加",
			zap.Uint("book_id", bookID),
			zap.Int("available_copies", available),
		)
	}
	if closed.PenaltyCents > 0 {
		metrics.ObserveHistogram(metrics.PenaltyAssessedCents, float64(closed.PenaltyCents))
	}

	// 7. 提交之后:审计与缓存
	e.recordReturn(context.WithoutCancel(ctx), closed, title)
	e.invalidateCache(ctx, bookID)

	return &ReturnResult{
		Loan:            closed,
		BookTitle:       title,
		AvailableCopies: available,
		Clamped:         clamped,
	}, nil
}

func (e *Engine) recordReturn(ctx context.Context, l *loan.Loan, title string) {
	e.recorder.Record(ctx, l.BorrowerID, audit.ActionBookReturned, audit.EntityBook, l.BookID,
		fmt.Sprintf("归还《%s》,逾期%d天", title, l.DaysLate))

	if l.PenaltyCents > 0 {
		e.recorder.Record(ctx, l.BorrowerID, audit.ActionPenaltyApplied, audit.EntityLoan, l.ID,
			fmt.Sprintf("《%s》逾期%d天,罚金%s元", title, l.DaysLate, penalty.FormatCents(l.PenaltyCents)))
	}
}
