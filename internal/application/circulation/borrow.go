package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/library/internal/domain/audit"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/loan"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/tracing"
)

// BorrowResult 借阅结果
type BorrowResult struct {
	Loan            *loan.Loan
	BookTitle       string
	AvailableCopies int // 借出后的可借数量
}

// Borrow 借阅(NONE → ACTIVE)
//
// 并发控制:
//  1. SELECT ... FOR UPDATE 锁定图书行,同一本书的借还排队执行
//  2. 进行中借阅由active_key唯一索引兜底,并发重复借阅只有一个能插入成功
//  3. 扣减是带 available_copies > 0 条件的单条UPDATE,不依赖之前读到的值
//
// 任一步骤失败整个事务回滚,不会出现扣了库存却没有借阅记录的情况。
func (e *Engine) Borrow(ctx context.Context, borrowerID, bookID uint) (result *BorrowResult, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Circulation.Borrow",
		attribute.Int64("borrower.id", int64(borrowerID)),
		attribute.Int64("book.id", int64(bookID)),
	)
	start := time.Now()
	defer func() {
		e.observe("borrow", start, err)
		tracing.EndSpan(span, err)
	}()

	if borrowerID == 0 || bookID == 0 {
		return nil, apperrors.ErrInvalidParams
	}

	var (
		newLoan   *loan.Loan
		title     string
		available int
	)
	err = e.tx.Transaction(ctx, func(txCtx context.Context) error {
		// 1. 锁定图书
		b, err := e.books.LockByID(txCtx, bookID)
		if err != nil {
			return err
		}
		if err := e.checkInventory("borrow", b); err != nil {
			return err
		}

		// 2. 检查可借数量
		if !b.HasAvailableCopy() {
			return book.ErrNoCopiesAvailable
		}

		// 3. 检查是否已借阅
		if _, err := e.loans.FindActive(txCtx, borrowerID, bookID); err == nil {
			return loan.ErrAlreadyBorrowed
		} else if !errors.Is(err, loan.ErrNoActiveBorrow) {
			return err
		}

		// 4. 创建借阅记录
		now := e.now()
		l := loan.NewLoan(borrowerID, bookID, now, e.policy.DueDate(now))
		if err := e.loans.Create(txCtx, l); err != nil {
			return err
		}

		// 5. 扣减可借数量
		n, err := e.books.DecrementAvailable(txCtx, bookID)
		if err != nil {
			return err
		}

		newLoan, title, available = l, b.Title, n
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 6. 提交之后:审计与缓存
	e.recorder.Record(context.WithoutCancel(ctx), borrowerID, audit.ActionBookBorrowed, audit.EntityBook, bookID,
		fmt.Sprintf("借阅《%s》,应还日期 %s", title, newLoan.DueDate.Format(time.DateOnly)))
	e.invalidateCache(ctx, bookID)

	return &BorrowResult{
		Loan:            newLoan,
		BookTitle:       title,
		AvailableCopies: available,
	}, nil
}
