package loan

import (
	"context"
	"errors"
	"time"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/domain/penalty"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// HistoryUseCase 借阅历史查询用例
// 每条记录附带书名、作者与逾期状态;借阅中的记录按当前时间估算罚金(仅展示)
type HistoryUseCase struct {
	loans  loan.Repository
	books  book.Repository
	policy penalty.Policy
	now    func() time.Time
}

// NewHistoryUseCase 创建借阅历史查询用例
func NewHistoryUseCase(loans loan.Repository, books book.Repository, policy penalty.Policy) *HistoryUseCase {
	return &HistoryUseCase{
		loans:  loans,
		books:  books,
		policy: policy,
		now:    time.Now,
	}
}

// HistoryRequest 查询参数
type HistoryRequest struct {
	BorrowerID uint   // 借阅者(从认证中间件获取)
	Status     string // all/active/returned,默认all
	Page       int
	PageSize   int
}

// HistoryItem 借阅历史条目
type HistoryItem struct {
	LoanID      uint           `json:"loan_id"`
	BookID      uint           `json:"book_id"`
	Title       string         `json:"title"`
	Author      string         `json:"author"`
	BorrowedAt  string         `json:"borrowed_at"`
	DueDate     string         `json:"due_date"`
	ReturnedAt  *string        `json:"returned_at"`
	DaysLate    int            `json:"days_late"`
	Penalty     int64          `json:"penalty"` // 罚金(分)
	PenaltyYuan string         `json:"penalty_yuan"`
	Status      penalty.Status `json:"status"`
}

// HistoryResponse 分页结果
type HistoryResponse struct {
	List     []HistoryItem `json:"list"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// Execute 查询借阅历史
func (uc *HistoryUseCase) Execute(ctx context.Context, req HistoryRequest) (*HistoryResponse, error) {
	// 1. 参数处理
	status := loan.StatusFilter(req.Status)
	if status == "" {
		status = loan.StatusAll
	}
	if !status.Valid() {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "status只能是all、active或returned")
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 10
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	// 2. 查询借阅记录
	loans, total, err := uc.loans.ListByBorrower(ctx, loan.ListParams{
		BorrowerID: req.BorrowerID,
		Status:     status,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	// 3. 补充图书信息(同一页内相同图书只查一次)
	now := uc.now()
	books := make(map[uint]*book.Book)
	list := make([]HistoryItem, 0, len(loans))
	for _, l := range loans {
		b, ok := books[l.BookID]
		if !ok {
			b, err = uc.books.FindByID(ctx, l.BookID)
			if err != nil && !errors.Is(err, book.ErrBookNotFound) {
				return nil, err
			}
			books[l.BookID] = b
		}
		list = append(list, uc.toItem(l, b, now))
	}

	return &HistoryResponse{
		List:     list,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

func (uc *HistoryUseCase) toItem(l *loan.Loan, b *book.Book, now time.Time) HistoryItem {
	item := HistoryItem{
		LoanID:     l.ID,
		BookID:     l.BookID,
		BorrowedAt: l.BorrowedAt.Format("2006-01-02 15:04:05"),
		DueDate:    l.DueDate.Format("2006-01-02 15:04:05"),
		DaysLate:   l.DaysLate,
		Penalty:    l.PenaltyCents,
		Status:     uc.policy.Status(l.DueDate, l.ReturnedAt, now),
	}
	if b != nil {
		item.Title = b.Title
		item.Author = b.Author
	}
	if l.ReturnedAt != nil {
		s := l.ReturnedAt.Format("2006-01-02 15:04:05")
		item.ReturnedAt = &s
		// 已归还以落库的罚金为准(规则调整后不追溯)
		item.Status.DaysLate = l.DaysLate
		item.Status.PenaltyCents = l.PenaltyCents
		item.Status.IsLate = l.DaysLate > 0
		item.Status.Status = penalty.StatusReturnedOnTime
		if item.Status.IsLate {
			item.Status.Status = penalty.StatusReturnedLate
		}
	}
	item.PenaltyYuan = penalty.FormatCents(item.Penalty)
	return item
}
