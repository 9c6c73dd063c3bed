package dto

import (
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/domain/penalty"
)

const timeLayout = "2006-01-02 15:04:05"

// LoanResponse 借阅/归还响应
type LoanResponse struct {
	LoanID          uint    `json:"loan_id" example:"1"`
	BookID          uint    `json:"book_id" example:"1"`
	Title           string  `json:"title" example:"Go语言实战"`
	BorrowedAt      string  `json:"borrowed_at" example:"2024-01-01 09:00:00"`
	DueDate         string  `json:"due_date" example:"2024-01-15 09:00:00"`
	ReturnedAt      *string `json:"returned_at,omitempty" example:"2024-01-21 09:00:00"`
	DaysLate        int     `json:"days_late" example:"6"`
	Penalty         int64   `json:"penalty" example:"300"`       // 罚金(分)
	PenaltyYuan     string  `json:"penalty_yuan" example:"3.00"` // 罚金(元)
	AvailableCopies int     `json:"available_copies" example:"1"`
}

// NewLoanResponse 借阅记录 → 响应
func NewLoanResponse(l *loan.Loan, title string, available int) *LoanResponse {
	resp := &LoanResponse{
		LoanID:          l.ID,
		BookID:          l.BookID,
		Title:           title,
		BorrowedAt:      l.BorrowedAt.Format(timeLayout),
		DueDate:         l.DueDate.Format(timeLayout),
		DaysLate:        l.DaysLate,
		Penalty:         l.PenaltyCents,
		PenaltyYuan:     penalty.FormatCents(l.PenaltyCents),
		AvailableCopies: available,
	}
	if l.ReturnedAt != nil {
		s := l.ReturnedAt.Format(timeLayout)
		resp.ReturnedAt = &s
	}
	return resp
}

// HistoryQuery 借阅历史查询参数
type HistoryQuery struct {
	Status   string `form:"status" binding:"omitempty,oneof=all active returned" example:"active"`
	Page     int    `form:"page" example:"1"`
	PageSize int    `form:"page_size" example:"10"`
}

// ActivityQuery 活动日志查询参数
type ActivityQuery struct {
	BorrowerID uint   `form:"borrower_id" example:"1"`
	Action     string `form:"action" example:"BOOK_BORROWED"`
	Limit      int    `form:"limit" example:"50"`
}
