package loan

import (
	"context"
	"time"
)

// Repository 借阅记录仓储接口
// 所有方法都从context中获取事务
type Repository interface {
	// Create 创建借阅记录
	// 同一借阅者对同一本书已有进行中记录时返回ErrAlreadyBorrowed
	Create(ctx context.Context, loan *Loan) error

	// FindActive 查找进行中的借阅记录
	// 不存在时返回ErrNoActiveBorrow
	FindActive(ctx context.Context, borrowerID, bookID uint) (*Loan, error)

	// FindByID 根据ID查找
	FindByID(ctx context.Context, id uint) (*Loan, error)

	// Close 关闭借阅记录(条件更新,仅当记录仍未归还时生效)
	// 已被关闭时返回ErrAlreadyReturned
	Close(ctx context.Context, loanID uint, returnedAt time.Time, daysLate int, penaltyCents int64) error

	// ListByBorrower 分页查询借阅者的借阅历史(按借出时间倒序)
	ListByBorrower(ctx context.Context, params ListParams) ([]*Loan, int64, error)

	// ListRecentByBook 查询某本书最近的借阅记录
	ListRecentByBook(ctx context.Context, bookID uint, limit int) ([]*Loan, error)
}

// StatusFilter 借阅历史状态筛选
type StatusFilter string

const (
	StatusAll      StatusFilter = "all"
	StatusActive   StatusFilter = "active"
	StatusReturned StatusFilter = "returned"
)

// Valid 是否为合法的筛选值
func (s StatusFilter) Valid() bool {
	switch s {
	case StatusAll, StatusActive, StatusReturned:
		return true
	}
	return false
}

// ListParams 借阅历史查询参数
type ListParams struct {
	BorrowerID uint
	Status     StatusFilter
	Page       int
	PageSize   int
}
