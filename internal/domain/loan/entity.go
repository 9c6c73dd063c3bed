package loan

import (
	"fmt"
	"time"
)

// Loan 借阅记录实体
// 设计说明:
// 1. 一条记录对应一次"借出-归还"周期,ReturnedAt为nil表示借阅进行中
// 2. 同一借阅者对同一本书最多只有一条进行中的记录(数据库唯一索引兜底)
// 3. 归还时写入逾期天数与罚金快照,之后记录不再变化
type Loan struct {
	ID           uint
	BorrowerID   uint
	BookID       uint
	BorrowedAt   time.Time
	DueDate      time.Time
	ReturnedAt   *time.Time
	DaysLate     int
	PenaltyCents int64 // 罚金(单位:分)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewLoan 创建借阅记录(工厂方法)
func NewLoan(borrowerID, bookID uint, borrowedAt, dueDate time.Time) *Loan {
	return &Loan{
		BorrowerID: borrowerID,
		BookID:     bookID,
		BorrowedAt: borrowedAt,
		DueDate:    dueDate,
		CreatedAt:  borrowedAt,
		UpdatedAt:  borrowedAt,
	}
}

// IsActive 借阅是否进行中
func (l *Loan) IsActive() bool {
	return l.ReturnedAt == nil
}

// Close 归还(领域行为)
// 已归还的记录不允许再次关闭
func (l *Loan) Close(returnedAt time.Time, daysLate int, penaltyCents int64) error {
	if !l.IsActive() {
		return ErrAlreadyReturned
	}
	l.ReturnedAt = &returnedAt
	l.DaysLate = daysLate
	l.PenaltyCents = penaltyCents
	l.UpdatedAt = returnedAt
	return nil
}

// ActiveKey 进行中借阅的唯一键
// 归还后置空,使同一借阅者可以再次借阅同一本书
func ActiveKey(borrowerID, bookID uint) string {
	return fmt.Sprintf("%d:%d", borrowerID, bookID)
}
