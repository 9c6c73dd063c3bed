package analytics

import (
	"context"
	"time"
)

// Reader 统计查询接口(只读)
// 设计说明:
// 1. 直接读取图书库存表与借阅记录表,不经过借阅引擎
// 2. 实现方不得修改任何数据
// 3. 每个方法对应一条独立查询,便于上层并发执行
type Reader interface {
	CountBooks(ctx context.Context) (int64, error)
	// CountBorrowers 至少借过一次书的借阅者人数
	CountBorrowers(ctx context.Context) (int64, error)
	CountLoans(ctx context.Context) (int64, error)
	CountActiveLoans(ctx context.Context) (int64, error)
	// CountOverdueLoans 进行中且已过应还日期的借阅
	CountOverdueLoans(ctx context.Context, now time.Time) (int64, error)

	// SumAssessedPenalties 借阅记录上的罚金总额(分)
	SumAssessedPenalties(ctx context.Context) (int64, error)
	CountPenalizedLoans(ctx context.Context) (int64, error)
	// SumOutstandingPenalties 借阅者累加器总额(分)
	SumOutstandingPenalties(ctx context.Context) (int64, error)
	TopDelinquents(ctx context.Context, limit int) ([]BorrowerPenalty, error)

	PopularBooks(ctx context.Context, limit int) ([]BookStat, error)
	// ActiveBorrowers 按借阅次数(含已归还)排行
	ActiveBorrowers(ctx context.Context, limit int) ([]BorrowerActivity, error)
	GenreDistribution(ctx context.Context) ([]GenreCount, error)
	// LoanTimesSince since之后的所有借出时间,按天分桶在上层完成
	LoanTimesSince(ctx context.Context, since time.Time) ([]time.Time, error)
}

// BookStat 图书借阅统计
type BookStat struct {
	BookID          uint   `json:"book_id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Genre           string `json:"genre"`
	BorrowCount     int    `json:"borrow_count"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

// GenreCount 分类统计
type GenreCount struct {
	Genre       string `json:"genre"`
	Books       int64  `json:"books"`
	BorrowCount int64  `json:"borrow_count"`
}

// BorrowerPenalty 借阅者罚金
type BorrowerPenalty struct {
	BorrowerID        uint   `json:"borrower_id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	TotalPenaltyCents int64  `json:"total_penalty_cents"`
}

// BorrowerActivity 借阅者借阅次数
type BorrowerActivity struct {
	BorrowerID uint   `json:"borrower_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Loans      int64  `json:"loans"`
}

// DailyCount 每日借出数量
type DailyCount struct {
	Date  string `json:"date"` // 2006-01-02
	Loans int    `json:"loans"`
}
