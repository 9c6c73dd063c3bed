// Package analytics 借阅统计(只读)
//
// 所有统计直接读取库存表与借阅记录表,彼此独立的查询用errgroup并发执行。
package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xiebiao/library/internal/domain/analytics"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/domain/penalty"
	"github.com/xiebiao/library/pkg/tracing"
)

const tracerName = "library/analytics"

const (
	defaultTopN      = 10
	maxTopN          = 100
	defaultTrendDays = 30
	maxTrendDays     = 365
	recentLoansLimit = 10
)

// Aggregator 统计聚合
type Aggregator struct {
	reader analytics.Reader
	books  book.Repository
	loans  loan.Repository
	now    func() time.Time
}

// NewAggregator 创建统计聚合
func NewAggregator(reader analytics.Reader, books book.Repository, loans loan.Repository) *Aggregator {
	return &Aggregator{
		reader: reader,
		books:  books,
		loans:  loans,
		now:    time.Now,
	}
}

// Overview 总览
type Overview struct {
	TotalBooks         int64  `json:"total_books"`
	TotalBorrowers     int64  `json:"total_borrowers"`
	TotalLoans         int64  `json:"total_loans"`
	ActiveLoans        int64  `json:"active_loans"`
	OverdueLoans       int64  `json:"overdue_loans"`
	TotalPenalties     int64  `json:"total_penalties"` // 分
	TotalPenaltiesYuan string `json:"total_penalties_yuan"`
}

// Overview 总览统计
func (a *Aggregator) Overview(ctx context.Context) (result *Overview, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Analytics.Overview")
	defer func() { tracing.EndSpan(span, err) }()

	var o Overview
	now := a.now()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		o.TotalBooks, err = a.reader.CountBooks(ctx)
		return err
	})
	g.Go(func() (err error) {
		o.TotalBorrowers, err = a.reader.CountBorrowers(ctx)
		return err
	})
	g.Go(func() (err error) {
		o.TotalLoans, err = a.reader.CountLoans(ctx)
		return err
	})
	g.Go(func() (err error) {
		o.ActiveLoans, err = a.reader.CountActiveLoans(ctx)
		return err
	})
	g.Go(func() (err error) {
		o.OverdueLoans, err = a.reader.CountOverdueLoans(ctx, now)
		return err
	})
	g.Go(func() (err error) {
		o.TotalPenalties, err = a.reader.SumAssessedPenalties(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.TotalPenaltiesYuan = penalty.FormatCents(o.TotalPenalties)
	return &o, nil
}

// PopularBooks 按累计借出次数排行
func (a *Aggregator) PopularBooks(ctx context.Context, limit int) ([]analytics.BookStat, error) {
	return a.reader.PopularBooks(ctx, clampLimit(limit, defaultTopN, maxTopN))
}

// ActiveBorrowers 按借阅次数排行的借阅者
func (a *Aggregator) ActiveBorrowers(ctx context.Context, limit int) ([]analytics.BorrowerActivity, error) {
	return a.reader.ActiveBorrowers(ctx, clampLimit(limit, defaultTopN, maxTopN))
}

// GenreDistribution 分类分布
func (a *Aggregator) GenreDistribution(ctx context.Context) ([]analytics.GenreCount, error) {
	return a.reader.GenreDistribution(ctx)
}

// PenaltyReport 罚金报表
type PenaltyReport struct {
	TotalAssessed     int64                       `json:"total_assessed"` // 借阅记录上的罚金总额(分)
	TotalAssessedYuan string                      `json:"total_assessed_yuan"`
	PenalizedLoans    int64                       `json:"penalized_loans"`
	Outstanding       int64                       `json:"outstanding"` // 借阅者累计罚金总额(分)
	OutstandingYuan   string                      `json:"outstanding_yuan"`
	TopDelinquents    []analytics.BorrowerPenalty `json:"top_delinquents"`
}

// PenaltyReport 罚金报表
func (a *Aggregator) PenaltyReport(ctx context.Context, top int) (result *PenaltyReport, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Analytics.PenaltyReport")
	defer func() { tracing.EndSpan(span, err) }()

	var r PenaltyReport
	top = clampLimit(top, defaultTopN, maxTopN)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		r.TotalAssessed, err = a.reader.SumAssessedPenalties(ctx)
		return err
	})
	g.Go(func() (err error) {
		r.PenalizedLoans, err = a.reader.CountPenalizedLoans(ctx)
		return err
	})
	g.Go(func() (err error) {
		r.Outstanding, err = a.reader.SumOutstandingPenalties(ctx)
		return err
	})
	g.Go(func() (err error) {
		r.TopDelinquents, err = a.reader.TopDelinquents(ctx, top)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if r.TopDelinquents == nil {
		r.TopDelinquents = []analytics.BorrowerPenalty{}
	}
	r.TotalAssessedYuan = penalty.FormatCents(r.TotalAssessed)
	r.OutstandingYuan = penalty.FormatCents(r.Outstanding)
	return &r, nil
}

// RecentLoan 最近借阅
type RecentLoan struct {
	LoanID     uint       `json:"loan_id"`
	BorrowerID uint       `json:"borrower_id"`
	BorrowedAt time.Time  `json:"borrowed_at"`
	ReturnedAt *time.Time `json:"returned_at"`
}

// BookPopularity 单本图书借阅情况
type BookPopularity struct {
	Book              analytics.BookStat `json:"book"`
	CurrentlyBorrowed int                `json:"currently_borrowed"`
	RecentLoans       []RecentLoan       `json:"recent_loans"`
}

// BookPopularity 单本图书借阅情况
func (a *Aggregator) BookPopularity(ctx context.Context, bookID uint) (*BookPopularity, error) {
	var (
		b     *book.Book
		loans []*loan.Loan
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		b, err = a.books.FindByID(gctx, bookID)
		return err
	})
	g.Go(func() (err error) {
		loans, err = a.loans.ListRecentByBook(gctx, bookID, recentLoansLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	recent := make([]RecentLoan, len(loans))
	for i, l := range loans {
		recent[i] = RecentLoan{
			LoanID:     l.ID,
			BorrowerID: l.BorrowerID,
			BorrowedAt: l.BorrowedAt,
			ReturnedAt: l.ReturnedAt,
		}
	}

	return &BookPopularity{
		Book: analytics.BookStat{
			BookID:          b.ID,
			Title:           b.Title,
			Author:          b.Author,
			Genre:           b.Genre,
			BorrowCount:     b.BorrowCount,
			TotalCopies:     b.TotalCopies,
			AvailableCopies: b.AvailableCopies,
		},
		CurrentlyBorrowed: b.OnLoan(),
		RecentLoans:       recent,
	}, nil
}

// BorrowingTrends 最近days天每天的借出数量(含今天,没有借出的日期为0)
func (a *Aggregator) BorrowingTrends(ctx context.Context, days int) ([]analytics.DailyCount, error) {
	days = clampLimit(days, defaultTrendDays, maxTrendDays)

	now := a.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	since := today.AddDate(0, 0, -(days - 1))

	times, err := a.reader.LoanTimesSince(ctx, since)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]int, days)
	for _, t := range times {
		buckets[t.In(now.Location()).Format(time.DateOnly)]++
	}

	result := make([]analytics.DailyCount, days)
	for i := 0; i < days; i++ {
		date := since.AddDate(0, 0, i).Format(time.DateOnly)
		result[i] = analytics.DailyCount{Date: date, Loans: buckets[date]}
	}
	return result, nil
}

func clampLimit(n, def, upper int) int {
	if n < 1 {
		return def
	}
	if n > upper {
		return upper
	}
	return n
}
