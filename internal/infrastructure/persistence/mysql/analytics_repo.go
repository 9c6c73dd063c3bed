package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/analytics"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// analyticsRepository 统计查询(只读)
type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository 创建统计查询仓储
func NewAnalyticsRepository(db *gorm.DB) analytics.Reader {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) count(ctx context.Context, model interface{}, where string, args ...interface{}) (int64, error) {
	var n int64
	query := r.db.WithContext(ctx).Model(model)
	if where != "" {
		query = query.Where(where, args...)
	}
	if err := query.Count(&n).Error; err != nil {
		return 0, apperrors.Wrap(err, "统计查询失败")
	}
	return n, nil
}

func (r *analyticsRepository) sum(ctx context.Context, model interface{}, column string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(model).
		Select("COALESCE(SUM(" + column + "), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, apperrors.Wrap(err, "统计查询失败")
	}
	return total, nil
}

func (r *analyticsRepository) CountBooks(ctx context.Context) (int64, error) {
	return r.count(ctx, &BookModel{}, "")
}

// CountBorrowers 借过书的借阅者人数
// borrowers表只在第一次罚款时写入,不能用来计数
func (r *analyticsRepository) CountBorrowers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&LoanModel{}).
		Distinct("borrower_id").
		Count(&n).Error
	if err != nil {
		return 0, apperrors.Wrap(err, "统计查询失败")
	}
	return n, nil
}

func (r *analyticsRepository) CountLoans(ctx context.Context) (int64, error) {
	return r.count(ctx, &LoanModel{}, "")
}

func (r *analyticsRepository) CountActiveLoans(ctx context.Context) (int64, error) {
	return r.count(ctx, &LoanModel{}, "returned_at IS NULL")
}

func (r *analyticsRepository) CountOverdueLoans(ctx context.Context, now time.Time) (int64, error) {
	return r.count(ctx, &LoanModel{}, "returned_at IS NULL AND due_date < ?", now)
}

func (r *analyticsRepository) SumAssessedPenalties(ctx context.Context) (int64, error) {
	return r.sum(ctx, &LoanModel{}, "penalty_cents")
}

func (r *analyticsRepository) CountPenalizedLoans(ctx context.Context) (int64, error) {
	return r.count(ctx, &LoanModel{}, "penalty_cents > 0")
}

func (r *analyticsRepository) SumOutstandingPenalties(ctx context.Context) (int64, error) {
	return r.sum(ctx, &BorrowerModel{}, "total_penalty_cents")
}

// TopDelinquents 累计罚金最高的借阅者
func (r *analyticsRepository) TopDelinquents(ctx context.Context, limit int) ([]analytics.BorrowerPenalty, error) {
	var models []BorrowerModel
	err := r.db.WithContext(ctx).
		Where("total_penalty_cents > 0").
		Order("total_penalty_cents DESC").Order("id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询罚金排行失败")
	}

	result := make([]analytics.BorrowerPenalty, len(models))
	for i, m := range models {
		result[i] = analytics.BorrowerPenalty{
			BorrowerID:        m.ID,
			Name:              m.Name,
			Email:             m.Email,
			TotalPenaltyCents: m.TotalPenaltyCents,
		}
	}
	return result, nil
}

// ActiveBorrowers 按借阅次数排行的借阅者(含已归还)
func (r *analyticsRepository) ActiveBorrowers(ctx context.Context, limit int) ([]analytics.BorrowerActivity, error) {
	var rows []struct {
		BorrowerID uint
		Name       string
		Email      string
		LoanCount  int64
	}
	err := r.db.WithContext(ctx).Model(&LoanModel{}).
		Select("loans.borrower_id, COALESCE(borrowers.name, '') AS name, COALESCE(borrowers.email, '') AS email, COUNT(*) AS loan_count").
		Joins("LEFT JOIN borrowers ON borrowers.id = loans.borrower_id").
		Group("loans.borrower_id, borrowers.name, borrowers.email").
		Order("loan_count DESC").Order("loans.borrower_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询活跃借阅者失败")
	}

	result := make([]analytics.BorrowerActivity, len(rows))
	for i, row := range rows {
		result[i] = analytics.BorrowerActivity{
			BorrowerID: row.BorrowerID,
			Name:       row.Name,
			Email:      row.Email,
			Loans:      row.LoanCount,
		}
	}
	return result, nil
}

// PopularBooks 按累计借出次数排行
func (r *analyticsRepository) PopularBooks(ctx context.Context, limit int) ([]analytics.BookStat, error) {
	var models []BookModel
	err := r.db.WithContext(ctx).
		Order("borrow_count DESC").Order("id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询热门图书失败")
	}

	result := make([]analytics.BookStat, len(models))
	for i, m := range models {
		result[i] = analytics.BookStat{
			BookID:          m.ID,
			Title:           m.Title,
			Author:          m.Author,
			Genre:           m.Genre,
			BorrowCount:     m.BorrowCount,
			TotalCopies:     m.TotalCopies,
			AvailableCopies: m.AvailableCopies,
		}
	}
	return result, nil
}

// GenreDistribution 分类分布
func (r *analyticsRepository) GenreDistribution(ctx context.Context) ([]analytics.GenreCount, error) {
	var rows []analytics.GenreCount
	err := r.db.WithContext(ctx).Model(&BookModel{}).
		Select("genre, COUNT(*) AS books, COALESCE(SUM(borrow_count), 0) AS borrow_count").
		Group("genre").
		Order("books DESC").Order("genre ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询分类分布失败")
	}
	return rows, nil
}

// LoanTimesSince since之后的借出时间
// 按天分桶在Go中完成,避免MySQL与SQLite日期函数差异
func (r *analyticsRepository) LoanTimesSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).Model(&LoanModel{}).
		Where("borrowed_at >= ?", since).
		Order("borrowed_at ASC").
		Pluck("borrowed_at", &times).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询借阅趋势失败")
	}
	return times, nil
}
