package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/loan"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// loanRepository 借阅记录仓储实现(MySQL)
// 设计说明:
// 1. "同一借阅者对同一本书最多一条进行中记录"由active_key唯一索引保证,
// 插入冲突直接转换为ErrAlreadyBorrowed,检查与插入在同一条语句内完成
// 2. 归还是条件UPDATE(returned_at IS NULL),重复归还不会覆盖罚金快照
type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository 创建借阅记录仓储
func NewLoanRepository(db *gorm.DB) loan.Repository {
	return &loanRepository{db: db}
}

// Create 创建借阅记录
func (r *loanRepository) Create(ctx context.Context, l *loan.Loan) error {
	key := loan.ActiveKey(l.BorrowerID, l.BookID)
	model := &LoanModel{
		BorrowerID:   l.BorrowerID,
		BookID:       l.BookID,
		ActiveKey:    &key,
		BorrowedAt:   l.BorrowedAt,
		DueDate:      l.DueDate,
		DaysLate:     l.DaysLate,
		PenaltyCents: l.PenaltyCents,
	}

	if err := r.getDB(ctx).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return loan.ErrAlreadyBorrowed
		}
		return apperrors.Wrap(err, "创建借阅记录失败")
	}

	l.ID = model.ID
	l.CreatedAt = model.CreatedAt
	l.UpdatedAt = model.UpdatedAt
	return nil
}

// FindActive 查找进行中的借阅记录
// 走idx_loan_pair复合索引
func (r *loanRepository) FindActive(ctx context.Context, borrowerID, bookID uint) (*loan.Loan, error) {
	var model LoanModel
	err := r.getDB(ctx).
		Where("borrower_id = ? AND book_id = ? AND returned_at IS NULL", borrowerID, bookID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loan.ErrNoActiveBorrow
		}
		return nil, apperrors.Wrap(err, "查询借阅记录失败")
	}
	return toLoanEntity(&model), nil
}

// FindByID 根据ID查找
func (r *loanRepository) FindByID(ctx context.Context, id uint) (*loan.Loan, error) {
	var model LoanModel
	if err := r.getDB(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loan.ErrLoanNotFound
		}
		return nil, apperrors.Wrap(err, "查询借阅记录失败")
	}
	return toLoanEntity(&model), nil
}

// Close 关闭借阅记录
// UPDATE loans SET returned_at=?, days_late=?, penalty_cents=?, active_key=NULL
// WHERE id=? AND returned_at IS NULL
func (r *loanRepository) Close(ctx context.Context, loanID uint, returnedAt time.Time, daysLate int, penaltyCents int64) error {
	result := r.getDB(ctx).Model(&LoanModel{}).
		Where("id = ? AND returned_at IS NULL", loanID).
		Updates(map[string]interface{}{
			"returned_at":   returnedAt,
			"days_late":     daysLate,
			"penalty_cents": penaltyCents,
			"active_key":    nil,
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "归还借阅记录失败")
	}

	if result.RowsAffected == 0 {
		// 记录不存在,或已被归还
		if _, err := r.FindByID(ctx, loanID); err != nil {
			return err
		}
		return loan.ErrAlreadyReturned
	}
	return nil
}

// ListByBorrower 分页查询借阅历史
func (r *loanRepository) ListByBorrower(ctx context.Context, params loan.ListParams) ([]*loan.Loan, int64, error) {
	var models []LoanModel
	var total int64

	page, pageSize := normalizePage(params.Page, params.PageSize, 10, 100)
	query := r.getDB(ctx).Model(&LoanModel{}).Where("borrower_id = ?", params.BorrowerID)

	switch params.Status {
	case loan.StatusActive:
		query = query.Where("returned_at IS NULL")
	case loan.StatusReturned:
		query = query.Where("returned_at IS NOT NULL")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询借阅历史总数失败")
	}

	err := query.Order("borrowed_at DESC").Order("id DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询借阅历史失败")
	}

	return toLoanEntities(models), total, nil
}

// ListRecentByBook 查询某本书最近的借阅记录
func (r *loanRepository) ListRecentByBook(ctx context.Context, bookID uint, limit int) ([]*loan.Loan, error) {
	var models []LoanModel
	err := r.getDB(ctx).
		Where("book_id = ?", bookID).
		Order("borrowed_at DESC").Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询图书借阅记录失败")
	}
	return toLoanEntities(models), nil
}

// toLoanEntity GORM模型 → 领域实体
func toLoanEntity(model *LoanModel) *loan.Loan {
	return &loan.Loan{
		ID:           model.ID,
		BorrowerID:   model.BorrowerID,
		BookID:       model.BookID,
		BorrowedAt:   model.BorrowedAt,
		DueDate:      model.DueDate,
		ReturnedAt:   model.ReturnedAt,
		DaysLate:     model.DaysLate,
		PenaltyCents: model.PenaltyCents,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toLoanEntities(models []LoanModel) []*loan.Loan {
	loans := make([]*loan.Loan, len(models))
	for i := range models {
		loans[i] = toLoanEntity(&models[i])
	}
	return loans
}

// getDB 从context获取事务DB,如果没有则使用默认DB
func (r *loanRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}
