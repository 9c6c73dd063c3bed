package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/library/internal/domain/borrower"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// borrowerRepository 借阅者仓储实现(MySQL)
// 借阅者身份由认证组件维护,这里只负责罚金累加器
type borrowerRepository struct {
	db *gorm.DB
}

// NewBorrowerRepository 创建借阅者仓储
func NewBorrowerRepository(db *gorm.DB) borrower.Repository {
	return &borrowerRepository{db: db}
}

// FindByID 根据ID查找借阅者
func (r *borrowerRepository) FindByID(ctx context.Context, id uint) (*borrower.Borrower, error) {
	var model BorrowerModel
	if err := r.getDB(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, borrower.ErrBorrowerNotFound
		}
		return nil, apperrors.Wrap(err, "查询借阅者失败")
	}

	return &borrower.Borrower{
		ID:                model.ID,
		Email:             model.Email,
		Name:              model.Name,
		Role:              borrower.Role(model.Role),
		TotalPenaltyCents: model.TotalPenaltyCents,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}, nil
}

// AddPenalty 累加罚金
// 单条upsert语句,不做应用层读改写:
// - MySQL: INSERT ... ON DUPLICATE KEY UPDATE total_penalty_cents = total_penalty_cents + ?
// - SQLite: INSERT ... ON CONFLICT(id) DO UPDATE SET ...
func (r *borrowerRepository) AddPenalty(ctx context.Context, borrowerID uint, cents int64) error {
	if cents <= 0 {
		return nil
	}

	model := &BorrowerModel{
		ID:                borrowerID,
		Role:              string(borrower.RoleMember),
		TotalPenaltyCents: cents,
	}
	err := r.getDB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_penalty_cents": gorm.Expr("total_penalty_cents + ?", cents),
			"updated_at":          time.Now(),
		}),
	}).Create(model).Error
	if err != nil {
		return apperrors.Wrap(err, "累加罚金失败")
	}
	return nil
}

// getDB 从context获取事务DB,如果没有则使用默认DB
func (r *borrowerRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}
