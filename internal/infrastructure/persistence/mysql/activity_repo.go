package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/audit"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// ActivityRepository 审计日志仓储(只追加)
// 同时实现audit.Store(查询)与audit.Sink(审计Worker的落库目标)
type ActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository 创建审计日志仓储
func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

var (
	_ audit.Store = (*ActivityRepository)(nil)
	_ audit.Sink  = (*ActivityRepository)(nil)
)

// Name Sink名称(用于日志与指标)
func (r *ActivityRepository) Name() string {
	return "database"
}

// Write 实现audit.Sink
func (r *ActivityRepository) Write(ctx context.Context, entry audit.Entry) error {
	return r.Append(ctx, entry)
}

// Append 追加一条审计日志
func (r *ActivityRepository) Append(ctx context.Context, entry audit.Entry) error {
	model := &ActivityLogModel{
		ID:         entry.ID,
		BorrowerID: entry.BorrowerID,
		Action:     string(entry.Action),
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Details:    entry.Details,
		CreatedAt:  entry.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			// 同一条目重复投递,已落库即视为成功
			return nil
		}
		return apperrors.Wrap(err, "写入审计日志失败")
	}
	return nil
}

// ListRecent 最近的审计日志
func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	return r.list(r.db.WithContext(ctx), limit)
}

// ListByBorrower 某个借阅者的审计日志
func (r *ActivityRepository) ListByBorrower(ctx context.Context, borrowerID uint, limit int) ([]audit.Entry, error) {
	return r.list(r.db.WithContext(ctx).Where("borrower_id = ?", borrowerID), limit)
}

// ListByAction 某类动作的审计日志
func (r *ActivityRepository) ListByAction(ctx context.Context, action audit.Action, limit int) ([]audit.Entry, error) {
	return r.list(r.db.WithContext(ctx).Where("action = ?", string(action)), limit)
}

func (r *ActivityRepository) list(query *gorm.DB, limit int) ([]audit.Entry, error) {
	var models []ActivityLogModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询审计日志失败")
	}

	entries := make([]audit.Entry, len(models))
	for i, m := range models {
		entries[i] = audit.Entry{
			ID:         m.ID,
			BorrowerID: m.BorrowerID,
			Action:     audit.Action(m.Action),
			EntityType: m.EntityType,
			EntityID:   m.EntityID,
			Details:    m.Details,
			CreatedAt:  m.CreatedAt,
		}
	}
	return entries, nil
}
