package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/library/internal/domain/book"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// bookRepository 图书库存仓储实现(MySQL)
// 设计说明:
// 1. 实现domain/book/repository.go定义的接口
// 2. 负责domain实体与GORM模型之间的转换
// 3. 可借数量的增减都是单条条件UPDATE,检查与修改在数据库内原子完成
type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB) book.Repository {
	return &bookRepository{db: db}
}

// Create 创建图书
func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	// 1. 领域实体 → GORM模型
	model := &BookModel{
		ISBN:            b.ISBN,
		Title:           b.Title,
		Author:          b.Author,
		Genre:           b.Genre,
		PublishedYear:   b.PublishedYear,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		BorrowCount:     b.BorrowCount,
	}

	// 2. 插入数据库
	if err := r.getDB(ctx).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return book.ErrISBNDuplicate
		}
		return apperrors.Wrap(err, "创建图书失败")
	}

	// 3. 回填自增ID
	b.ID = model.ID
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt

	return nil
}

// FindByID 根据ID查找图书
func (r *bookRepository) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	if err := r.getDB(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "查询图书失败")
	}

	return toBookEntity(&model), nil
}

// LockByID 悲观锁查询图书
// SELECT ... FOR UPDATE,必须在事务内调用(getDB从context获取事务DB)
func (r *bookRepository) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	err := r.getDB(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "锁定图书失败")
	}

	return toBookEntity(&model), nil
}

// DecrementAvailable 可借数量-1(原子操作)
// UPDATE books SET available_copies = available_copies - 1, borrow_count = borrow_count + 1
// WHERE id = ? AND available_copies > 0
func (r *bookRepository) DecrementAvailable(ctx context.Context, id uint) (int, error) {
	db := r.getDB(ctx)
	result := db.Model(&BookModel{}).
		Where("id = ? AND available_copies > 0", id).
		Updates(map[string]interface{}{
			"available_copies": gorm.Expr("available_copies - 1"),
			"borrow_count":     gorm.Expr("borrow_count + 1"),
		})
	if result.Error != nil {
		return 0, apperrors.Wrap(result.Error, "扣减可借数量失败")
	}

	if result.RowsAffected == 0 {
		// 可能是图书不存在,或者没有可借副本,再查一次确定原因
		if _, err := r.FindByID(ctx, id); err != nil {
			return 0, err
		}
		return 0, book.ErrNoCopiesAvailable
	}

	return r.availableOf(ctx, id)
}

// IncrementAvailable 可借数量+1(原子操作)
// 管理员缩减馆藏后,归还可能使available超过total,此时截断到total
func (r *bookRepository) IncrementAvailable(ctx context.Context, id uint) (int, error) {
	db := r.getDB(ctx)
	result := db.Model(&BookModel{}).
		Where("id = ?", id).
		Update("available_copies", gorm.Expr(
			"CASE WHEN available_copies + 1 > total_copies THEN total_copies ELSE available_copies + 1 END",
		))
	if result.Error != nil {
		return 0, apperrors.Wrap(result.Error, "增加可借数量失败")
	}

	// MySQL只统计实际变化的行,截断时值可能不变,统一回查
	return r.availableOf(ctx, id)
}

// UpdateCopies 保存管理员调整后的馆藏数量
func (r *bookRepository) UpdateCopies(ctx context.Context, b *book.Book) error {
	result := r.getDB(ctx).Model(&BookModel{}).
		Where("id = ?", b.ID).
		Updates(map[string]interface{}{
			"total_copies":     b.TotalCopies,
			"available_copies": b.AvailableCopies,
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新馆藏数量失败")
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, b.ID); err != nil {
			return err
		}
	}
	return nil
}

// List 分页查询图书列表
func (r *bookRepository) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	var models []BookModel
	var total int64

	page, pageSize := normalizePage(params.Page, params.PageSize, 20, 100)
	query := r.getDB(ctx).Model(&BookModel{})

	// 关键词搜索(标题、作者)
	if params.Keyword != "" {
		keyword := "%" + params.Keyword + "%"
		query = query.Where("title LIKE ? OR author LIKE ?", keyword, keyword)
	}
	if params.Genre != "" {
		query = query.Where("genre = ?", params.Genre)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书总数失败")
	}

	err := query.Order("created_at DESC").Order("id DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书列表失败")
	}

	books := make([]*book.Book, len(models))
	for i := range models {
		books[i] = toBookEntity(&models[i])
	}

	return books, total, nil
}

// availableOf 读取当前可借数量(事务内读取自己的写入)
func (r *bookRepository) availableOf(ctx context.Context, id uint) (int, error) {
	var model BookModel
	err := r.getDB(ctx).Select("id", "available_copies").First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, book.ErrBookNotFound
		}
		return 0, apperrors.Wrap(err, "查询可借数量失败")
	}
	return model.AvailableCopies, nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

// toBookEntity GORM模型 → 领域实体
func toBookEntity(model *BookModel) *book.Book {
	return &book.Book{
		ID:              model.ID,
		ISBN:            model.ISBN,
		Title:           model.Title,
		Author:          model.Author,
		Genre:           model.Genre,
		PublishedYear:   model.PublishedYear,
		TotalCopies:     model.TotalCopies,
		AvailableCopies: model.AvailableCopies,
		BorrowCount:     model.BorrowCount,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

// getDB 从context获取事务DB,如果没有则使用默认DB
func (r *bookRepository) getDB(ctx context.Context) *gorm.DB {
	return dbFromContext(ctx, r.db)
}
