package book

import (
	"context"
	"strings"
	"time"
)

// Repository 图书库存仓储接口(依赖倒置原则)
// 设计说明:
// 1. 由domain层定义接口,infrastructure层实现
// 2. 所有方法都从context中获取事务(由TxManager注入),在事务外调用时各自独立执行
// 3. DecrementAvailable/IncrementAvailable是单条条件UPDATE,检查和修改在同一原子步骤内完成
type Repository interface {
	// Create 创建图书
	Create(ctx context.Context, book *Book) error

	// FindByID 根据ID查找图书(不加锁,可用于展示)
	FindByID(ctx context.Context, id uint) (*Book, error)

	// LockByID 悲观锁查询图书(SELECT ... FOR UPDATE)
	// 同一本书的借还在此处排队,不同图书之间互不影响
	LockByID(ctx context.Context, id uint) (*Book, error)

	// DecrementAvailable 可借数量-1,累计借出次数+1
	// 图书不存在返回ErrBookNotFound,可借数量为0返回ErrNoCopiesAvailable
	// 返回扣减后的可借数量
	DecrementAvailable(ctx context.Context, id uint) (int, error)

	// IncrementAvailable 可借数量+1,最多不超过馆藏总数
	// 返回增加后的可借数量
	IncrementAvailable(ctx context.Context, id uint) (int, error)

	// UpdateCopies 保存管理员调整后的馆藏总数与可借数量
	UpdateCopies(ctx context.Context, book *Book) error

	// List 分页查询图书列表
	List(ctx context.Context, params ListParams) ([]*Book, int64, error)
}

// ListParams 列表查询参数
type ListParams struct {
	Page     int    // 从1开始
	PageSize int    // 默认20,最大100
	Keyword  string // 匹配书名或作者
	Genre    string
}

// Normalize 补齐分页默认值
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.PageSize < 1:
		p.PageSize = 20
	case p.PageSize > 100:
		p.PageSize = 100
	}
	p.Keyword = strings.TrimSpace(p.Keyword)
	return p
}

// AvailabilityCache 可借数量展示缓存
// 说明:允许读到旧值,只用于页面展示;借阅判断必须以数据库中的原子扣减为准
type AvailabilityCache interface {
	// Get 读取缓存,未命中返回ok=false
	Get(ctx context.Context, bookID uint) (available int, ok bool, err error)

	// Set 写入缓存
	Set(ctx context.Context, bookID uint, available int, ttl time.Duration) error

	// Invalidate 删除缓存(借还提交后调用)
	Invalidate(ctx context.Context, bookID uint) error
}
