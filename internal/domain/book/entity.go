package book

import (
	"time"
)

// Book 图书实体(库存单元)
// 设计说明:
// 1. TotalCopies为馆藏总副本数(>=1),AvailableCopies为当前可借副本数
// 2. 不变式:0 <= AvailableCopies <= TotalCopies
// 3. AvailableCopies只能由借还流程(-1/+1)或管理员调整总数时按差值重新推导
// 4. BorrowCount为累计借出次数,用于热门排行
type Book struct {
	ID              uint
	ISBN            string // ISBN号
	Title           string // 书名
	Author          string // 作者
	Genre           string // 分类
	PublishedYear   int    // 出版年份
	TotalCopies     int    // 馆藏总数
	AvailableCopies int    // 可借数量
	BorrowCount     int    // 累计借出次数
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewBook 创建新图书(工厂方法)
// 新入库的图书全部可借
func NewBook(isbn, title, author, genre string, publishedYear, totalCopies int) *Book {
	now := time.Now()
	return &Book{
		ISBN:            isbn,
		Title:           title,
		Author:          author,
		Genre:           genre,
		PublishedYear:   publishedYear,
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CheckInvariant 校验库存不变式
// 返回false说明数据已被破坏(程序缺陷),调用方应拒绝本次修改
func (b *Book) CheckInvariant() bool {
	return b.TotalCopies >= 1 && b.AvailableCopies >= 0 && b.AvailableCopies <= b.TotalCopies
}

// HasAvailableCopy 是否还有可借副本
func (b *Book) HasAvailableCopy() bool {
	return b.AvailableCopies > 0
}

// OnLoan 当前借出数量
func (b *Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}

// ResizeCopies 调整馆藏总数(管理员操作)
// 业务规则:
// - 新总数必须>=1
// - 可借数量按总数差值同步增减,最低为0
// - 缩减到少于当前借出数量时,可借数量为0,后续归还会被截断到总数
func (b *Book) ResizeCopies(newTotal int) error {
	if newTotal < 1 {
		return ErrInvalidCopies
	}
	available := b.AvailableCopies + (newTotal - b.TotalCopies)
	if available < 0 {
		available = 0
	}
	b.TotalCopies = newTotal
	b.AvailableCopies = available
	b.UpdatedAt = time.Now()
	return nil
}
