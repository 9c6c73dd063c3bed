package book

import (
	"context"

	"github.com/xiebiao/library/internal/domain/book"
)

// AddBookUseCase 图书入藏用例
// 设计说明:
// 1. 应用层负责用例编排,ISBN校验、重复检查由领域服务完成
// 2. 新书的可借数量等于馆藏总数
type AddBookUseCase struct {
	bookService book.Service
}

// NewAddBookUseCase 创建入藏用例
func NewAddBookUseCase(bookService book.Service) *AddBookUseCase {
	return &AddBookUseCase{
		bookService: bookService,
	}
}

// AddBookRequest 入藏请求DTO
type AddBookRequest struct {
	ISBN          string // ISBN号
	Title         string // 书名
	Author        string // 作者
	Genre         string // 分类
	PublishedYear int    // 出版年份
	TotalCopies   int    // 馆藏数量
}

// Execute 执行入藏用例
func (uc *AddBookUseCase) Execute(ctx context.Context, req AddBookRequest) (*BookItem, error) {
	b, err := uc.bookService.AddBook(
		ctx,
		req.ISBN,
		req.Title,
		req.Author,
		req.Genre,
		req.PublishedYear,
		req.TotalCopies,
	)
	if err != nil {
		return nil, err
	}

	item := toBookItem(b)
	return &item, nil
}
