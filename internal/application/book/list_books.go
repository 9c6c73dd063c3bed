package book

import (
	"context"
	"time"

	"github.com/xiebiao/library/internal/domain/book"
)

// ListBooksUseCase 馆藏列表(管理端)
type ListBooksUseCase struct {
	bookService book.Service
}

func NewListBooksUseCase(bookService book.Service) *ListBooksUseCase {
	return &ListBooksUseCase{bookService: bookService}
}

// ListBooksRequest 列表查询请求
type ListBooksRequest struct {
	Page     int
	PageSize int
	Keyword  string
	Genre    string
}

// BookItem 图书DTO
type BookItem struct {
	ID              uint   `json:"id"`
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Genre           string `json:"genre"`
	PublishedYear   int    `json:"published_year"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	BorrowCount     int    `json:"borrow_count"`
	CreatedAt       string `json:"created_at"`
}

// ListBooksResponse 列表查询响应DTO
type ListBooksResponse struct {
	List       []BookItem `json:"list"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

// Execute 分页查询馆藏,可按关键词(书名或作者)和分类过滤
func (uc *ListBooksUseCase) Execute(ctx context.Context, req ListBooksRequest) (*ListBooksResponse, error) {
	params := book.ListParams{
		Page:     req.Page,
		PageSize: req.PageSize,
		Keyword:  req.Keyword,
		Genre:    req.Genre,
	}.Normalize()

	books, total, err := uc.bookService.ListBooks(ctx, params)
	if err != nil {
		return nil, err
	}

	list := make([]BookItem, 0, len(books))
	for _, b := range books {
		list = append(list, toBookItem(b))
	}

	return &ListBooksResponse{
		List:       list,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: int((total + int64(params.PageSize) - 1) / int64(params.PageSize)),
	}, nil
}

func toBookItem(b *book.Book) BookItem {
	return BookItem{
		ID:              b.ID,
		ISBN:            b.ISBN,
		Title:           b.Title,
		Author:          b.Author,
		Genre:           b.Genre,
		PublishedYear:   b.PublishedYear,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
		BorrowCount:     b.BorrowCount,
		CreatedAt:       b.CreatedAt.Format(time.DateTime),
	}
}
