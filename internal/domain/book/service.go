package book

import (
	"context"
	"regexp"
	"strings"
)

// Service 馆藏维护的业务规则
// 借还对库存的修改不经过这里,由借阅引擎在事务内直接调用Repository
type Service interface {
	// AddBook 入库一种新书,可借数量等于馆藏数量
	// ISBN去掉分隔符后为10位或13位,书名作者非空,馆藏至少1本,ISBN不能重复
	AddBook(ctx context.Context, isbn, title, author, genre string, publishedYear, totalCopies int) (*Book, error)

	ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error)
}

type service struct {
	repo Repository
}

// NewService 创建图书领域服务
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) AddBook(ctx context.Context, isbn, title, author, genre string, publishedYear, totalCopies int) (*Book, error) {
	isbn = NormalizeISBN(isbn)
	title, author = strings.TrimSpace(title), strings.TrimSpace(author)

	switch {
	case !validISBN(isbn):
		return nil, ErrInvalidISBN
	case title == "" || author == "":
		return nil, ErrInvalidTitle
	case totalCopies < 1:
		return nil, ErrInvalidCopies
	}

	// 重复ISBN由唯一索引拦截,Repository转换为ErrISBNDuplicate
	b := NewBook(isbn, title, author, strings.TrimSpace(genre), publishedYear, totalCopies)
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) ListBooks(ctx context.Context, params ListParams) ([]*Book, int64, error) {
	return s.repo.List(ctx, params.Normalize())
}

var isbnSeparators = regexp.MustCompile(`[\s-]`)

// NormalizeISBN 去掉空白和连字符并转大写(978-7-115-42802-8 → 9787115428028)
func NormalizeISBN(isbn string) string {
	return strings.ToUpper(isbnSeparators.ReplaceAllString(isbn, ""))
}

// validISBN 只检查位数与字符,不校验校验位;ISBN-10末位允许X
func validISBN(isbn string) bool {
	digits := func(s string) bool {
		return strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0
	}
	switch len(isbn) {
	case 10:
		last := isbn[9]
		return digits(isbn[:9]) && (last == 'X' || (last >= '0' && last <= '9'))
	case 13:
		return digits(isbn)
	}
	return false
}
