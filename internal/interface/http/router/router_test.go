package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/application/activity"
	"github.com/xiebiao/library/internal/application/analytics"
	appbook "github.com/xiebiao/library/internal/application/book"
	"github.com/xiebiao/library/internal/application/circulation"
	apploan "github.com/xiebiao/library/internal/application/loan"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/penalty"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql/mysqltest"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/jwt"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	engine    *gin.Engine
	verifier  *jwt.Verifier
	blacklist *redis.TokenBlacklist
	books     book.Repository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := mysqltest.NewDB(t)
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zap.NewNop()
	books := mysql.NewBookRepository(db)
	loans := mysql.NewLoanRepository(db)
	borrowers := mysql.NewBorrowerRepository(db)
	activities := mysql.NewActivityRepository(db)
	tx := mysql.NewTxManager(db)
	cache := redis.NewAvailabilityCache(client)
	blacklist := redis.NewTokenBlacklist(client)
	verifier := jwt.NewVerifier("test-secret", "library-auth")
	policy := penalty.DefaultPolicy()
	bookService := book.NewService(books)

	engine := circulation.NewEngine(books, loans, borrowers, tx, policy, nil, cache, logger)

	h := Handlers{
		Book: handler.NewBookHandler(
			appbook.NewAddBookUseCase(bookService),
			appbook.NewAdjustCopiesUseCase(books, tx, cache, logger),
			appbook.NewListBooksUseCase(bookService),
			appbook.NewGetAvailabilityUseCase(books, cache, time.Minute, logger),
		),
		Circulation: handler.NewCirculationHandler(engine, apploan.NewHistoryUseCase(loans, books, policy)),
		Admin: handler.NewAdminHandler(
			analytics.NewAggregator(mysql.NewAnalyticsRepository(db), books, loans),
			activity.NewListActivityUseCase(activities),
		),
	}
	auth := middleware.NewAuthMiddleware(verifier, blacklist, logger)

	return &testServer{
		engine:    New(Options{MetricsEnabled: true}, logger, auth, h),
		verifier:  verifier,
		blacklist: blacklist,
		books:     books,
	}
}

func (s *testServer) token(t *testing.T, borrowerID uint, role string) string {
	t.Helper()
	token, err := s.verifier.Issue(borrowerID, "reader@example.com", "读者", role, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *testServer) seedBook(t *testing.T, copies int) uint {
	t.Helper()
	b := book.NewBook("9787536692930", "三体", "刘慈欣", "SciFi", 2008, copies)
	require.NoError(t, s.books.Create(context.Background(), b))
	return b.ID
}

func TestRouter_Ping(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, 0, resp.Code)
}

func TestRouter_BorrowAndReturn(t *testing.T) {
	s := newTestServer(t)
	bookID := s.seedBook(t, 2)
	alice := s.token(t, 1, "MEMBER")
	bob := s.token(t, 2, "MEMBER")
	carol := s.token(t, 3, "MEMBER")

	t.Run("未登录", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/borrow/1", "", nil)
		assert.Equal(t, apperrors.ErrCodeUnauthorized, resp.Code)
	})

	t.Run("图书ID非法", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/borrow/abc", alice, nil)
		assert.Equal(t, apperrors.ErrCodeInvalidParams, resp.Code)
	})

	t.Run("借阅成功", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/borrow/1", alice, nil)
		require.Equal(t, 0, resp.Code, resp.Message)

		var loan struct {
			BookID          uint    `json:"book_id"`
			Title           string  `json:"title"`
			ReturnedAt      *string `json:"returned_at"`
			AvailableCopies int     `json:"available_copies"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &loan))
		assert.Equal(t, bookID, loan.BookID)
		assert.Equal(t, "三体", loan.Title)
		assert.Nil(t, loan.ReturnedAt)
		assert.Equal(t, 1, loan.AvailableCopies)
	})

	t.Run("重复借阅", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/borrow/1", alice, nil)
		assert.Equal(t, apperrors.ErrCodeAlreadyBorrowed, resp.Code)
	})

	t.Run("借走最后一本", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/borrow/1", bob, nil)
		require.Equal(t, 0, resp.Code, resp.Message)

		var loan struct {
			AvailableCopies int `json:"available_copies"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &loan))
		assert.Equal(t, 0, loan.AvailableCopies)
	})

	t.Run("无可借副本", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/borrow/1", carol, nil)
		assert.Equal(t, apperrors.ErrCodeNoCopiesAvailable, resp.Code)
	})

	t.Run("未借阅不能归还", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/return/1", carol, nil)
		assert.Equal(t, apperrors.ErrCodeNoActiveBorrow, resp.Code)
	})

	t.Run("图书不存在", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/borrow/999", carol, nil)
		assert.Equal(t, apperrors.ErrCodeBookNotFound, resp.Code)
	})

	t.Run("按时归还", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/return/1", alice, nil)
		require.Equal(t, 0, resp.Code, resp.Message)

		var loan struct {
			ReturnedAt      *string `json:"returned_at"`
			Penalty         int64   `json:"penalty"`
			AvailableCopies int     `json:"available_copies"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &loan))
		assert.NotNil(t, loan.ReturnedAt)
		assert.Zero(t, loan.Penalty)
		assert.Equal(t, 1, loan.AvailableCopies)
	})

	t.Run("借阅历史", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/borrow/history?status=returned", alice, nil)
		require.Equal(t, 0, resp.Code, resp.Message)

		var page struct {
			List  []json.RawMessage `json:"list"`
			Total int64             `json:"total"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &page))
		assert.Equal(t, int64(1), page.Total)
		assert.Len(t, page.List, 1)

		resp = s.do(t, http.MethodGet, "/api/v1/borrow/history?status=lost", alice, nil)
		assert.Equal(t, apperrors.ErrCodeInvalidParams, resp.Code)
	})

	t.Run("公开查询可借数量", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/books/1/availability", "", nil)
		require.Equal(t, 0, resp.Code, resp.Message)

		var avail struct {
			AvailableCopies int `json:"available_copies"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &avail))
		assert.Equal(t, 1, avail.AvailableCopies)
	})
}

func TestRouter_Auth(t *testing.T) {
	s := newTestServer(t)

	t.Run("Token无效", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/borrow/history", "not-a-jwt", nil)
		assert.Equal(t, apperrors.ErrCodeInvalidToken, resp.Code)
	})

	t.Run("Token已吊销", func(t *testing.T) {
		token := s.token(t, 1, "MEMBER")
		claims, err := s.verifier.Verify(token)
		require.NoError(t, err)
		require.NoError(t, s.blacklist.Revoke(context.Background(), claims.ID, time.Hour))

		resp := s.do(t, http.MethodGet, "/api/v1/borrow/history", token, nil)
		assert.Equal(t, apperrors.ErrCodeTokenExpired, resp.Code)
	})

	t.Run("普通借阅者不能管理馆藏", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/admin/books", s.token(t, 1, "MEMBER"), nil)
		assert.Equal(t, apperrors.ErrCodeForbidden, resp.Code)
	})

	t.Run("馆员不能查看统计", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/admin/analytics", s.token(t, 2, "LIBRARIAN"), nil)
		assert.Equal(t, apperrors.ErrCodeForbidden, resp.Code)
	})

	t.Run("未知角色按普通借阅者处理", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/admin/books", s.token(t, 3, "ROOT"), nil)
		assert.Equal(t, apperrors.ErrCodeForbidden, resp.Code)
	})
}

func TestRouter_AdminBooks(t *testing.T) {
	s := newTestServer(t)
	librarian := s.token(t, 9, "LIBRARIAN")

	resp := s.do(t, http.MethodPost, "/api/v1/admin/books", librarian, map[string]interface{}{
		"isbn":           "978-7-5366-9293-0",
		"title":          "三体",
		"author":         "刘慈欣",
		"genre":          "SciFi",
		"published_year": 2008,
		"total_copies":   2,
	})
	require.Equal(t, 0, resp.Code, resp.Message)

	var item appbook.BookItem
	require.NoError(t, json.Unmarshal(resp.Data, &item))
	assert.Equal(t, "9787536692930", item.ISBN)
	assert.Equal(t, 2, item.AvailableCopies)

	t.Run("参数错误", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/admin/books", librarian, map[string]interface{}{
			"title": "缺少ISBN",
		})
		assert.Equal(t, apperrors.ErrCodeInvalidParams, resp.Code)
	})

	t.Run("ISBN重复", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/api/v1/admin/books", librarian, map[string]interface{}{
			"isbn":         "9787536692930",
			"title":        "三体",
			"author":       "刘慈欣",
			"total_copies": 1,
		})
		assert.Equal(t, apperrors.ErrCodeISBNDuplicate, resp.Code)
	})

	t.Run("调整馆藏总数", func(t *testing.T) {
		resp := s.do(t, http.MethodPut, "/api/v1/admin/books/1/copies", librarian, map[string]interface{}{
			"total_copies": 5,
		})
		require.Equal(t, 0, resp.Code, resp.Message)

		var adjusted appbook.BookItem
		require.NoError(t, json.Unmarshal(resp.Data, &adjusted))
		assert.Equal(t, 5, adjusted.TotalCopies)
		assert.Equal(t, 5, adjusted.AvailableCopies)
	})

	t.Run("馆藏列表", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/admin/books?genre=SciFi", librarian, nil)
		require.Equal(t, 0, resp.Code, resp.Message)

		var page struct {
			Total int64 `json:"total"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &page))
		assert.Equal(t, int64(1), page.Total)
	})
}

func TestRouter_AdminAnalytics(t *testing.T) {
	s := newTestServer(t)
	bookID := s.seedBook(t, 2)
	admin := s.token(t, 1, "ADMIN")

	resp := s.do(t, http.MethodPost, "/api/v1/borrow/1", s.token(t, 5, "MEMBER"), nil)
	require.Equal(t, 0, resp.Code, resp.Message)

	t.Run("统计总览", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/admin/analytics?days=7", admin, nil)
		require.Equal(t, 0, resp.Code, resp.Message)

		var data struct {
			Overview struct {
				TotalBooks     int64 `json:"total_books"`
				TotalBorrowers int64 `json:"total_borrowers"`
				ActiveLoans    int64 `json:"active_loans"`
			} `json:"overview"`
			ActiveBorrowers []struct {
				BorrowerID uint  `json:"borrower_id"`
				Loans      int64 `json:"loans"`
			} `json:"active_borrowers"`
			Trends []json.RawMessage `json:"trends"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, int64(1), data.Overview.TotalBooks)
		assert.Equal(t, int64(1), data.Overview.TotalBorrowers)
		assert.Equal(t, int64(1), data.Overview.ActiveLoans)
		require.Len(t, data.ActiveBorrowers, 1)
		assert.Equal(t, uint(5), data.ActiveBorrowers[0].BorrowerID)
		assert.Equal(t, int64(1), data.ActiveBorrowers[0].Loans)
		assert.Len(t, data.Trends, 7)
	})

	t.Run("罚金报表", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/admin/analytics/penalties", admin, nil)
		assert.Equal(t, 0, resp.Code, resp.Message)
	})

	t.Run("单本图书", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/admin/analytics/books/1", admin, nil)
		require.Equal(t, 0, resp.Code, resp.Message)

		var data struct {
			Book struct {
				BookID uint `json:"book_id"`
			} `json:"book"`
			CurrentlyBorrowed int `json:"currently_borrowed"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &data))
		assert.Equal(t, bookID, data.Book.BookID)
		assert.Equal(t, 1, data.CurrentlyBorrowed)

		resp = s.do(t, http.MethodGet, "/api/v1/admin/analytics/books/404", admin, nil)
		assert.Equal(t, apperrors.ErrCodeBookNotFound, resp.Code)
	})

	t.Run("活动日志", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/api/v1/admin/activity?limit=10", admin, nil)
		assert.Equal(t, 0, resp.Code, resp.Message)

		resp = s.do(t, http.MethodGet, "/api/v1/admin/activity?action=DELETED", admin, nil)
		assert.Equal(t, apperrors.ErrCodeInvalidParams, resp.Code)
	})
}
