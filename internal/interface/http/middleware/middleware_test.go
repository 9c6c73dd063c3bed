package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xiebiao/library/internal/domain/borrower"
	"github.com/xiebiao/library/pkg/jwt"
)

type revokedSet map[string]bool

func (s revokedSet) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	return s[tokenID], nil
}

func newAuthEngine(t *testing.T, blacklist RevocationChecker) (*gin.Engine, *jwt.Verifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier := jwt.NewVerifier("test-secret", "")
	auth := NewAuthMiddleware(verifier, blacklist, zap.NewNop())

	r := gin.New()
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"borrower_id": MustGetBorrowerID(c),
			"role":        GetRole(c),
		})
	})
	r.GET("/admin", auth.RequireAuth(), auth.RequireRole(borrower.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r, verifier
}

func serve(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	revoked := revokedSet{}
	r, verifier := newAuthEngine(t, revoked)

	member, err := verifier.Issue(3, "m@example.com", "成员", "MEMBER", time.Hour)
	require.NoError(t, err)
	admin, err := verifier.Issue(1, "a@example.com", "管理员", "ADMIN", time.Hour)
	require.NoError(t, err)

	t.Run("注入身份", func(t *testing.T) {
		w := serve(r, "/me", member)
		assert.JSONEq(t, `{"borrower_id":3,"role":"MEMBER"}`, w.Body.String())
	})

	t.Run("缺少Bearer前缀", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", member)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Contains(t, w.Body.String(), `"code":40100`)
	})

	t.Run("角色不足", func(t *testing.T) {
		w := serve(r, "/admin", member)
		assert.Contains(t, w.Body.String(), `"code":40104`)
	})

	t.Run("角色满足", func(t *testing.T) {
		w := serve(r, "/admin", admin)
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("黑名单", func(t *testing.T) {
		claims, err := verifier.Verify(admin)
		require.NoError(t, err)
		revoked[claims.ID] = true

		w := serve(r, "/admin", admin)
		assert.Contains(t, w.Body.String(), `"code":40102`)
	})
}

func TestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	t.Run("沿用上游请求ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.Header.Set("X-Request-ID", "req-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "req-1", w.Body.String())
		assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	})

	t.Run("生成请求ID", func(t *testing.T) {
		w := serve(r, "/ok", "")
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("5xx记为Error", func(t *testing.T) {
		serve(r, "/fail", "")
		errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
		require.Len(t, errs, 1)
		assert.Equal(t, "/fail", errs[0].ContextMap()["path"])
	})
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORS(CORSOptions{
		Enabled:       true,
		AllowOrigins:  []string{"http://admin.library.local"},
		AllowMethods:  []string{"GET", "POST", "PUT"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        600,
	}))
	r.GET("/books", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	t.Run("允许的来源", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set("Origin", "http://admin.library.local")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://admin.library.local", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
		assert.Equal(t, "X-Request-ID", w.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("预检请求", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/books", nil)
		req.Header.Set("Origin", "http://admin.library.local")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "GET, POST, PUT", w.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("不允许的来源", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("没有Origin", func(t *testing.T) {
		w := serve(r, "/books", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
