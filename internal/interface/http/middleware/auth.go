package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/borrower"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/response"
)

// Context键
const (
	keyBorrowerID = "borrower_id"
	keyEmail      = "email"
	keyName       = "name"
	keyRole       = "role"
)

// TokenVerifier 校验Token(由pkg/jwt.Verifier实现)
type TokenVerifier interface {
	Verify(tokenString string) (*jwt.Claims, error)
}

// RevocationChecker 检查Token是否已被吊销(由redis.TokenBlacklist实现)
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthMiddleware JWT认证中间件
// 设计说明:
// 1. Token由外部认证组件签发,这里只校验签名、有效期与黑名单
// 2. 借阅者身份与角色注入gin.Context,借还引擎只接收身份,不判断角色
// 3. 角色能力检查在路由层通过RequireRole完成
type AuthMiddleware struct {
	verifier  TokenVerifier
	blacklist RevocationChecker
	logger    *zap.Logger
}

// NewAuthMiddleware 创建认证中间件
// blacklist可以为nil(不检查黑名单)
func NewAuthMiddleware(verifier TokenVerifier, blacklist RevocationChecker, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:  verifier,
		blacklist: blacklist,
		logger:    logger,
	}
}

// RequireAuth 要求登录
// 使用方式:
//
//	authorized := r.Group("/api/v1")
//	authorized.Use(authMiddleware.RequireAuth())
//	authorized.POST("/borrow/:bookId", handler.Borrow)
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从Header提取Token
		// 格式:Authorization: Bearer <token>
		tokenString, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || tokenString == "" {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}

		// 2. 校验签名与有效期
		claims, err := m.verifier.Verify(tokenString)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		// 3. 检查黑名单(已登出或被强制下线)
		if m.blacklist != nil {
			revoked, err := m.blacklist.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				m.logger.Error("检查Token黑名单失败", zap.Error(err), zap.String("request_id", GetRequestID(c)))
				response.Error(c, err)
				c.Abort()
				return
			}
			if revoked {
				response.ErrorWithCode(c, apperrors.ErrCodeTokenExpired, "Token已失效，请重新登录")
				c.Abort()
				return
			}
		}

		// 4. 注入身份信息
		role := borrower.Role(claims.Role)
		if !role.Valid() {
			role = borrower.RoleMember
		}
		c.Set(keyBorrowerID, claims.BorrowerID)
		c.Set(keyEmail, claims.Email)
		c.Set(keyName, claims.Name)
		c.Set(keyRole, role)

		c.Next()
	}
}

// RequireRole 要求至少具备某个角色(ADMIN > LIBRARIAN > MEMBER)
// 必须放在RequireAuth之后
func (m *AuthMiddleware) RequireRole(min borrower.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetRole(c).AtLeast(min) {
			response.Error(c, apperrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetBorrowerID 从Context获取当前借阅者ID,未登录返回0
func GetBorrowerID(c *gin.Context) uint {
	if v, exists := c.Get(keyBorrowerID); exists {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// GetRole 从Context获取当前角色
func GetRole(c *gin.Context) borrower.Role {
	if v, exists := c.Get(keyRole); exists {
		if r, ok := v.(borrower.Role); ok {
			return r
		}
	}
	return ""
}

// MustGetBorrowerID 从Context获取借阅者ID(不存在则panic)
// 用于已经通过RequireAuth中间件的Handler
func MustGetBorrowerID(c *gin.Context) uint {
	id := GetBorrowerID(c)
	if id == 0 {
		panic("borrower_id not found in context")
	}
	return id
}
