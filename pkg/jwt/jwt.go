// Package jwt 校验外部认证组件签发的JWT
//
// 借阅服务不负责登录与签发,只信任Token中的借阅者身份与角色
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// Claims 自定义Claims
type Claims struct {
	BorrowerID uint   `json:"borrower_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"` // MEMBER | LIBRARIAN | ADMIN
	jwt.RegisteredClaims
}

// Verifier Token校验器(HS256)
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier 创建校验器,issuer为空时不校验签发方
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Verify 解析并校验Token
// 过期返回ErrTokenExpired,其他失败一律返回ErrInvalidToken
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.BorrowerID == 0 {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// Issue 签发Token
// 生产环境由认证组件签发,这里用于本地联调与测试
func (v *Verifier) Issue(borrowerID uint, email, name, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		BorrowerID: borrowerID,
		Email:      email,
		Name:       name,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    v.issuer,
			Subject:   fmt.Sprintf("%d", borrowerID),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", apperrors.Wrap(err, "签发Token失败")
	}
	return signed, nil
}
