// Package errors 业务错误码
//
// 4xxxx为业务拒绝(请求本身不成立,重试无意义);5xxxx为服务端故障,调用方可以退避重试。
// 接口层统一转成{code, message}信封,Err只写日志不返回给客户端。
package errors

import (
	"errors"
	"fmt"
)

// AppError 带业务码的错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%d] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// IsInternal 是否为服务端故障
func (e *AppError) IsInternal() bool {
	return e.Code >= ErrCodeInternal
}

// New 业务错误
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap 把底层故障(数据库、Redis、消息队列)包装成服务端错误
func Wrap(err error, message string) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message, Err: err}
}

// 业务码
const (
	ErrCodeInternal           = 50000
	ErrCodeInvariantViolation = 50003 // 库存数据一致性被破坏

	ErrCodeUnauthorized = 40100 // 未携带Token
	ErrCodeInvalidToken = 40101
	ErrCodeTokenExpired = 40102 // 过期或已吊销
	ErrCodeForbidden    = 40104 // 角色不足

	ErrCodeBorrowerNotFound = 40401
	ErrCodeBookNotFound     = 40402
	ErrCodeLoanNotFound     = 40403

	ErrCodeNoCopiesAvailable = 40001
	ErrCodeAlreadyBorrowed   = 40002 // 同一本书已有未归还的借阅
	ErrCodeNoActiveBorrow    = 40003
	ErrCodeAlreadyReturned   = 40004
	ErrCodeISBNDuplicate     = 40005

	ErrCodeInvalidParams = 40900
)

var (
	ErrInternal      = New(ErrCodeInternal, "系统繁忙，请稍后重试")
	ErrUnauthorized  = New(ErrCodeUnauthorized, "请先登录")
	ErrInvalidToken  = New(ErrCodeInvalidToken, "无效的Token")
	ErrTokenExpired  = New(ErrCodeTokenExpired, "Token已过期")
	ErrForbidden     = New(ErrCodeForbidden, "无权限访问")
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
)

// GetAppError 取出错误链上的AppError,没有则视为服务端故障
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrInternal.Message)
}

// IsBusinessRejection 是否为业务拒绝(预期内结果,不记错误日志、不重试)
func IsBusinessRejection(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && !appErr.IsInternal()
}
