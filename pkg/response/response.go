// Package response 统一响应信封
//
// 所有接口都返回HTTP 200,成败由信封里的业务码区分(0为成功)。
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// RequestIDKey 请求ID在gin.Context中的键(由日志中间件写入)
const RequestIDKey = "request_id"

// Response 响应信封
type Response struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	write(c, 0, "success", data)
}

// Error 错误响应
// 业务错误原样返回提示;服务端错误记录日志,对外只返回通用提示
//
//	result, err := h.engine.Borrow(ctx, borrowerID, bookID)
//	if err != nil {
//	    response.Error(c, err)
//	    return
//	}
func Error(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)

	message := appErr.Message
	if appErr.IsInternal() {
		zap.L().Error("请求处理失败",
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("code", appErr.Code),
			zap.String("message", appErr.Message),
			zap.Error(appErr.Err),
		)
		message = apperrors.ErrInternal.Message
	}

	write(c, appErr.Code, message, nil)
}

// ErrorWithCode 指定业务码和提示
func ErrorWithCode(c *gin.Context, code int, message string) {
	write(c, code, message, nil)
}

// BindError 请求参数绑定失败
func BindError(c *gin.Context, err error) {
	write(c, apperrors.ErrCodeInvalidParams, "参数错误: "+err.Error(), nil)
}

func write(c *gin.Context, code int, message string, data any) {
	c.JSON(http.StatusOK, Response{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: c.GetString(RequestIDKey),
	})
}

// PageData 分页数据
type PageData struct {
	List       any   `json:"list"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPageData 创建分页数据,pageSize小于1时总页数为0
func NewPageData(list any, total int64, page, pageSize int) *PageData {
	var pages int
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &PageData{
		List:       list,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: pages,
	}
}

// SuccessWithPage 分页成功响应
func SuccessWithPage(c *gin.Context, list any, total int64, page, pageSize int) {
	Success(c, NewPageData(list, total, page, pageSize))
}
