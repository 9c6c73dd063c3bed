package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/library/pkg/response"
	"github.com/xiebiao/library/pkg/tracing"
)

const keyRequestID = response.RequestIDKey

// slowRequestThreshold 慢请求阈值
const slowRequestThreshold = 3 * time.Second

// Logger 请求日志中间件
// 1. 生成请求ID(优先沿用上游传入的X-Request-ID)
// 2. 记录方法、路由、状态码、耗时、客户端IP
// 3. 不记录请求体与Authorization头
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 请求ID
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(keyRequestID, requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()

		// 2. 处理请求
		c.Next()

		// 3. 记录请求信息
		latency := time.Since(start)
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if traceID := tracing.ExtractTraceID(c.Request.Context()); traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		if borrowerID := GetBorrowerID(c); borrowerID != 0 {
			fields = append(fields, zap.Uint("borrower_id", borrowerID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request", fields...)
		case latency > slowRequestThreshold:
			logger.Warn("slow request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// GetRequestID 从Context获取请求ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(keyRequestID)
}
