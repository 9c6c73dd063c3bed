package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/library/pkg/metrics"
)

// Metrics HTTP指标中间件
// path使用路由模板(/api/v1/borrow/:bookId),避免按ID产生高基数标签
func Metrics() gin.HandlerFunc {
	metrics.InitMetrics()
	return func(c *gin.Context) {
		metrics.IncGauge(metrics.HTTPRequestsInProgress)
		defer metrics.DecGauge(metrics.HTTPRequestsInProgress)

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		labels := map[string]string{
			"method": c.Request.Method,
			"path":   path,
		}
		metrics.ObserveHistogramVec(metrics.HTTPRequestDuration, labels, time.Since(start).Seconds())

		labels["status"] = strconv.Itoa(c.Writer.Status())
		metrics.IncCounterVec(metrics.HTTPRequestsTotal, labels)
	}
}
