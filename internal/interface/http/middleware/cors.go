package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSOptions 跨域配置(与config.CORSConfig字段一一对应)
type CORSOptions struct {
	Enabled          bool
	AllowOrigins     []string // "*"表示任意来源,AllowCredentials时不能使用
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int // 预检结果缓存秒数
}

// CORS 跨域中间件,供馆员后台页面直接调用API
// 1. Origin不在允许列表中返回403
// 2. 预检请求(OPTIONS)直接返回204
func CORS(opts CORSOptions) gin.HandlerFunc {
	methods := strings.Join(opts.AllowMethods, ", ")
	headers := strings.Join(opts.AllowHeaders, ", ")
	expose := strings.Join(opts.ExposeHeaders, ", ")

	return func(c *gin.Context) {
		if !opts.Enabled {
			c.Next()
			return
		}

		// 非浏览器请求没有Origin
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		allowed := false
		for _, o := range opts.AllowOrigins {
			if o == "*" || o == origin {
				c.Header("Access-Control-Allow-Origin", o)
				allowed = true
				break
			}
		}
		if !allowed {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Header("Vary", "Origin")

		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		if expose != "" {
			c.Header("Access-Control-Expose-Headers", expose)
		}
		if opts.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		if opts.MaxAge > 0 {
			c.Header("Access-Control-Max-Age", strconv.Itoa(opts.MaxAge))
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
