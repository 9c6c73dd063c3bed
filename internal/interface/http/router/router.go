// Package router 注册HTTP路由
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/borrower"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/response"
)

// Options 路由选项
type Options struct {
	MetricsEnabled bool
	MetricsPath    string
	SwaggerEnabled bool
	CORS           middleware.CORSOptions
}

// Handlers 所有HTTP处理器
type Handlers struct {
	Book        *handler.BookHandler
	Circulation *handler.CirculationHandler
	Admin       *handler.AdminHandler
}

// New 创建Gin引擎并注册路由
//
// 路由一览:
//
//	GET  /ping
//	GET  /api/v1/books/:id/availability          公开
//	POST /api/v1/borrow/:bookId                  登录
//	POST /api/v1/return/:bookId                  登录
//	GET  /api/v1/borrow/history                  登录
//	POST /api/v1/admin/books                     LIBRARIAN
//	GET  /api/v1/admin/books                     LIBRARIAN
//	PUT  /api/v1/admin/books/:id/copies          LIBRARIAN
//	GET  /api/v1/admin/analytics...              ADMIN
//	GET  /api/v1/admin/activity                  ADMIN
func New(opts Options, logger *zap.Logger, auth *middleware.AuthMiddleware, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Tracing(), middleware.Logger(logger), middleware.CORS(opts.CORS))
	if opts.MetricsEnabled {
		r.Use(middleware.Metrics())
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	// 访问 /swagger/index.html 查看API文档,生产环境建议关闭
	if opts.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	{
		// 公开接口
		v1.GET("/books/:id/availability", h.Book.GetAvailability)

		// 借还(登录即可)
		authorized := v1.Group("")
		authorized.Use(auth.RequireAuth())
		{
			authorized.POST("/borrow/:bookId", h.Circulation.Borrow)
			authorized.POST("/return/:bookId", h.Circulation.Return)
			authorized.GET("/borrow/history", h.Circulation.History)
		}

		// 管理接口
		admin := v1.Group("/admin")
		admin.Use(auth.RequireAuth())
		{
			books := admin.Group("/books", auth.RequireRole(borrower.RoleLibrarian))
			{
				books.POST("", h.Book.AddBook)
				books.GET("", h.Book.ListBooks)
				books.PUT("/:id/copies", h.Book.AdjustCopies)
			}

			stats := admin.Group("", auth.RequireRole(borrower.RoleAdmin))
			{
				stats.GET("/analytics", h.Admin.Analytics)
				stats.GET("/analytics/penalties", h.Admin.PenaltyReport)
				stats.GET("/analytics/books/:id", h.Admin.BookPopularity)
				stats.GET("/activity", h.Admin.Activity)
			}
		}
	}

	return r
}
