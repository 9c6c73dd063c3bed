//go:build wireinject
// +build wireinject

// Wire依赖注入配置
//
// 修改Provider后运行 `wire gen ./cmd/api` 重新生成wire_gen.go
//
// 依赖链:
// *gin.Engine → Handler → UseCase/Engine → Repository → *gorm.DB → *config.Config

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/application/activity"
	"github.com/xiebiao/library/internal/application/analytics"
	appbook "github.com/xiebiao/library/internal/application/book"
	"github.com/xiebiao/library/internal/application/circulation"
	apploan "github.com/xiebiao/library/internal/application/loan"
	"github.com/xiebiao/library/internal/domain/audit"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/infrastructure/auditlog"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/internal/interface/http/router"
	"github.com/xiebiao/library/pkg/jwt"
)

// infrastructureSet 数据库与Redis连接
var infrastructureSet = wire.NewSet(
	mysql.NewDB,
	redis.NewClient,
)

// repositorySet 仓储与事务
var repositorySet = wire.NewSet(
	mysql.NewBookRepository,
	mysql.NewLoanRepository,
	mysql.NewBorrowerRepository,
	mysql.NewAnalyticsRepository,
	mysql.NewActivityRepository,
	mysql.NewTxManager,
	redis.NewAvailabilityCache,
	redis.NewTokenBlacklist,
	wire.Bind(new(audit.Store), new(*mysql.ActivityRepository)),
	wire.Bind(new(circulation.Transactor), new(*mysql.TxManager)),
	wire.Bind(new(appbook.Transactor), new(*mysql.TxManager)),
	wire.Bind(new(book.AvailabilityCache), new(*redis.AvailabilityCache)),
)

// domainSet 领域服务与借阅规则
var domainSet = wire.NewSet(
	book.NewService,
	providePolicy,
)

// auditSet 审计日志
var auditSet = wire.NewSet(
	provideRecorder,
	wire.Bind(new(audit.Recorder), new(*auditlog.Recorder)),
)

// applicationSet 用例
var applicationSet = wire.NewSet(
	circulation.NewEngine,
	apploan.NewHistoryUseCase,
	appbook.NewAddBookUseCase,
	appbook.NewAdjustCopiesUseCase,
	appbook.NewListBooksUseCase,
	provideAvailabilityUseCase,
	analytics.NewAggregator,
	activity.NewListActivityUseCase,
)

// middlewareSet 认证
var middlewareSet = wire.NewSet(
	provideVerifier,
	middleware.NewAuthMiddleware,
	wire.Bind(new(middleware.TokenVerifier), new(*jwt.Verifier)),
	wire.Bind(new(middleware.RevocationChecker), new(*redis.TokenBlacklist)),
)

// handlerSet HTTP处理器与路由
var handlerSet = wire.NewSet(
	handler.NewBookHandler,
	handler.NewCirculationHandler,
	handler.NewAdminHandler,
	wire.Struct(new(router.Handlers), "*"),
	provideRouterOptions,
	router.New,
)

// InitializeApp 组装整个应用
// 返回的cleanup负责排空审计队列,关闭消息队列与Redis连接
func InitializeApp(cfg *config.Config, logger *zap.Logger) (*gin.Engine, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		auditSet,
		applicationSet,
		middlewareSet,
		handlerSet,
	)
	return nil, nil, nil
}
