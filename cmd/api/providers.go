package main

import (
	"context"

	"go.uber.org/zap"

	appbook "github.com/xiebiao/library/internal/application/book"
	"github.com/xiebiao/library/internal/domain/audit"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/penalty"
	"github.com/xiebiao/library/internal/infrastructure/auditlog"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/internal/interface/http/router"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/mq"
)

// providePolicy 借阅规则(启动时读取一次)
func providePolicy(cfg *config.Config) penalty.Policy {
	return cfg.Circulation.Policy()
}

// provideVerifier Token校验器
func provideVerifier(cfg *config.Config) *jwt.Verifier {
	return jwt.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
}

// provideAvailabilityUseCase 可借数量查询,缓存TTL来自redis配置段
func provideAvailabilityUseCase(cfg *config.Config, books book.Repository, cache book.AvailabilityCache, logger *zap.Logger) *appbook.GetAvailabilityUseCase {
	return appbook.NewGetAvailabilityUseCase(books, cache, cfg.Redis.AvailabilityTTL, logger)
}

// provideRouterOptions 路由选项
func provideRouterOptions(cfg *config.Config) router.Options {
	return router.Options{
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		SwaggerEnabled: cfg.Server.Mode != "release",
		CORS: middleware.CORSOptions{
			Enabled:          cfg.CORS.Enabled,
			AllowOrigins:     cfg.CORS.AllowOrigins,
			AllowMethods:     cfg.CORS.AllowMethods,
			AllowHeaders:     cfg.CORS.AllowHeaders,
			ExposeHeaders:    cfg.CORS.ExposeHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		},
	}
}

// provideRecorder 审计记录器
// 1. 数据库是必选落地目标
// 2. mq.enabled时额外广播到消息队列,连接失败只告警,不阻止启动
func provideRecorder(cfg *config.Config, logger *zap.Logger, activities *mysql.ActivityRepository) (*auditlog.Recorder, func(), error) {
	sinks := []audit.Sink{activities}

	var publisher *mq.Publisher
	if cfg.MQ.Enabled {
		p, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, "topic")
		if err != nil {
			logger.Warn("连接消息队列失败,审计事件只写数据库", zap.Error(err))
		} else {
			publisher = p
			sinks = append(sinks, auditlog.NewMQSink(p))
		}
	}

	recorder := auditlog.NewRecorder(logger, auditlog.Options{
		BufferSize:      cfg.Audit.BufferSize,
		WriteTimeout:    cfg.Audit.WriteTimeout,
		BreakerFailures: uint32(cfg.Audit.BreakerFailures),
		BreakerTimeout:  cfg.Audit.BreakerTimeout,
	}, sinks...)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := recorder.Close(ctx); err != nil {
			logger.Warn("审计队列未排空", zap.Error(err))
		}
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				logger.Warn("关闭消息队列连接失败", zap.Error(err))
			}
		}
	}
	return recorder, cleanup, nil
}
