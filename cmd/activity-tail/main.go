// activity-tail 订阅借还审计事件并输出到日志
//
// 需要api服务开启mq.enabled。用法:
//
//	go run ./cmd/activity-tail            订阅全部事件
//	go run ./cmd/activity-tail penalty.#  只看罚金
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/audit"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/mq"
)

const queueName = "library.activity.tail"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zlog, err := logger.New(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	routingKeys := os.Args[1:]
	if len(routingKeys) == 0 {
		routingKeys = []string{"#"}
	}

	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, "topic", queueName, routingKeys)
	if err != nil {
		zlog.Fatal("创建消费者失败", zap.Error(err))
	}
	defer func() { _ = consumer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = consumer.Consume(ctx, func(_ context.Context, routingKey string, body []byte) error {
		var entry audit.Entry
		if err := json.Unmarshal(body, &entry); err != nil {
			// 格式错误的消息直接确认丢弃
			zlog.Warn("无法解析审计事件", zap.String("routing_key", routingKey), zap.Error(err))
			return nil
		}
		zlog.Info(string(entry.Action),
			zap.String("id", entry.ID),
			zap.Uint("borrower_id", entry.BorrowerID),
			zap.String("entity", entry.EntityType),
			zap.Uint("entity_id", entry.EntityID),
			zap.String("details", entry.Details),
			zap.Time("at", entry.CreatedAt),
		)
		return nil
	})
	if err != nil {
		zlog.Error("消费中断", zap.Error(err))
	}
}
