package auditlog

import (
	"context"

	"github.com/xiebiao/library/internal/domain/audit"
	"github.com/xiebiao/library/pkg/metrics"
)

// Publisher 消息发布接口(由pkg/mq.Publisher实现)
type Publisher interface {
	Exchange() string
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// MQSink 把审计事件广播到消息队列,路由键为动作名(book.borrowed)
type MQSink struct {
	publisher Publisher
}

// NewMQSink 创建消息队列落地目标
func NewMQSink(publisher Publisher) *MQSink {
	return &MQSink{publisher: publisher}
}

var _ audit.Sink = (*MQSink)(nil)

// Name Sink名称
func (s *MQSink) Name() string {
	return "mq"
}

// Write 发布事件
func (s *MQSink) Write(ctx context.Context, entry audit.Entry) error {
	routingKey := entry.Action.RoutingKey()
	err := s.publisher.Publish(ctx, routingKey, entry)

	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.IncCounterVec(metrics.MessagesPublishedTotal, map[string]string{
		"exchange":    s.publisher.Exchange(),
		"routing_key": routingKey,
		"result":      result,
	})
	return err
}
