// Package mq 基于RabbitMQ的事件发布与订阅
//
// 借阅系统把审计事件广播到topic交换机(默认library.activity),
// 路由键为动作名,如book.borrowed、book.returned、penalty.applied。
// 下游的活动日志读取方按需绑定,例如只订阅"penalty.*"。
//
// 发布是审计Worker的一个落地目标,失败由熔断器与审计指标兜底,不影响借还主流程。
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ExchangeTopic topic交换机类型
const ExchangeTopic = "topic"

// ErrPublisherClosed 发布者已关闭
var ErrPublisherClosed = errors.New("publisher is closed")

// Publisher 消息发布者
// amqp.Channel不是并发安全的,Publish通过互斥锁串行化
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	closed   bool
}

// NewPublisher 连接RabbitMQ并声明持久化交换机
func NewPublisher(url, exchange, exchangeType string) (*Publisher, error) {
	conn, channel, err := dial(url, exchange, exchangeType)
	if err != nil {
		return nil, err
	}

	zap.L().Info("消息发布者已创建",
		zap.String("exchange", exchange),
		zap.String("type", exchangeType),
	)

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
	}, nil
}

// Exchange 交换机名称
func (p *Publisher) Exchange() string {
	return p.exchange
}

// Publish 发布JSON消息(持久化投递)
func (p *Publisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	body, err := Encode(message)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("发布消息失败: %w", err)
	}

	zap.L().Debug("消息已发布", zap.String("routing_key", routingKey), zap.Int("bytes", len(body)))
	return nil
}

// Close 关闭Channel与连接
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return closeAll(p.channel, p.conn)
}

// Encode 消息序列化
func Encode(message interface{}) ([]byte, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("消息序列化失败: %w", err)
	}
	return body, nil
}

// Consumer 消息消费者
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// Handler 消息处理函数,返回error时消息重新入队
type Handler func(ctx context.Context, routingKey string, body []byte) error

// NewConsumer 声明持久化队列并按routingKeys绑定到交换机
// topic交换机支持通配符: *匹配一个单词, #匹配零个或多个单词
func NewConsumer(url, exchange, exchangeType, queue string, routingKeys []string) (*Consumer, error) {
	conn, channel, err := dial(url, exchange, exchangeType)
	if err != nil {
		return nil, err
	}

	q, err := channel.QueueDeclare(
		queue,
		true,  // Durable
		false, // AutoDelete
		false, // Exclusive
		false, // NoWait
		nil,
	)
	if err != nil {
		_ = closeAll(channel, conn)
		return nil, fmt.Errorf("声明Queue失败: %w", err)
	}

	for _, routingKey := range routingKeys {
		if err := channel.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
			_ = closeAll(channel, conn)
			return nil, fmt.Errorf("绑定Queue失败: %w", err)
		}
	}

	zap.L().Info("消息消费者已创建",
		zap.String("queue", q.Name),
		zap.Strings("routing_keys", routingKeys),
	)

	return &Consumer{
		conn:    conn,
		channel: channel,
		queue:   q.Name,
	}, nil
}

// Consume 阻塞消费,直到ctx取消或连接关闭
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	// PrefetchCount=1: 处理完一条再取下一条
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("设置Qos失败: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queue,
		"",    // Consumer标签(自动生成)
		false, // AutoAck
		false, // Exclusive
		false, // NoLocal
		false, // NoWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("开始消费失败: %w", err)
	}

	logger := zap.L().With(zap.String("queue", c.queue))
	logger.Info("开始消费消息")

	for {
		select {
		case <-ctx.Done():
			logger.Info("消费者退出")
			return nil

		case msg, ok := <-msgs:
			if !ok {
				return errors.New("消息Channel已关闭")
			}

			if err := handler(ctx, msg.RoutingKey, msg.Body); err != nil {
				logger.Warn("消息处理失败,重新入队", zap.String("routing_key", msg.RoutingKey), zap.Error(err))
				_ = msg.Nack(false, true)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}

// Close 关闭Channel与连接
func (c *Consumer) Close() error {
	return closeAll(c.channel, c.conn)
}

// dial 建立连接、创建Channel并声明交换机(Durable,不自动删除)
func dial(url, exchange, exchangeType string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, exchangeType, true, false, false, false, nil); err != nil {
		_ = closeAll(channel, conn)
		return nil, nil, fmt.Errorf("声明Exchange失败: %w", err)
	}

	return conn, channel, nil
}

func closeAll(channel *amqp.Channel, conn *amqp.Connection) error {
	var errs []error
	if channel != nil {
		if err := channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
