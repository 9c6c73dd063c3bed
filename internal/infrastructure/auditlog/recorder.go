// Package auditlog 审计日志异步写入
//
// 借还事务提交后调用Record,事件进入有界队列立即返回;
// 后台Worker依次写入各落地目标(数据库、消息队列),每个目标独立熔断。
// 任何写入失败、队列满、熔断拒绝都只记录日志与指标,不会回传给借还流程。
package auditlog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/audit"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/tracing"
)

// Options 审计Worker配置
type Options struct {
	BufferSize      int           // 队列容量,满时丢弃新事件
	WriteTimeout    time.Duration // 单次写入超时
	BreakerFailures uint32        // 连续失败多少次后熔断
	BreakerTimeout  time.Duration // 熔断持续时间
}

func (o *Options) applyDefaults() {
	if o.BufferSize <= 0 {
		o.BufferSize = 1024
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 5
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = 30 * time.Second
	}
}

// guardedSink 带熔断器的落地目标
type guardedSink struct {
	sink    audit.Sink
	breaker *circuitbreaker.CircuitBreaker
}

// Recorder 审计记录器
type Recorder struct {
	logger *zap.Logger
	opts   Options
	sinks  []guardedSink
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan audit.Entry
	done   chan struct{}
}

var _ audit.Recorder = (*Recorder)(nil)

// NewRecorder 创建审计记录器并启动后台Worker
func NewRecorder(logger *zap.Logger, opts Options, sinks ...audit.Sink) *Recorder {
	metrics.InitMetrics()
	opts.applyDefaults()

	r := &Recorder{
		logger: logger.Named("audit"),
		opts:   opts,
		now:    time.Now,
		queue:  make(chan audit.Entry, opts.BufferSize),
		done:   make(chan struct{}),
	}

	for _, s := range sinks {
		breaker := circuitbreaker.NewCircuitBreaker("audit-"+s.Name(), circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     opts.BreakerTimeout,
			ReadyToTrip: circuitbreaker.ConsecutiveFailures(opts.BreakerFailures),
		})
		breaker.SetStateChangeCallback(r.onBreakerStateChange)
		metrics.SetGaugeVec(metrics.CircuitBreakerState, map[string]string{"name": breaker.Name()}, float64(circuitbreaker.StateClosed))
		r.sinks = append(r.sinks, guardedSink{sink: s, breaker: breaker})
	}

	go r.run()
	return r
}

// Record 追加一条审计事件(不阻塞、不返回错误)
func (r *Recorder) Record(ctx context.Context, borrowerID uint, action audit.Action, entityType string, entityID uint, details string) {
	entry := audit.Entry{
		ID:         uuid.NewString(),
		BorrowerID: borrowerID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  r.now(),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(ctx, entry, "recorder closed")
		return
	}

	select {
	case r.queue <- entry:
		metrics.SetGauge(metrics.AuditQueueDepth, float64(len(r.queue)))
	default:
		r.drop(ctx, entry, "queue full")
	}
}

// Close 停止接收新事件,等待队列中已有事件写完
// ctx到期时直接返回,剩余事件由Worker继续尽力写入
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.logger.Warn("审计队列未写完即退出", zap.Int("pending", len(r.queue)))
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.queue {
		metrics.SetGauge(metrics.AuditQueueDepth, float64(len(r.queue)))
		for _, gs := range r.sinks {
			r.write(gs, entry)
		}
	}
}

// write 写入单个落地目标,错误只记录不返回
func (r *Recorder) write(gs guardedSink, entry audit.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.WriteTimeout)
	defer cancel()

	name := gs.sink.Name()
	err := gs.breaker.Execute(func() error {
		return gs.sink.Write(ctx, entry)
	})

	switch {
	case err == nil:
		metrics.IncCounterVec(metrics.AuditEventsTotal, map[string]string{"sink": name, "result": "persisted"})
		metrics.IncCounterVec(metrics.CircuitBreakerRequests, map[string]string{"name": gs.breaker.Name(), "result": "success"})
	case errors.Is(err, circuitbreaker.ErrOpenState):
		metrics.IncCounterVec(metrics.AuditEventsTotal, map[string]string{"sink": name, "result": "rejected"})
		metrics.IncCounterVec(metrics.CircuitBreakerRequests, map[string]string{"name": gs.breaker.Name(), "result": "rejected"})
		r.logger.Debug("熔断中,跳过审计写入", zap.String("sink", name), zap.String("entry_id", entry.ID))
	default:
		metrics.IncCounterVec(metrics.AuditEventsTotal, map[string]string{"sink": name, "result": "failed"})
		metrics.IncCounterVec(metrics.CircuitBreakerRequests, map[string]string{"name": gs.breaker.Name(), "result": "failure"})
		r.logger.Warn("审计写入失败",
			zap.String("sink", name),
			zap.String("entry_id", entry.ID),
			zap.String("action", string(entry.Action)),
			zap.Uint("borrower_id", entry.BorrowerID),
			zap.Error(err),
		)
	}
}

func (r *Recorder) drop(ctx context.Context, entry audit.Entry, reason string) {
	metrics.IncCounter(metrics.AuditEventsDropped)
	r.logger.Warn("审计事件被丢弃",
		zap.String("reason", reason),
		zap.String("action", string(entry.Action)),
		zap.Uint("borrower_id", entry.BorrowerID),
		zap.Uint("entity_id", entry.EntityID),
		zap.String("trace_id", tracing.ExtractTraceID(ctx)),
	)
}

func (r *Recorder) onBreakerStateChange(name string, from, to circuitbreaker.State) {
	metrics.SetGaugeVec(metrics.CircuitBreakerState, map[string]string{"name": name}, float64(to))
	r.logger.Warn("审计熔断器状态变化",
		zap.String("breaker", name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}
