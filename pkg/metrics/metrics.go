// Package metrics 提供基于Prometheus的指标收集
//
// 指标分组:
//   - HTTP: 请求数、耗时、处理中的请求数
//   - 借还: 按操作与结果计数、耗时分布、罚金分布、截断与不变式破坏次数
//   - 审计: 各落地目标的写入结果、队列丢弃数、队列深度
//   - 熔断器: 状态与请求结果
//   - 消息队列: 发布数
//
// 使用示例:
//
//	metrics.InitMetrics()
//	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
//	start := time.Now()
//	loan, err := engine.Borrow(ctx, borrowerID, bookID)
//	metrics.ObserveHistogramVec(metrics.CirculationDuration, map[string]string{"operation": "borrow"}, time.Since(start).Seconds())
//
// 命名规范: Counter以_total结尾,Histogram以单位结尾(_seconds、_cents)
// 标签只使用有限取值(operation、result、sink),不要使用borrower_id、book_id等高基数字段
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	initOnce sync.Once

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数
	// 标签：method、path（路由模板）、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress prometheus.Gauge

	// 借还指标

	// CirculationOpsTotal 借还操作总数
	// 标签：operation（borrow/return）、result（success/book_not_found/no_copies/already_borrowed/no_active_borrow/invariant_violation/error）
	CirculationOpsTotal *prometheus.CounterVec

	// CirculationDuration 借还事务耗时
	CirculationDuration *prometheus.HistogramVec

	// PenaltyAssessedCents 归还时产生的罚金分布（分）
	PenaltyAssessedCents prometheus.Histogram

	// InventoryClampsTotal 归还时可借数量被截断到馆藏总数的次数
	InventoryClampsTotal prometheus.Counter

	// InvariantViolationsTotal 检测到库存不变式被破坏的次数(应始终为0)
	InvariantViolationsTotal prometheus.Counter

	// 审计指标

	// AuditEventsTotal 审计事件写入结果
	// 标签：sink（database/mq）、result（persisted/failed/rejected）
	AuditEventsTotal *prometheus.CounterVec

	// AuditEventsDropped 队列已满被丢弃的审计事件数
	AuditEventsDropped prometheus.Counter

	// AuditQueueDepth 审计队列当前长度
	AuditQueueDepth prometheus.Gauge

	// 熔断器指标

	// CircuitBreakerState 熔断器状态
	// 0=CLOSED, 1=OPEN, 2=HALF_OPEN
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数
	// 标签：name、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// 消息队列指标

	// MessagesPublishedTotal 消息发布总数
	// 标签：exchange、routing_key、result（success/failure）
	MessagesPublishedTotal *prometheus.CounterVec
)

// InitMetrics 初始化所有Prometheus指标
// 使用promauto注册到默认Registry,多次调用只注册一次
func InitMetrics() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "正在处理的HTTP请求数",
		},
	)

	CirculationOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circulation_operations_total",
			Help: "借还操作总数",
		},
		[]string{"operation", "result"},
	)

	CirculationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "circulation_duration_seconds",
			Help: "借还事务耗时（秒）",
			// 单行锁 + 3~4条语句,正常在毫秒级
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)

	PenaltyAssessedCents = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "circulation_penalty_assessed_cents",
			Help:    "归还时产生的罚金（分）",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500},
		},
	)

	InventoryClampsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_clamps_total",
			Help: "归还时可借数量被截断到馆藏总数的次数",
		},
	)

	InvariantViolationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_invariant_violations_total",
			Help: "检测到库存不变式被破坏的次数",
		},
	)

	AuditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "审计事件写入结果",
		},
		[]string{"sink", "result"},
	)

	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_dropped_total",
			Help: "审计队列已满被丢弃的事件数",
		},
	)

	AuditQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_queue_depth",
			Help: "审计队列当前长度",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		},
		[]string{"exchange", "routing_key", "result"},
	)
}

// IncCounter 递增Counter（便捷函数）
func IncCounter(counter prometheus.Counter) {
	counter.Inc()
}

// IncCounterVec 递增CounterVec（带标签）
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

// IncGauge 递增Gauge
func IncGauge(gauge prometheus.Gauge) {
	gauge.Inc()
}

// DecGauge 递减Gauge
func DecGauge(gauge prometheus.Gauge) {
	gauge.Dec()
}

// SetGauge 设置Gauge值
func SetGauge(gauge prometheus.Gauge, value float64) {
	gauge.Set(value)
}

// SetGaugeVec 设置GaugeVec值（带标签）
func SetGaugeVec(gauge *prometheus.GaugeVec, labels map[string]string, value float64) {
	gauge.With(labels).Set(value)
}

// ObserveHistogram 记录Histogram观测值
func ObserveHistogram(histogram prometheus.Histogram, value float64) {
	histogram.Observe(value)
}

// ObserveHistogramVec 记录HistogramVec观测值（带标签）
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}
