// Package circuitbreaker 熔断器
//
// 包裹借还主流程之外的慢依赖(活动日志落库、消息投递)。
// 连续失败达到阈值后熔断,冷却期内的调用直接返回ErrOpenState;
// 冷却结束后放行少量探测调用,全部成功才恢复。
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpenState 熔断中(或半开状态下探测名额已用完)
var ErrOpenState = errors.New("circuit breaker is open")

// State 熔断器状态,数值直接作为监控指标输出
type State int

const (
	StateClosed   State = iota // 正常放行
	StateOpen                  // 熔断
	StateHalfOpen              // 探测
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	}
	return "UNKNOWN"
}

// Counts 当前统计周期内的调用计数
type Counts struct {
	Requests             uint32
	Failures             uint32
	ConsecutiveFailures  uint32
	ConsecutiveSuccesses uint32
}

func (c *Counts) record(ok bool) {
	c.Requests++
	if ok {
		c.ConsecutiveSuccesses++
		c.ConsecutiveFailures = 0
		return
	}
	c.Failures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// Config 熔断器配置
type Config struct {
	// MaxRequests 半开状态的探测名额,也是恢复所需的连续成功次数,0按1处理
	MaxRequests uint32
	// Interval 关闭状态下计数清零的周期,0表示不清零
	Interval time.Duration
	// Timeout 熔断冷却时间,0按60秒处理
	Timeout time.Duration
	// ReadyToTrip 每次失败后调用,返回true则熔断;nil时连续失败5次熔断
	ReadyToTrip func(Counts) bool
}

// ConsecutiveFailures 连续失败n次即熔断
func ConsecutiveFailures(n uint32) func(Counts) bool {
	if n == 0 {
		n = 1
	}
	return func(c Counts) bool { return c.ConsecutiveFailures >= n }
}

// CircuitBreaker 熔断器,并发安全
type CircuitBreaker struct {
	name     string
	cfg      Config
	now      func() time.Time
	onChange func(name string, from, to State)

	mu       sync.Mutex
	state    State
	counts   Counts
	epoch    uint64    // 每次状态切换或计数清零加一,旧周期的调用结果作废
	deadline time.Time // 关闭状态:计数清零时间;熔断状态:冷却结束时间
	probes   uint32    // 半开状态已放行的探测数
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(name string, cfg Config) *CircuitBreaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = ConsecutiveFailures(5)
	}
	cb := &CircuitBreaker{name: name, cfg: cfg, now: time.Now}
	cb.resetLocked(cb.now())
	return cb
}

// Name 名称(用作监控标签)
func (cb *CircuitBreaker) Name() string { return cb.name }

// SetStateChangeCallback 设置状态切换回调,回调在锁内同步执行,不要在回调里调用熔断器
func (cb *CircuitBreaker) SetStateChangeCallback(fn func(name string, from, to State)) {
	cb.mu.Lock()
	cb.onChange = fn
	cb.mu.Unlock()
}

// State 当前状态(会推进到期的状态切换)
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advanceLocked(cb.now())
	return cb.state
}

// Counts 当前统计周期的计数
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advanceLocked(cb.now())
	return cb.counts
}

// Execute 在熔断器保护下执行fn
// 熔断中不调用fn,直接返回ErrOpenState;fn发生panic按失败计数后继续向上抛出
func (cb *CircuitBreaker) Execute(fn func() error) (err error) {
	epoch, err := cb.acquire()
	if err != nil {
		return err
	}

	ok := false
	defer func() {
		cb.release(epoch, ok)
	}()

	err = fn()
	ok = err == nil
	return err
}

func (cb *CircuitBreaker) acquire() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.advanceLocked(cb.now())
	switch cb.state {
	case StateOpen:
		return 0, ErrOpenState
	case StateHalfOpen:
		if cb.probes >= cb.cfg.MaxRequests {
			return 0, ErrOpenState
		}
		cb.probes++
	}
	return cb.epoch, nil
}

func (cb *CircuitBreaker) release(epoch uint64, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cb.advanceLocked(now)
	if epoch != cb.epoch {
		return
	}

	cb.counts.record(ok)
	switch cb.state {
	case StateClosed:
		if !ok && cb.cfg.ReadyToTrip(cb.counts) {
			cb.switchLocked(StateOpen, now)
		}
	case StateHalfOpen:
		if !ok {
			cb.switchLocked(StateOpen, now)
		} else if cb.counts.ConsecutiveSuccesses >= cb.cfg.MaxRequests {
			cb.switchLocked(StateClosed, now)
		}
	}
}

// advanceLocked 处理随时间发生的切换:冷却结束进入半开,关闭状态按周期清零
func (cb *CircuitBreaker) advanceLocked(now time.Time) {
	if cb.deadline.IsZero() || now.Before(cb.deadline) {
		return
	}
	switch cb.state {
	case StateOpen:
		cb.switchLocked(StateHalfOpen, now)
	case StateClosed:
		cb.resetLocked(now)
	}
}

func (cb *CircuitBreaker) switchLocked(to State, now time.Time) {
	from := cb.state
	cb.state = to
	cb.resetLocked(now)
	if cb.onChange != nil {
		cb.onChange(cb.name, from, to)
	}
}

func (cb *CircuitBreaker) resetLocked(now time.Time) {
	cb.epoch++
	cb.counts = Counts{}
	cb.probes = 0
	cb.deadline = time.Time{}
	switch cb.state {
	case StateOpen:
		cb.deadline = now.Add(cb.cfg.Timeout)
	case StateClosed:
		if cb.cfg.Interval > 0 {
			cb.deadline = now.Add(cb.cfg.Interval)
		}
	}
}
