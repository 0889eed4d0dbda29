package middleware

import (
	"fmt"
	"sync"
	"time"
)

// 熔断器状态
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// ErrCircuitOpen 熔断打开时的拒绝错误
var ErrCircuitOpen = fmt.Errorf("circuit breaker is open")

// CircuitBreaker 简单计数熔断器：
// 连续失败达到阈值后打开，冷却期过后进入半开试探，成功即关闭。
type CircuitBreaker struct {
	mu           sync.Mutex
	state        string
	failures     int
	maxFailures  int
	cooldown     time.Duration
	openedAt     time.Time
	halfOpenBusy bool
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		state:       StateClosed,
		maxFailures: maxFailures,
		cooldown:    cooldown,
	}
}

// Execute 在熔断器保护下执行 fn
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb == nil {
		return fn()
	}
	if err := cb.beforeCall(); err != nil {
		return err
	}
	err := fn()
	cb.afterCall(err)
	return err
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.openedAt) < cb.cooldown {
			return ErrCircuitOpen
		}
		// 冷却期结束，放一个请求试探
		cb.state = StateHalfOpen
		cb.halfOpenBusy = true
		return nil
	case StateHalfOpen:
		if cb.halfOpenBusy {
			return ErrCircuitOpen
		}
		cb.halfOpenBusy = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.halfOpenBusy = false
		if err != nil {
			cb.state = StateOpen
			cb.openedAt = time.Now()
			return
		}
		cb.state = StateClosed
		cb.failures = 0
		return
	}

	if err != nil {
		cb.failures++
		if cb.failures >= cb.maxFailures {
			cb.state = StateOpen
			cb.openedAt = time.Now()
		}
		return
	}
	cb.failures = 0
}

// State 当前状态（测试与观测用）
func (cb *CircuitBreaker) State() string {
	if cb == nil {
		return StateClosed
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
