package middleware

import (
	"sync"
	"time"
)

// TokenBucket 令牌桶限流器：capacity 为桶容量，rate 为每秒补充令牌数。
type TokenBucket struct {
	mu       sync.Mutex
	capacity float64
	rate     float64
	tokens   float64
	last     time.Time
}

// NewTokenBucket 创建令牌桶，初始为满。
func NewTokenBucket(capacity, rate float64) *TokenBucket {
	if capacity <= 0 {
		capacity = 1
	}
	if rate <= 0 {
		rate = 1
	}
	return &TokenBucket{
		capacity: capacity,
		rate:     rate,
		tokens:   capacity,
		last:     time.Now(),
	}
}

// Allow 尝试取一个令牌
func (tb *TokenBucket) Allow() bool {
	if tb == nil {
		return true
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.last).Seconds()
	tb.last = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}

// SlidingWindow 滑动窗口限流器：window 时间内最多 limit 次。
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   []time.Time
}

// NewSlidingWindow 创建滑动窗口限流器
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &SlidingWindow{limit: limit, window: window}
}

// Allow 尝试记录一次请求
func (sw *SlidingWindow) Allow() bool {
	if sw == nil {
		return true
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-sw.window)

	kept := sw.hits[:0]
	for _, t := range sw.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	sw.hits = kept

	if len(sw.hits) >= sw.limit {
		return false
	}
	sw.hits = append(sw.hits, now)
	return true
}
