package middleware

import (
	"fmt"
	"testing"
	"time"
)

func TestTokenBucketExhaustion(t *testing.T) {
	tb := NewTokenBucket(3, 0.001) // 补充极慢，考察初始容量
	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("request %d within capacity must pass", i)
		}
	}
	if tb.Allow() {
		t.Fatalf("request beyond capacity must be rejected")
	}
}

func TestSlidingWindowLimit(t *testing.T) {
	sw := NewSlidingWindow(2, time.Minute)
	if !sw.Allow() || !sw.Allow() {
		t.Fatalf("requests within limit must pass")
	}
	if sw.Allow() {
		t.Fatalf("request beyond window limit must be rejected")
	}
}

func TestSlidingWindowExpiry(t *testing.T) {
	sw := NewSlidingWindow(1, 10*time.Millisecond)
	if !sw.Allow() {
		t.Fatalf("first request must pass")
	}
	if sw.Allow() {
		t.Fatalf("second request must be rejected")
	}
	time.Sleep(20 * time.Millisecond)
	if !sw.Allow() {
		t.Fatalf("request after window expiry must pass")
	}
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker(2, 20*time.Millisecond)
	boom := fmt.Errorf("boom")

	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return boom }); err != boom {
			t.Fatalf("expected underlying error, got %v", err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("breaker must open after max failures, state=%s", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != ErrCircuitOpen {
		t.Fatalf("open breaker must reject, got %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	// 半开试探成功 → 关闭
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("half-open probe must run: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("breaker must close after probe success, state=%s", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	boom := fmt.Errorf("boom")

	_ = cb.Execute(func() error { return boom })
	time.Sleep(20 * time.Millisecond)
	_ = cb.Execute(func() error { return boom })
	if cb.State() != StateOpen {
		t.Fatalf("failed probe must reopen, state=%s", cb.State())
	}
}
