package util

import (
	"context"
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	// 10 tokens per second, burst of 2
	l := NewLimiter(10, 2)

	if !l.Allow(1) {
		t.Error("expected first token to be allowed")
	}
	if !l.Allow(1) {
		t.Error("expected second token to be allowed (burst)")
	}
	if l.Allow(1) {
		t.Error("expected third token to be rejected (burst exhausted)")
	}

	time.Sleep(150 * time.Millisecond)
	if !l.Allow(1) {
		t.Error("expected token to be refilled after wait")
	}
}

func TestLimiterWaitHonoursContext(t *testing.T) {
	l := NewLimiter(0.1, 1)
	if !l.Allow(1) {
		t.Fatal("expected burst token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, 1); err == nil {
		t.Fatal("expected wait to fail once the context deadline is shorter than the refill")
	}
}

func TestLimiterAcquire(t *testing.T) {
	l := NewLimiter(50, 1)

	throttled, err := l.Acquire(context.Background())
	if err != nil || throttled {
		t.Fatalf("expected immediate token, throttled=%v err=%v", throttled, err)
	}

	start := time.Now()
	throttled, err = l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !throttled {
		t.Fatal("expected second acquire to be throttled")
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("expected throttled acquire to wait for a refill")
	}
}

func TestLimiterNilAndUnlimited(t *testing.T) {
	var l *Limiter
	if throttled, err := l.Acquire(context.Background()); throttled || err != nil {
		t.Fatalf("nil limiter must not throttle, throttled=%v err=%v", throttled, err)
	}

	unlimited := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !unlimited.Allow(1) {
			t.Fatalf("unlimited limiter rejected token %d", i)
		}
	}
}
