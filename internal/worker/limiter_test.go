package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_FirstRequestImmediate(t *testing.T) {
	limiter := NewLimiter(time.Hour)
	ctx := context.Background()

	start := time.Now()
	if err := limiter.Wait(ctx, "google"); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Errorf("first request should not be delayed")
	}

	// Different key has its own slot
	if err := limiter.Wait(ctx, "openai"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_SpacesRequests(t *testing.T) {
	limiter := NewLimiter(60 * time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "google"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "google"); err != nil {
		t.Fatalf("second wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected second request to be delayed, got %v", elapsed)
	}
}

func TestLimiter_ZeroIntervalDisablesPacing(t *testing.T) {
	limiter := NewLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(ctx, "google"); err != nil {
			t.Fatalf("wait %d failed: %v", i, err)
		}
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Errorf("expected no pacing with zero interval")
	}
}

func TestLimiter_WaitCanceled(t *testing.T) {
	limiter := NewLimiter(time.Hour)
	_ = limiter.Wait(context.Background(), "google")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx, "google"); err == nil {
		t.Errorf("expected error from canceled context")
	}
}
