package retry

import (
	"context"
	"testing"
	"time"
)

func TestFixedDelay(t *testing.T) {
	fixed := Fixed(300 * time.Millisecond)
	for i := 1; i <= 50; i++ {
		if d := fixed.Delay(i); d != 300*time.Millisecond {
			t.Fatalf("attempt %d expected 300ms got %v", i, d)
		}
	}
}

// TestDelayEdgeCases ensures non-positive attempts and intervals yield zero.
func TestDelayEdgeCases(t *testing.T) {
	p := Fixed(10 * time.Millisecond)
	if d := p.Delay(0); d != 0 {
		t.Fatalf("attempt 0 expected 0 got %v", d)
	}
	if d := p.Delay(-1); d != 0 {
		t.Fatalf("attempt -1 expected 0 got %v", d)
	}
	if d := Fixed(-time.Second).Delay(1); d != 0 {
		t.Fatalf("negative interval expected 0 got %v", d)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	p := Fixed(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := p.Wait(ctx, 1); err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > time.Second {
		t.Fatal("Wait did not return promptly on cancelled context")
	}

	if err := Fixed(time.Millisecond).Wait(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitStopsAtDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := Fixed(time.Hour).Wait(ctx, 1); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("Wait ignored the deadline")
	}
}

func TestZeroIntervalWait(t *testing.T) {
	if err := Fixed(0).Wait(context.Background(), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Fixed(0).Wait(ctx, 1); err == nil {
		t.Fatal("expected context error for cancelled context")
	}
}
