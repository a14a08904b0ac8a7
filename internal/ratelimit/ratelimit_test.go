package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		perSecond float64
		burst     int
		wantLimit float64
		wantBurst int
	}{
		{name: "unlimited zero", perSecond: 0, burst: 4, wantLimit: 0, wantBurst: 4},
		{name: "unlimited negative", perSecond: -1, burst: 1, wantLimit: 0, wantBurst: 1},
		{name: "limited", perSecond: 10, burst: 2, wantLimit: 10, wantBurst: 2},
		{name: "fractional", perSecond: 0.5, burst: 1, wantLimit: 0.5, wantBurst: 1},
		{name: "burst floor", perSecond: 1, burst: 0, wantLimit: 1, wantBurst: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := New(tt.perSecond, tt.burst)
			if got := l.Limit(); got != tt.wantLimit {
				t.Errorf("Limit() = %v, want %v", got, tt.wantLimit)
			}
			if got := l.Burst(); got != tt.wantBurst {
				t.Errorf("Burst() = %v, want %v", got, tt.wantBurst)
			}
		})
	}
}

func TestAllow(t *testing.T) {
	t.Parallel()

	t.Run("unlimited", func(t *testing.T) {
		t.Parallel()

		l := New(0, 1)
		for i := range 10 {
			if !l.Allow() {
				t.Errorf("Allow() = false on load %d", i)
			}
		}
	})

	t.Run("burst then throttled", func(t *testing.T) {
		t.Parallel()

		l := New(1, 2)
		if !l.Allow() || !l.Allow() {
			t.Error("Allow() = false within burst")
		}
		if l.Allow() {
			t.Error("Allow() = true after burst")
		}
	})

	t.Run("nil", func(t *testing.T) {
		t.Parallel()

		var l *Limiter
		if !l.Allow() {
			t.Error("nil Allow() = false")
		}
		if l.Limit() != 0 {
			t.Errorf("nil Limit() = %v", l.Limit())
		}
	})
}

func TestWait(t *testing.T) {
	t.Parallel()

	t.Run("paces starts", func(t *testing.T) {
		t.Parallel()

		l := New(20, 1)
		start := time.Now()
		for range 3 {
			if err := l.Wait(context.Background()); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
			t.Errorf("three starts at 20/s took %v, want at least 80ms", elapsed)
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		t.Parallel()

		l := New(1, 1)
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := l.Wait(ctx); err == nil {
			t.Error("Wait() = nil, want error")
		}
	})

	t.Run("nil honours context", func(t *testing.T) {
		t.Parallel()

		var l *Limiter
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := l.Wait(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Wait() error = %v, want context.Canceled", err)
		}
	})
}
