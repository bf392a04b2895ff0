package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewTimeoutGuard_Default(t *testing.T) {
	g := NewTimeoutGuard(0)
	if g.Timeout() != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s", g.Timeout())
	}
}

func TestTimeoutGuard_FastOperationUnaffected(t *testing.T) {
	g := NewTimeoutGuard(100 * time.Millisecond)

	err := g.Wrap(context.Background(), func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Errorf("Wrap() error = %v", err)
	}
}

func TestTimeoutGuard_ErrorPassesThrough(t *testing.T) {
	g := NewTimeoutGuard(100 * time.Millisecond)
	opErr := errors.New("operation error")

	err := g.Wrap(context.Background(), func(ctx context.Context) error {
		return opErr
	})
	if !errors.Is(err, opErr) {
		t.Errorf("Wrap() error = %v, want %v", err, opErr)
	}
}

func TestTimeoutGuard_SlowOperationAbandoned(t *testing.T) {
	g := NewTimeoutGuard(100 * time.Millisecond)

	start := time.Now()
	err := g.Wrap(context.Background(), func(ctx context.Context) error {
		time.Sleep(500 * time.Millisecond)
		return nil
	})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Wrap() error = %v, want ErrTimeout", err)
	}
	if elapsed < 90*time.Millisecond || elapsed > 300*time.Millisecond {
		t.Errorf("Wrap() returned after %v, want ~100ms", elapsed)
	}
}

func TestTimeoutGuard_LateResultDiscarded(t *testing.T) {
	g := NewTimeoutGuard(20 * time.Millisecond)

	finished := make(chan error, 1)
	err := g.Wrap(context.Background(), func(ctx context.Context) error {
		time.Sleep(60 * time.Millisecond)
		finished <- errors.New("late result")
		return nil
	})

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Wrap() error = %v, want ErrTimeout", err)
	}

	// The abandoned operation still runs to completion; its result goes
	// nowhere but its goroutine must not leak or panic.
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Error("Abandoned operation never completed")
	}
}

func TestTimeoutGuard_CooperativeCancellation(t *testing.T) {
	g := NewTimeoutGuard(20 * time.Millisecond)

	stopped := make(chan struct{})
	err := g.Wrap(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})

	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Wrap() error = %v, want ErrTimeout", err)
	}
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Error("Operation did not observe cancellation via its context")
	}
}

func TestTimeoutGuard_CallerCancellation(t *testing.T) {
	g := NewTimeoutGuard(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := g.Wrap(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wrap() error = %v, want context.Canceled", err)
	}
}

func TestWrapWithTimeout(t *testing.T) {
	err := WrapWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		time.Sleep(100 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("WrapWithTimeout() error = %v, want ErrTimeout", err)
	}
}
