package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewPool(t *testing.T) {
	pool := NewPool(Config{Workers: 3}, testLogger())

	if pool == nil {
		t.Fatal("pool should not be nil")
	}
	if pool.Workers() != 3 {
		t.Errorf("workers = %d, want 3", pool.Workers())
	}
}

func TestNewPool_DefaultValues(t *testing.T) {
	tests := []struct {
		name    string
		workers int
	}{
		{"zero", 0},
		{"negative", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewPool(Config{Workers: tt.workers}, testLogger())
			if pool.Workers() != 2 {
				t.Errorf("workers = %d, want default 2", pool.Workers())
			}
		})
	}
}

func TestPool_Do_ReturnsTaskError(t *testing.T) {
	pool := NewPool(Config{Workers: 1}, testLogger())
	defer pool.Stop(time.Second)

	wantErr := errors.New("engine failed")
	err := pool.Do(context.Background(), func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Do() error = %v, want %v", err, wantErr)
	}
}

func TestPool_Do_BoundsConcurrency(t *testing.T) {
	const workers = 2
	pool := NewPool(Config{Workers: workers}, testLogger())
	defer pool.Stop(time.Second)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Do(context.Background(), func(ctx context.Context) error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	if peak.Load() > workers {
		t.Errorf("peak concurrency = %d, want <= %d", peak.Load(), workers)
	}
	if pool.InFlight() != 0 {
		t.Errorf("InFlight() = %d after all tasks finished", pool.InFlight())
	}
}

func TestPool_Do_ContextCancelledWhileWaiting(t *testing.T) {
	pool := NewPool(Config{Workers: 1}, testLogger())
	defer pool.Stop(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	go pool.Do(context.Background(), func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err := pool.Do(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	close(release)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want context.DeadlineExceeded", err)
	}
	if called {
		t.Error("task should not run when its context ends before a slot frees")
	}
}

func TestPool_Stop_CancelsRunningTasks(t *testing.T) {
	pool := NewPool(Config{Workers: 1}, testLogger())

	started := make(chan struct{})
	result := make(chan error, 1)
	go func() {
		result <- pool.Do(context.Background(), func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()
	<-started

	if err := pool.Stop(time.Second); err != nil {
		t.Fatalf("Stop should not error: %v", err)
	}

	select {
	case err := <-result:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("task error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("task did not observe cancellation")
	}
}

func TestPool_Do_AfterStop(t *testing.T) {
	pool := NewPool(Config{Workers: 1}, testLogger())
	if err := pool.Stop(time.Second); err != nil {
		t.Fatalf("Stop should not error: %v", err)
	}

	err := pool.Do(context.Background(), func(ctx context.Context) error {
		t.Error("task should not run after Stop")
		return nil
	})
	if !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Do() error = %v, want ErrPoolClosed", err)
	}
}

func TestPool_StopTimeout(t *testing.T) {
	pool := NewPool(Config{Workers: 1}, testLogger())

	release := make(chan struct{})
	started := make(chan struct{})
	go pool.Do(context.Background(), func(ctx context.Context) error {
		close(started)
		// Ignores cancellation, simulating a stuck engine
		<-release
		return nil
	})
	<-started

	err := pool.Stop(50 * time.Millisecond)
	close(release)

	if !errors.Is(err, ErrShutdownTimeout) {
		t.Errorf("expected ErrShutdownTimeout, got %v", err)
	}
}

func TestErrShutdownTimeout(t *testing.T) {
	if ErrShutdownTimeout.Error() != "worker pool shutdown timed out" {
		t.Errorf("unexpected error message: %s", ErrShutdownTimeout.Error())
	}
}
