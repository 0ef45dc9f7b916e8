package shutdown

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"
)

// fakeSignals lets tests deliver signals without touching the process.
func fakeSignals(h *Handler) chan<- os.Signal {
	ch := make(chan os.Signal, 4)
	ready := make(chan chan<- os.Signal, 1)
	h.notify = func(c chan<- os.Signal, _ ...os.Signal) { ready <- c }
	h.stop = func(chan<- os.Signal) {}
	go func() {
		c := <-ready
		for sig := range ch {
			c <- sig
		}
	}()
	return ch
}

func waitAsync(h *Handler, ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait(ctx) }()
	return errCh
}

func TestHandler_HooksRunInReverseOrder(t *testing.T) {
	h := NewHandler(time.Second)

	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"storage", "resp", "http"} {
		h.OnShutdown(name, func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	errCh := waitAsync(h, context.Background())
	h.Trigger()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"http", "resp", "storage"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("hook order = %v, want %v", order, want)
		}
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done channel should be closed after Wait completes")
	}
}

func TestHandler_Signal(t *testing.T) {
	h := NewHandler(time.Second)
	sigs := fakeSignals(h)
	defer close(sigs)

	var called bool
	h.OnShutdown("x", func(context.Context) error { called = true; return nil })

	errCh := waitAsync(h, context.Background())
	sigs <- syscall.SIGTERM

	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return on SIGTERM")
	}
	if !called {
		t.Error("shutdown hook not called")
	}
}

func TestHandler_ReloadDoesNotStop(t *testing.T) {
	h := NewHandler(time.Second)
	sigs := fakeSignals(h)
	defer close(sigs)

	reloaded := make(chan struct{}, 1)
	h.OnReload(func() { reloaded <- struct{}{} })

	errCh := waitAsync(h, context.Background())
	sigs <- syscall.SIGHUP

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("reload hook not called on SIGHUP")
	}

	select {
	case <-errCh:
		t.Fatal("Wait() returned after SIGHUP")
	case <-time.After(50 * time.Millisecond):
	}

	h.Trigger()
	<-errCh
}

func TestHandler_ContextCancel(t *testing.T) {
	h := NewHandler(time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := waitAsync(h, ctx)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return on context cancel")
	}
}

func TestHandler_HookErrorsJoined(t *testing.T) {
	h := NewHandler(time.Second)

	errA := errors.New("a failed")
	errB := errors.New("b failed")
	h.OnShutdown("a", func(context.Context) error { return errA })
	h.OnShutdown("ok", func(context.Context) error { return nil })
	h.OnShutdown("b", func(context.Context) error { return errB })

	errCh := waitAsync(h, context.Background())
	h.Trigger()
	h.Trigger()

	err := <-errCh
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Wait() = %v, want both hook errors", err)
	}
}

func TestHandler_HookTimeout(t *testing.T) {
	h := NewHandler(20 * time.Millisecond)

	h.OnShutdown("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	errCh := waitAsync(h, context.Background())
	h.Trigger()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Wait() = %v, want deadline exceeded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown timeout not applied")
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown("noop", func(context.Context) error { return nil })
		}()
	}
	wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.hooks) != 10 {
		t.Errorf("expected 10 hooks, got %d", len(h.hooks))
	}
}
