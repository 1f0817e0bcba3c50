package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func newTestWorker(t *testing.T) *Worker {
	t.Helper()
	w := New("test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.Start()
	t.Cleanup(w.Stop)
	return w
}

func TestNew_DefaultLogger(t *testing.T) {
	w := New("camera", nil)
	if w.log == nil {
		t.Error("logger should not be nil")
	}
	if w.Running() {
		t.Error("worker should not run before Start")
	}
}

func TestWorker_RunsInPostOrder(t *testing.T) {
	w := newTestWorker(t)

	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 100; i++ {
		i := i
		if !w.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}) {
			t.Fatalf("post %d rejected", i)
		}
	}

	if err := w.Do(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 100 {
		t.Fatalf("expected 100 tasks, got %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestWorker_SerializesTasks(t *testing.T) {
	w := newTestWorker(t)

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Do(context.Background(), func() error {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("expected at most one task at a time, saw %d", maxActive)
	}
}

func TestWorker_DoReturnsTaskError(t *testing.T) {
	w := newTestWorker(t)
	boom := errors.New("boom")

	err := w.Do(context.Background(), func() error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("expected task error, got %v", err)
	}
}

func TestWorker_DoContextCancelled(t *testing.T) {
	w := newTestWorker(t)
	release := make(chan struct{})
	w.Post(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := w.Do(ctx, func() error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestWorker_PanicDoesNotKillWorker(t *testing.T) {
	w := newTestWorker(t)

	err := w.Do(context.Background(), func() error { panic("bad task") })
	if err == nil {
		t.Error("expected error from panicking task")
	}

	if err := w.Do(context.Background(), func() error { return nil }); err != nil {
		t.Errorf("worker should keep running after panic: %v", err)
	}
}

func TestWorker_StopDrainsQueue(t *testing.T) {
	w := New("drain", nil)
	w.Start()

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 10; i++ {
		w.Post(func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	if ran != 10 {
		t.Errorf("expected queued tasks to drain, ran %d", ran)
	}
}

func TestWorker_RejectsAfterStop(t *testing.T) {
	w := New("stopped", nil)
	w.Start()
	w.Stop()

	if w.Post(func() {}) {
		t.Error("post after stop should be rejected")
	}
	if err := w.Do(context.Background(), func() error { return nil }); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if w.Running() {
		t.Error("worker should not be running after Stop")
	}
}

func TestWorker_StopTwice(t *testing.T) {
	w := New("twice", nil)
	w.Start()
	w.Stop()
	w.Stop()
}

func TestWorker_PostBeforeStart(t *testing.T) {
	w := New("idle", nil)
	if w.Post(func() {}) {
		t.Error("post before start should be rejected")
	}
	w.Stop()
}
