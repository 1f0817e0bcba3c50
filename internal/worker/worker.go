package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gammazero/deque"
)

var ErrStopped = errors.New("worker stopped")

// Worker runs tasks one at a time, in post order, on a single goroutine.
type Worker struct {
	name string
	log  *slog.Logger

	mu       sync.Mutex
	queue    deque.Deque[func()]
	running  bool
	stopping bool
	wake     chan struct{}
	done     chan struct{}
}

func New(name string, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		name: name,
		log:  log.With("component", "worker", "worker", name),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running || w.stopping {
		return
	}
	w.running = true
	go w.loop()
}

// Post queues fn and reports whether it was accepted. Tasks posted after
// Stop are rejected.
func (w *Worker) Post(fn func()) bool {
	w.mu.Lock()
	if !w.running || w.stopping {
		w.mu.Unlock()
		return false
	}
	w.queue.PushBack(fn)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the worker and waits for its result or for ctx.
func (w *Worker) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	task := func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("task panicked: %v", r)
			}
		}()
		result <- fn()
	}
	if !w.Post(task) {
		return ErrStopped
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running && !w.stopping
}

// Stop drains already queued tasks and waits for the goroutine to exit. It
// must not be called from a task.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.stopping = true
		w.mu.Unlock()
		return
	}
	w.stopping = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	<-w.done
}

func (w *Worker) loop() {
	defer close(w.done)

	for {
		w.mu.Lock()
		if w.queue.Len() == 0 {
			if w.stopping {
				w.running = false
				w.mu.Unlock()
				w.log.Debug("worker exited")
				return
			}
			w.mu.Unlock()
			<-w.wake
			continue
		}
		fn := w.queue.PopFront()
		w.mu.Unlock()

		w.run(fn)
	}
}

func (w *Worker) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("task panicked", "error", fmt.Sprint(r))
		}
	}()
	fn()
}
