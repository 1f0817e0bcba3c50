package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/burst-camera/internal/session"
)

const (
	defaultSubscriberBuffer = 64
	resultSendTimeout       = time.Second
)

// Bus fans notifications out to subscribers. State and progress updates are
// dropped for a subscriber whose buffer is full; burst results wait up to
// resultWait for room before they are dropped.
type Bus struct {
	log        *slog.Logger
	resultWait time.Duration

	mu     sync.RWMutex
	subs   map[int]chan session.Notification
	next   int
	closed bool
}

func NewBus(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		log:        log.With("component", "notification_bus"),
		resultWait: resultSendTimeout,
		subs:       make(map[int]chan session.Notification),
	}
}

func (b *Bus) Subscribe(buffer int) (<-chan session.Notification, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan session.Notification, buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
			b.mu.Unlock()
		})
	}
}

func (b *Bus) Publish(n session.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- n:
			continue
		default:
		}
		if n.Kind == session.NotifyResult {
			if b.sendWithin(ch, n) {
				continue
			}
			b.log.Error("subscriber stalled, dropping burst result", "subscriber", id, "wait", b.resultWait)
			continue
		}
		b.log.Warn("subscriber buffer full, dropping notification", "subscriber", id, "kind", n.Kind)
	}
}

func (b *Bus) sendWithin(ch chan session.Notification, n session.Notification) bool {
	timer := time.NewTimer(b.resultWait)
	defer timer.Stop()
	select {
	case ch <- n:
		return true
	case <-timer.C:
		return false
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Observer consumes notifications off the camera worker.
type Observer interface {
	Observe(ctx context.Context, n session.Notification)
}

type ObserverFunc func(ctx context.Context, n session.Notification)

func (f ObserverFunc) Observe(ctx context.Context, n session.Notification) {
	f(ctx, n)
}

// Attach runs obs on its own goroutine until ctx ends or the bus closes. The
// returned channel closes once the goroutine has exited.
func (b *Bus) Attach(ctx context.Context, name string, obs Observer) <-chan struct{} {
	ch, unsubscribe := b.Subscribe(defaultSubscriberBuffer)
	done := make(chan struct{})
	log := b.log.With("observer", name)

	go func() {
		defer close(done)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-ch:
				if !ok {
					return
				}
				b.observe(ctx, log, obs, n)
			}
		}
	}()
	return done
}

func (b *Bus) observe(ctx context.Context, log *slog.Logger, obs Observer, n session.Notification) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("observer panicked", "kind", n.Kind, "error", r)
		}
	}()
	obs.Observe(ctx, n)
}
