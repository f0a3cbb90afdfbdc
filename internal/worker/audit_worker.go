package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/spec-kit/token-gateway/internal/events"
)

// ErrQueueFull is returned to the publisher when an event is dropped.
var ErrQueueFull = errors.New("audit queue full")

// EventHandler records a single event.
type EventHandler interface {
	Handle(ctx context.Context, event events.Event) error
}

// AuditWorker moves audit writes off the request path. Events are queued
// by Enqueue and handled in order by one background goroutine. When the
// queue is full the event is dropped and counted.
type AuditWorker struct {
	handler   EventHandler
	logger    *zap.Logger
	queue     chan events.Event
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
	closed    atomic.Bool
	dropped   atomic.Uint64
}

// NewAuditWorker builds a worker with a queue of bufferSize events.
func NewAuditWorker(handler EventHandler, logger *zap.Logger, bufferSize int) *AuditWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &AuditWorker{
		handler: handler,
		logger:  logger,
		queue:   make(chan events.Event, bufferSize),
		done:    make(chan struct{}),
	}
}

// Subscribe routes the given event types from dispatcher into the queue.
func (w *AuditWorker) Subscribe(dispatcher events.Dispatcher, types ...events.EventType) {
	for _, eventType := range types {
		dispatcher.Subscribe(eventType, w.Enqueue)
	}
}

// Start launches the background goroutine. Calling it again is a no-op.
func (w *AuditWorker) Start() {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.run()
	})
}

// Enqueue hands event to the worker without blocking. It has the
// events.EventHandler signature so it can be subscribed directly.
func (w *AuditWorker) Enqueue(_ context.Context, event events.Event) error {
	if w.closed.Load() {
		return nil
	}
	select {
	case w.queue <- event:
		return nil
	case <-w.done:
		return nil
	default:
		w.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close stops accepting events, drains the queue and waits for the worker.
func (w *AuditWorker) Close() {
	w.closeOnce.Do(func() {
		w.closed.Store(true)
		close(w.done)
		w.wg.Wait()
		if n := w.dropped.Load(); n > 0 {
			w.logger.Warn("audit events dropped", zap.Uint64("dropped", n))
		}
	})
}

// Dropped returns how many events were discarded because the queue was full.
func (w *AuditWorker) Dropped() uint64 {
	return w.dropped.Load()
}

func (w *AuditWorker) run() {
	defer w.wg.Done()

	for {
		select {
		case event := <-w.queue:
			w.handle(event)
		case <-w.done:
			for {
				select {
				case event := <-w.queue:
					w.handle(event)
				default:
					return
				}
			}
		}
	}
}

func (w *AuditWorker) handle(event events.Event) {
	if err := w.handler.Handle(context.Background(), event); err != nil {
		w.logger.Warn("audit write failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
