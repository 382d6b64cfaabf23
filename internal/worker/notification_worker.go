package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/events"
)

const (
	defaultQueueSize = 256
	forwardTimeout   = 10 * time.Second
)

// EventHandler processes one queued event.
type EventHandler interface {
	Handle(ctx context.Context, event events.Event) error
}

// NotificationWorker moves lifecycle events off the interaction path. Publishing only
// enqueues; a single goroutine drains the queue in order.
type NotificationWorker struct {
	dispatcher events.Dispatcher
	handler    EventHandler
	logger     *zap.Logger
	queue      chan events.Event

	startOnce sync.Once
	mu        sync.RWMutex
	stopped   bool
	done      chan struct{}
}

// NewNotificationWorker builds a worker. queueSize <= 0 uses the default.
func NewNotificationWorker(dispatcher events.Dispatcher, handler EventHandler, logger *zap.Logger, queueSize int) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &NotificationWorker{
		dispatcher: dispatcher,
		handler:    handler,
		logger:     logger,
		queue:      make(chan events.Event, queueSize),
		done:       make(chan struct{}),
	}
}

// Start subscribes to every event type and begins draining. Later calls are no-ops.
func (w *NotificationWorker) Start() {
	w.startOnce.Do(func() {
		w.dispatcher.SubscribeAll(w.enqueue)
		go w.run()
	})
}

// Stop stops accepting events and waits until the queue is drained or ctx ends.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue never blocks the publisher. A full queue drops the event.
func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return nil
	}
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket", event.TicketNumber))
	}
	return nil
}

func (w *NotificationWorker) run() {
	defer close(w.done)
	for event := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
		if err := w.handler.Handle(ctx, event); err != nil {
			w.logger.Debug("notification handler failed", zap.String("event_id", event.ID), zap.Error(err))
		}
		cancel()
	}
}
