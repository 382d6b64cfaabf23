package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/service"
)

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
	err    error
	block  chan struct{}
}

func (s *recordingSink) Forward(_ context.Context, event events.Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) types() []events.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

func TestWorkerForwardsInOrderOnce(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	sink := &recordingSink{}
	w := NewNotificationWorker(dispatcher, service.NewNotificationService(sink, zap.NewNop()), nil, 8)
	w.Start()
	w.Start()

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{ID: "1", Type: events.EventTicketCreated, TicketNumber: 1}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{ID: "2", Type: events.EventTicketAssigned, TicketNumber: 1}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{ID: "3", Type: events.EventTicketClosed, TicketNumber: 1}))

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))

	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketClosed,
	}, sink.types())
}

func TestWorkerSinkFailureDoesNotReachPublisher(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	sink := &recordingSink{err: errors.New("broker down")}
	w := NewNotificationWorker(dispatcher, service.NewNotificationService(sink, nil), nil, 0)
	w.Start()

	assert.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketLocked}))

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))
	assert.Len(t, sink.types(), 1)
}

func TestWorkerDropsWhenQueueFull(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	sink := &recordingSink{block: make(chan struct{})}
	w := NewNotificationWorker(dispatcher, service.NewNotificationService(sink, nil), nil, 1)
	w.Start()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		assert.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventStaffCalled}))
	}
	close(sink.block)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))

	got := len(sink.types())
	assert.GreaterOrEqual(t, got, 1)
	assert.LessOrEqual(t, got, 2)
}

func TestPublishAfterStopIsIgnored(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	sink := &recordingSink{}
	w := NewNotificationWorker(dispatcher, service.NewNotificationService(sink, nil), nil, 4)
	w.Start()
	require.NoError(t, w.Stop(context.Background()))

	assert.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketClosed}))
	assert.Empty(t, sink.types())
}
