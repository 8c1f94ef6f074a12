package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrBusClosed = errors.New("event bus is closed")

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
}

// BaseEvent carries the envelope every domain event shares.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

type Handler func(ctx context.Context, event Event) error

// EventBus fans document and room events out to in-process subscribers.
// Publish runs handlers on their own goroutines after the publishing
// transaction has committed; PublishSync runs them in order and stops at the
// first failure.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool
	inflight sync.WaitGroup
	logger   *slog.Logger
}

func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	n := len(eb.handlers[eventType])
	eb.mu.Unlock()

	eb.logger.Debug("event handler registered", "event_type", eventType, "total_handlers", n)
}

func (eb *EventBus) subscribers(eventType string) ([]Handler, error) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return nil, ErrBusClosed
	}
	hs := eb.handlers[eventType]
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out, nil
}

func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	handlers, err := eb.subscribers(event.EventType())
	if err != nil {
		return err
	}
	if len(handlers) == 0 {
		eb.logger.Debug("no handlers for event type", "event_type", event.EventType())
		return nil
	}

	eb.logger.Info("publishing event",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"handlers_count", len(handlers))

	// handlers outlive the request that published the event
	ctx = context.WithoutCancel(ctx)
	eb.inflight.Add(len(handlers))
	for _, h := range handlers {
		go func(h Handler) {
			defer eb.inflight.Done()
			_ = eb.dispatch(ctx, h, event)
		}(h)
	}
	return nil
}

func (eb *EventBus) PublishSync(ctx context.Context, event Event) error {
	handlers, err := eb.subscribers(event.EventType())
	if err != nil {
		return err
	}
	for _, h := range handlers {
		if err := eb.dispatch(ctx, h, event); err != nil {
			return fmt.Errorf("handler failed for event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

// dispatch runs one handler, turning a panic into an error so one broken
// subscriber cannot take the process down.
func (eb *EventBus) dispatch(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("event handler panicked: %v", rec)
		}
		if err != nil {
			eb.logger.Error("event handler failed",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"error", err)
		}
	}()
	return h(ctx, event)
}

// Wait blocks until every asynchronously dispatched handler has returned.
func (eb *EventBus) Wait() {
	eb.inflight.Wait()
}

// Close stops accepting events and waits for running handlers.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	eb.closed = true
	eb.mu.Unlock()
	eb.Wait()
}
