package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/worktally/attendance-backend/internal/domain/event"
)

// Dispatcher routes domain events to registered handlers. Reconciliation and
// snapshot services publish through it; the notification service subscribes.
type Dispatcher interface {
	// Subscribe registers a handler under an auto-generated name
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers a handler under an explicit name so it can
	// be listed and unsubscribed later
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// Unsubscribe removes a handler by name
	Unsubscribe(eventType event.Type, name string)

	// Dispatch runs every handler in registration order and returns the
	// first error
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync runs handlers in the background; errors are logged,
	// never returned
	DispatchAsync(ctx context.Context, evt *event.Event)

	// ListHandlers returns handler metadata for an event type
	ListHandlers(eventType event.Type) []HandlerInfo

	// Close rejects further dispatches and waits for in-flight async
	// handlers
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// nopLogger is the default when no logger option is given
type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerInfo
	logger   Logger

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type][]HandlerInfo),
		logger:   nopLogger{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *eventDispatcher) Subscribe(eventType event.Type, handler Handler) {
	name := fmt.Sprintf("handler-%d", len(d.handlers[eventType]))
	d.SubscribeNamed(eventType, name, handler)
}

func (d *eventDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	})

	d.logger.Info("Handler registered", "event_type", eventType, "handler_name", name)
}

func (d *eventDispatcher) Unsubscribe(eventType event.Type, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.handlers[eventType][:0]
	for _, h := range d.handlers[eventType] {
		if h.Name != name {
			kept = append(kept, h)
		}
	}
	d.handlers[eventType] = kept

	d.logger.Info("Handler unregistered", "event_type", eventType, "handler_name", name)
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}

	for _, info := range d.snapshotHandlers(evt.Type) {
		if err := d.runHandler(ctx, evt, info); err != nil {
			d.logger.Error("Handler error",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", info.Name,
				"error", err,
			)
			return fmt.Errorf("handler %s failed: %w", info.Name, err)
		}
	}
	return nil
}

func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	if d.closed.Load() {
		d.logger.Error("Dropping async event, dispatcher is closed",
			"event_type", evt.Type,
			"event_id", evt.ID,
		)
		return
	}

	for _, info := range d.snapshotHandlers(evt.Type) {
		d.wg.Add(1)
		go func(h HandlerInfo) {
			defer d.wg.Done()
			if err := d.runHandler(ctx, evt, h); err != nil {
				d.logger.Error("Async handler error",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", h.Name,
					"error", err,
				)
			}
		}(info)
	}
}

func (d *eventDispatcher) ListHandlers(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]HandlerInfo, len(d.handlers[eventType]))
	for i, h := range d.handlers[eventType] {
		// Handler funcs stay private to the dispatcher
		result[i] = HandlerInfo{Name: h.Name, EventType: h.EventType, Description: h.Description}
	}
	return result
}

func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}

	d.wg.Wait()
	d.logger.Info("Dispatcher closed")
	return nil
}

// snapshotHandlers copies the handler slice so dispatch iterates without
// holding the lock
func (d *eventDispatcher) snapshotHandlers(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]HandlerInfo(nil), d.handlers[eventType]...)
}

// runHandler executes one handler with panic recovery
func (d *eventDispatcher) runHandler(ctx context.Context, evt *event.Event, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return info.Handler(ctx, evt)
}
