// Package eventbus implements the in-process publish/subscribe bus. A single
// dispatch goroutine reads published events from a bounded queue and fans
// each one out to matching subscribers on a worker pool. A subscription made
// by concrete event type is also keyed under the event's name; an event
// matched through both keys is delivered to that subscription exactly once.
package eventbus

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentbench/finledger/internal/config"
	"github.com/agentbench/finledger/internal/domain/events"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// Handler processes one delivered event. The returned error is collected and
// logged by the dispatcher; it is never propagated to the publisher.
type Handler func(ctx context.Context, evt events.Event) error

// Subscription is the handle returned by Subscribe/SubscribeName, used to
// unsubscribe. One handle may be registered under both a type key and a name
// key; delivery dedupe is by handle identity, so two handles always fire
// independently even when they wrap the same function.
type Subscription struct {
	ID        uuid.UUID
	eventType reflect.Type // nil for name-only subscriptions
	eventName string
	handler   Handler
}

// shutdownSentinel is enqueued by Stop to request a graceful loop exit
type shutdownSentinel struct{}

// Bus is an asynchronous in-process event bus. Construct with New and pass
// the instance explicitly to every component that needs it; there is no
// package-level singleton.
type Bus struct {
	logger *slog.Logger
	cfg    config.EventBusConfig

	lifecycle sync.Mutex // serializes Start/Stop

	mu     sync.RWMutex
	byType map[reflect.Type][]*Subscription
	byName map[string][]*Subscription

	queue    chan any
	pool     *ants.Pool
	inflight sync.WaitGroup
	loopDone chan struct{}

	runCtx    context.Context
	cancelRun context.CancelFunc

	started   atomic.Bool
	published atomic.Int64
	processed atomic.Int64

	recorder *recorder
}

// Stats is a point-in-time snapshot of bus counters
type Stats struct {
	Started     bool  `json:"started"`
	Published   int64 `json:"published"`
	Processed   int64 `json:"processed"`
	Subscribers int   `json:"subscribers"`
}

// New creates a stopped Bus. Call Start before publishing for asynchronous
// delivery; see Publish for the behavior of an unstarted bus.
func New(cfg config.EventBusConfig, logger *slog.Logger) *Bus {
	return &Bus{
		logger:   logger,
		cfg:      cfg,
		byType:   make(map[reflect.Type][]*Subscription),
		byName:   make(map[string][]*Subscription),
		recorder: newRecorder(cfg.RecordingCap),
	}
}

// Start launches the dispatch loop and handler pool. Idempotent: calling
// Start on a running bus is a no-op.
func (b *Bus) Start(ctx context.Context) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if b.started.Load() {
		b.logger.Debug("event bus already started")
		return nil
	}

	pool, err := ants.NewPool(b.cfg.HandlerPoolSize)
	if err != nil {
		return err
	}

	b.runCtx, b.cancelRun = context.WithCancel(ctx)
	b.pool = pool
	b.queue = make(chan any, b.cfg.QueueSize)
	b.loopDone = make(chan struct{})

	// Publish checks the flag without a lock; flip it only once the queue
	// and pool exist
	b.started.Store(true)

	go b.dispatchLoop()

	b.logger.Info("event bus started",
		"queue_size", b.cfg.QueueSize,
		"handler_pool_size", b.cfg.HandlerPoolSize,
	)
	return nil
}

// Stop requests a graceful shutdown: a sentinel is enqueued, the dispatch
// loop exits, in-flight handlers get a bounded grace window, then survivors
// are cancelled and the remaining queue is dropped. Stop always completes;
// shutdown-path errors are logged, not returned.
func (b *Bus) Stop(ctx context.Context) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if !b.started.Load() {
		return nil
	}
	b.started.Store(false)

	select {
	case b.queue <- shutdownSentinel{}:
	default:
		// Queue is full; the loop will be cut off via context instead
		b.cancelRun()
	}

	select {
	case <-b.loopDone:
	case <-time.After(b.cfg.ShutdownGrace):
		b.logger.Warn("dispatch loop still busy after grace period, cancelling",
			"grace", b.cfg.ShutdownGrace,
		)
		b.cancelRun()
		<-b.loopDone
	case <-ctx.Done():
		b.cancelRun()
		<-b.loopDone
	}

	if !b.waitInflight(b.cfg.ShutdownGrace) {
		b.logger.Warn("handlers still in flight after grace period, cancelling",
			"grace", b.cfg.ShutdownGrace,
		)
		b.cancelRun()
		b.inflight.Wait()
	}

	b.cancelRun()
	b.pool.Release()

	dropped := 0
	for {
		select {
		case item := <-b.queue:
			if _, ok := item.(shutdownSentinel); !ok {
				dropped++
			}
		default:
			b.logger.Info("event bus stopped", "dropped_events", dropped)
			return nil
		}
	}
}

// waitInflight waits for all scheduled handlers to finish, giving up after
// the grace window.
func (b *Bus) waitInflight(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(grace):
		return false
	}
}

// dispatchLoop is the single consumer of the queue. A panic anywhere in the
// loop is logged and the loop exits cleanly rather than crash the process.
func (b *Bus) dispatchLoop() {
	defer close(b.loopDone)
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("dispatch loop panic, exiting", "panic", r)
		}
	}()

	for {
		select {
		case <-b.runCtx.Done():
			b.logger.Info("dispatch context cancelled, stopping loop")
			return
		case item := <-b.queue:
			if _, ok := item.(shutdownSentinel); ok {
				b.logger.Debug("shutdown sentinel received, stopping loop")
				return
			}
			evt, ok := item.(events.Event)
			if !ok {
				b.logger.Error("non-event item on dispatch queue", "item_type", reflect.TypeOf(item).String())
				continue
			}
			// Wait for the batch so handler outcomes are collected here and
			// deliveries to any one handler stay in publish order
			b.dispatch(b.runCtx, evt, true)
			b.processed.Add(1)
		}
	}
}

// Subscribe registers a handler for the concrete type of the prototype
// event. The prototype's value is ignored; only its type and name matter.
// The returned handle is keyed under both the type and the event name, and
// an event matched through both keys reaches the handler once.
func (b *Bus) Subscribe(proto events.Event, h Handler) *Subscription {
	sub := &Subscription{
		ID:        uuid.New(),
		eventType: reflect.TypeOf(proto),
		eventName: proto.EventName(),
		handler:   h,
	}

	b.mu.Lock()
	b.byType[sub.eventType] = append(b.byType[sub.eventType], sub)
	b.byName[sub.eventName] = append(b.byName[sub.eventName], sub)
	b.mu.Unlock()

	b.logger.Debug("subscribed by type",
		"event_type", sub.eventType.String(),
		"event_name", sub.eventName,
		"subscription_id", sub.ID,
	)
	return sub
}

// SubscribeName registers a handler for an exact event name. Intended for
// late-bound integrations that cannot reference the concrete event types.
func (b *Bus) SubscribeName(name string, h Handler) *Subscription {
	sub := &Subscription{
		ID:        uuid.New(),
		eventName: name,
		handler:   h,
	}

	b.mu.Lock()
	b.byName[name] = append(b.byName[name], sub)
	b.mu.Unlock()

	b.logger.Debug("subscribed by name", "event_name", name, "subscription_id", sub.ID)
	return sub
}

// Unsubscribe removes a subscription. Subsequently published events are
// guaranteed not to reach its handler; events already dispatched may still
// complete.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.eventType != nil {
		b.byType[sub.eventType] = removeSub(b.byType[sub.eventType], sub.ID)
	}
	if sub.eventName != "" {
		b.byName[sub.eventName] = removeSub(b.byName[sub.eventName], sub.ID)
	}
}

func removeSub(subs []*Subscription, id uuid.UUID) []*Subscription {
	out := subs[:0]
	for _, s := range subs {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

// Publish delivers an event to all matching subscribers. On a started bus
// the event is enqueued for the dispatch loop. On a stopped bus it is
// dispatched synchronously on the caller's goroutine so delivery is never
// silently dropped; this path waits for all matching handlers and may
// deliver out of order relative to previously queued events.
func (b *Bus) Publish(ctx context.Context, evt events.Event) error {
	b.published.Add(1)
	b.recorder.record(evt, evt.EventName(), time.Now().UTC())

	if !b.started.Load() {
		b.logger.Debug("bus not started, dispatching synchronously", "event", evt.EventName())
		b.dispatch(ctx, evt, true)
		b.processed.Add(1)
		return nil
	}

	select {
	case b.queue <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch fans one event out to every matching subscription. When wait is
// true the call blocks until every handler
// has returned; otherwise handlers run on the pool tracked by the in-flight
// group.
func (b *Bus) dispatch(ctx context.Context, evt events.Event, wait bool) {
	subs := b.matchingSubscriptions(evt)
	if len(subs) == 0 {
		b.logger.Debug("no subscribers for event", "event", evt.EventName())
		return
	}

	var batch sync.WaitGroup
	for _, sub := range subs {
		sub := sub
		b.inflight.Add(1)
		batch.Add(1)

		run := func() {
			defer b.inflight.Done()
			defer batch.Done()
			b.invoke(ctx, sub, evt)
		}

		if b.pool == nil {
			// Synchronous fallback path before the first Start
			run()
			continue
		}

		if err := b.pool.Submit(run); err != nil {
			// Pool rejected the task (released or overloaded); run inline
			// rather than drop the delivery
			b.logger.Warn("handler pool rejected task, running inline", "event", evt.EventName(), "error", err)
			run()
		}
	}

	if wait {
		batch.Wait()
	}
}

// invoke runs one handler and records its outcome. Handler panics and errors
// are caught and logged per handler; one failing handler never prevents
// others from running.
func (b *Bus) invoke(ctx context.Context, sub *Subscription, evt events.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panic",
				"event", evt.EventName(),
				"subscription_id", sub.ID,
				"panic", r,
			)
		}
	}()

	if err := sub.handler(ctx, evt); err != nil {
		b.logger.Error("handler failed",
			"event", evt.EventName(),
			"subscription_id", sub.ID,
			"error", err,
		)
	}
}

// matchingSubscriptions returns the set of subscriptions for an event: first
// type matches, then name matches. Dedupe is by subscription identity, so a
// handle keyed under both selectors is returned once while distinct handles
// wrapping the same function are all returned.
func (b *Bus) matchingSubscriptions(evt events.Event) []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []*Subscription
	seen := make(map[*Subscription]struct{})

	for _, sub := range b.byType[reflect.TypeOf(evt)] {
		if _, ok := seen[sub]; ok {
			continue
		}
		seen[sub] = struct{}{}
		matched = append(matched, sub)
	}

	for _, sub := range b.byName[evt.EventName()] {
		if _, ok := seen[sub]; ok {
			continue
		}
		seen[sub] = struct{}{}
		matched = append(matched, sub)
	}

	return matched
}

// Stats returns a snapshot of bus counters
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	count := 0
	for _, subs := range b.byType {
		count += len(subs)
	}
	// Type subscriptions appear in both maps; count name-only ones here
	for _, subs := range b.byName {
		for _, sub := range subs {
			if sub.eventType == nil {
				count++
			}
		}
	}
	b.mu.RUnlock()

	return Stats{
		Started:     b.started.Load(),
		Published:   b.published.Load(),
		Processed:   b.processed.Load(),
		Subscribers: count,
	}
}

// StartRecording enables the bounded in-memory event recording buffer
func (b *Bus) StartRecording() { b.recorder.start() }

// StopRecording disables recording; the buffer is retained
func (b *Bus) StopRecording() { b.recorder.stop() }

// RecordedEvents returns a copy of the recorded buffer and whether the
// recording cap was hit.
func (b *Bus) RecordedEvents() ([]RecordedEvent, bool) {
	return b.recorder.snapshot()
}

// ClearRecorded empties the buffer and clears the truncated flag
func (b *Bus) ClearRecorded() { b.recorder.clear() }

// LogEvent records an ad-hoc event summary under an explicit type name and
// timestamp, bypassing dispatch. Used by collaborators that observe activity
// the bus itself never carries.
func (b *Bus) LogEvent(payload any, typeName string, ts time.Time) {
	b.recorder.record(payload, typeName, ts)
}
