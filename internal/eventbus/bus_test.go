package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentbench/finledger/internal/config"
	"github.com/agentbench/finledger/internal/domain/events"
	"github.com/agentbench/finledger/internal/domain/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBusConfig() config.EventBusConfig {
	return config.EventBusConfig{
		QueueSize:       64,
		HandlerPoolSize: 8,
		ShutdownGrace:   2 * time.Second,
		RecordingCap:    10,
	}
}

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	return New(testBusConfig(), slog.Default())
}

func saleEvent() events.SaleOccurred {
	return events.SaleOccurred{
		ASIN:         "B00TEST123",
		UnitsSold:    2,
		TotalRevenue: money.MustNew(10000, "USD"),
	}
}

// waitFor polls until the condition holds or the deadline passes
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBus_DeliversToTypeSubscriber(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())

	var received atomic.Int64
	bus.Subscribe(events.SaleOccurred{}, func(ctx context.Context, evt events.Event) error {
		sale, ok := evt.(events.SaleOccurred)
		assert.True(t, ok)
		assert.Equal(t, "B00TEST123", sale.ASIN)
		received.Add(1)
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	waitFor(t, func() bool { return received.Load() == 1 })
}

func TestBus_DeliversToNameSubscriber(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())

	var received atomic.Int64
	bus.SubscribeName(events.NameSaleOccurred, func(ctx context.Context, evt events.Event) error {
		received.Add(1)
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	waitFor(t, func() bool { return received.Load() == 1 })
}

// aliasedSale carries the sale event name on a different concrete type, so
// it can only reach a subscription through the name key.
type aliasedSale struct{}

func (aliasedSale) EventName() string { return events.NameSaleOccurred }

func TestBus_TypeSubscriptionMatchedByBothKeysFiresOnce(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())

	var received atomic.Int64
	bus.Subscribe(events.SaleOccurred{}, func(ctx context.Context, evt events.Event) error {
		received.Add(1)
		return nil
	})

	// Matches the subscription under both its type key and its name key
	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	waitFor(t, func() bool { return received.Load() >= 1 })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), received.Load())

	// Matches through the name key alone
	require.NoError(t, bus.Publish(context.Background(), aliasedSale{}))
	waitFor(t, func() bool { return received.Load() == 2 })
}

// countingSubscriber delivers through a method value; every instance shares
// one code pointer, so dedupe must not key on it.
type countingSubscriber struct {
	seen atomic.Int64
}

func (s *countingSubscriber) Handle(ctx context.Context, evt events.Event) error {
	s.seen.Add(1)
	return nil
}

func TestBus_DistinctSubscriberInstancesEachReceive(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())

	first := &countingSubscriber{}
	second := &countingSubscriber{}
	bus.Subscribe(events.SaleOccurred{}, first.Handle)
	bus.Subscribe(events.SaleOccurred{}, second.Handle)

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	waitFor(t, func() bool { return first.seen.Load() == 1 && second.seen.Load() == 1 })
}

func TestBus_ClosuresFromOneLiteralEachReceive(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())

	counters := make([]atomic.Int64, 3)
	for i := range counters {
		c := &counters[i]
		bus.Subscribe(events.SaleOccurred{}, func(ctx context.Context, evt events.Event) error {
			c.Add(1)
			return nil
		})
	}

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	waitFor(t, func() bool {
		for i := range counters {
			if counters[i].Load() != 1 {
				return false
			}
		}
		return true
	})
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())

	var received atomic.Int64
	sub := bus.Subscribe(events.SaleOccurred{}, func(ctx context.Context, evt events.Event) error {
		received.Add(1)
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	waitFor(t, func() bool { return received.Load() == 1 })

	bus.Unsubscribe(sub)
	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), received.Load())
}

func TestBus_FailingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())

	var healthy atomic.Int64
	bus.Subscribe(events.SaleOccurred{}, func(ctx context.Context, evt events.Event) error {
		return errors.New("boom")
	})
	bus.Subscribe(events.SaleOccurred{}, func(ctx context.Context, evt events.Event) error {
		healthy.Add(1)
		return nil
	})
	bus.Subscribe(events.SaleOccurred{}, func(ctx context.Context, evt events.Event) error {
		panic("handler exploded")
	})

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	waitFor(t, func() bool { return healthy.Load() == 1 })
}

func TestBus_PublishBeforeStartDispatchesSynchronously(t *testing.T) {
	bus := newTestBus(t)

	var received atomic.Int64
	bus.Subscribe(events.SaleOccurred{}, func(ctx context.Context, evt events.Event) error {
		received.Add(1)
		return nil
	})

	// Never started: delivery happens inline on this goroutine and has
	// completed by the time Publish returns.
	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	assert.Equal(t, int64(1), received.Load())

	stats := bus.Stats()
	assert.False(t, stats.Started)
	assert.Equal(t, int64(1), stats.Published)
	assert.Equal(t, int64(1), stats.Processed)
}

func TestBus_StartIsIdempotent(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())

	assert.True(t, bus.Stats().Started)
}

func TestBus_StopDrainsInflightHandlers(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.Start(context.Background()))

	var started, finished atomic.Int64
	release := make(chan struct{})
	var once sync.Once

	bus.Subscribe(events.SaleOccurred{}, func(ctx context.Context, evt events.Event) error {
		started.Add(1)
		<-release
		finished.Add(1)
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	waitFor(t, func() bool { return started.Load() == 1 })

	go func() {
		time.Sleep(100 * time.Millisecond)
		once.Do(func() { close(release) })
	}()

	require.NoError(t, bus.Stop(context.Background()))
	assert.Equal(t, int64(1), finished.Load(), "in-flight handler should finish within the grace window")
	assert.False(t, bus.Stats().Started)
}

func TestBus_StopCancelsStragglers(t *testing.T) {
	cfg := testBusConfig()
	cfg.ShutdownGrace = 50 * time.Millisecond
	bus := New(cfg, slog.Default())
	require.NoError(t, bus.Start(context.Background()))

	var cancelled atomic.Bool
	bus.Subscribe(events.SaleOccurred{}, func(ctx context.Context, evt events.Event) error {
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	require.NoError(t, bus.Stop(context.Background()))
	assert.True(t, cancelled.Load(), "straggler should observe cancellation after the grace window")
}

func TestBus_PublishAfterStopFallsBackToSync(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.Start(context.Background()))

	var received atomic.Int64
	bus.Subscribe(events.SaleOccurred{}, func(ctx context.Context, evt events.Event) error {
		received.Add(1)
		return nil
	})

	require.NoError(t, bus.Stop(context.Background()))

	// The bus no longer accepts asynchronous dispatches but delivery is not
	// silently dropped.
	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	assert.Equal(t, int64(1), received.Load())
}

func TestBus_Stats(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())

	bus.Subscribe(events.SaleOccurred{}, func(ctx context.Context, evt events.Event) error { return nil })
	bus.SubscribeName("custom.event", func(ctx context.Context, evt events.Event) error { return nil })

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	waitFor(t, func() bool { return bus.Stats().Processed == 1 })

	stats := bus.Stats()
	assert.True(t, stats.Started)
	assert.Equal(t, int64(1), stats.Published)
	assert.Equal(t, 2, stats.Subscribers)
}

func TestBus_OrderedDeliveryWithinOneHandler(t *testing.T) {
	bus := newTestBus(t)
	require.NoError(t, bus.Start(context.Background()))
	defer bus.Stop(context.Background())

	var mu sync.Mutex
	var order []int
	bus.Subscribe(events.InventoryAdjusted{}, func(ctx context.Context, evt events.Event) error {
		adj := evt.(events.InventoryAdjusted)
		mu.Lock()
		order = append(order, adj.UnitsDelta)
		mu.Unlock()
		return nil
	})

	for i := 1; i <= 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), events.InventoryAdjusted{
			UnitsDelta: i,
			CostDelta:  money.MustNew(int64(i)*100, "USD"),
		}))
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 5
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, order)
}
