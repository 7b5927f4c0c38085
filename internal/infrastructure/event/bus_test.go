package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// testEvent implements DomainEvent for testing
type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "test data",
	}
}

// testHandler implements EventHandler for testing
type testHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	tests := []struct {
		name      string
		subscribe func(bus *InMemoryEventBus, h *testHandler)
		publish   []string
		want      int
	}{
		{
			name:      "declared types",
			subscribe: func(bus *InMemoryEventBus, h *testHandler) { bus.Subscribe(h) },
			publish:   []string{"A", "B", "C"},
			want:      2,
		},
		{
			name:      "explicit types override declared ones",
			subscribe: func(bus *InMemoryEventBus, h *testHandler) { bus.Subscribe(h, "C") },
			publish:   []string{"A", "B", "C"},
			want:      1,
		},
		{
			name:      "subscribing twice delivers once",
			subscribe: func(bus *InMemoryEventBus, h *testHandler) { bus.Subscribe(h); bus.Subscribe(h) },
			publish:   []string{"A"},
			want:      1,
		},
		{
			name:      "nothing matches",
			subscribe: func(bus *InMemoryEventBus, h *testHandler) { bus.Subscribe(h) },
			publish:   []string{"Z"},
			want:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewInMemoryEventBus(zaptest.NewLogger(t))
			h := newTestHandler("A", "B")
			tt.subscribe(bus, h)

			events := make([]shared.DomainEvent, len(tt.publish))
			for i, typ := range tt.publish {
				events[i] = newTestEvent(typ)
			}
			require.NoError(t, bus.Publish(context.Background(), events...))
			assert.Equal(t, tt.want, h.count())
		})
	}
}

func TestInMemoryEventBus_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	wildcard := newTestHandler()
	bus.Subscribe(wildcard)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("A"), newTestEvent("B")))
	assert.Equal(t, 2, wildcard.count())
}

func TestInMemoryEventBus_FailingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := newTestHandler("A")
	failing.err = errors.New("boom")
	panicking := newTestHandler("A")
	panicking.panicWith = "kaboom"
	healthy := newTestHandler("A")

	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("A"))
	require.Error(t, err)
	assert.ErrorIs(t, err, failing.err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, 1, healthy.count())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := newTestHandler("A")
	wildcard := newTestHandler()
	bus.Subscribe(h)
	bus.Subscribe(wildcard)

	bus.Unsubscribe(h)
	bus.Unsubscribe(wildcard)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("A")))

	assert.Equal(t, 0, h.count())
	assert.Equal(t, 0, wildcard.count())
	assert.Empty(t, bus.registry.Handlers("A"))
}
