package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

type panicHandler struct{}

func (panicHandler) Handle(context.Context, shared.DomainEvent) error { panic("boom") }
func (panicHandler) EventTypes() []string                             { return []string{testEventType} }

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to typed and wildcard handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		typed := &testHandler{types: []string{testEventType}}
		other := &testHandler{types: []string{"Other"}}
		all := &testHandler{}
		bus.Subscribe(typed)
		bus.Subscribe(other)
		bus.Subscribe(all)

		require.NoError(t, bus.Publish(ctx, newTestEvent(uuid.New())))
		assert.Equal(t, 1, typed.count())
		assert.Equal(t, 0, other.count())
		assert.Equal(t, 1, all.count())
	})

	t.Run("joins handler failures and keeps dispatching", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := &testHandler{types: []string{testEventType}, err: errors.New("downstream")}
		ok := &testHandler{types: []string{testEventType}}
		bus.Subscribe(failing)
		bus.Subscribe(panicHandler{})
		bus.Subscribe(ok)

		err := bus.Publish(ctx, newTestEvent(uuid.New()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "downstream")
		assert.Contains(t, err.Error(), "panicked")
		assert.Equal(t, 1, ok.count())
	})

	t.Run("explicit types override the handler's own", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := &testHandler{types: []string{"Other"}}
		bus.Subscribe(h, testEventType)

		require.NoError(t, bus.Publish(ctx, newTestEvent(uuid.New())))
		assert.Equal(t, 1, h.count())
	})

	t.Run("stopped bus refuses deliveries", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := &testHandler{types: []string{testEventType}}
		bus.Subscribe(h)
		require.NoError(t, bus.Stop(ctx))

		assert.ErrorIs(t, bus.Publish(ctx, newTestEvent(uuid.New())), ErrBusStopped)
		assert.Equal(t, 0, h.count())

		require.NoError(t, bus.Start(ctx))
		require.NoError(t, bus.Publish(ctx, newTestEvent(uuid.New())))
		assert.Equal(t, 1, h.count())
	})
}

func TestEventSerializer(t *testing.T) {
	s := newTestSerializer()
	ev := newTestEvent(uuid.New())

	payload, err := s.Serialize(ev)
	require.NoError(t, err)

	decoded, err := s.Deserialize(testEventType, payload)
	require.NoError(t, err)
	got, ok := decoded.(*testEvent)
	require.True(t, ok)
	assert.Equal(t, ev.EventID(), got.EventID())
	assert.Equal(t, "payload", got.Data)

	_, err = s.Serialize(&testEvent{EventHeader: shared.NewEventHeader("Unknown", "X", uuid.New(), uuid.New())})
	assert.Error(t, err)
	_, err = s.Deserialize("Unknown", payload)
	assert.Error(t, err)
}

func TestRegisterAllEvents(t *testing.T) {
	s := NewEventSerializer()
	RegisterAllEvents(s)

	for _, typ := range []string{"ProductCreated", "StockChanged", "PriceChanged", "PurchaseOrderSent", "ProcurementRunFinished"} {
		assert.True(t, s.IsRegistered(typ), typ)
	}
}
