package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/cartsync/internal/domain/cart"
	"github.com/storefront/cartsync/internal/domain/shared"
)

type recordingHandler struct {
	events []shared.DomainEvent
	err    error
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.events = append(h.events, event)
	return h.err
}

type panickingHandler struct{}

func (panickingHandler) Handle(context.Context, shared.DomainEvent) error {
	panic("handler bug")
}

func TestPublishDeliversToSubscribedHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	handler := &recordingHandler{}
	bus.Subscribe(handler, cart.EventTypeRefreshRequested)

	event := cart.NewRefreshRequested("wishlist_move")
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Len(t, handler.events, 1)
	got, ok := handler.events[0].(*cart.RefreshRequested)
	require.True(t, ok)
	assert.Equal(t, "wishlist_move", got.Reason)
}

func TestPublishSkipsHandlersForOtherTypes(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	handler := &recordingHandler{}
	bus.Subscribe(handler, "order.placed")

	require.NoError(t, bus.Publish(context.Background(), cart.NewRefreshRequested("checkout")))

	assert.Empty(t, handler.events)
}

func TestSubscribeWithoutTypesReceivesAllEvents(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	handler := &recordingHandler{}
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), cart.NewRefreshRequested("checkout")))

	assert.Len(t, handler.events, 1)
}

func TestPublishContinuesPastFailingHandler(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	failing := &recordingHandler{err: errors.New("handler failed")}
	healthy := &recordingHandler{}
	bus.Subscribe(failing, cart.EventTypeRefreshRequested)
	bus.Subscribe(healthy, cart.EventTypeRefreshRequested)

	require.NoError(t, bus.Publish(context.Background(), cart.NewRefreshRequested("checkout")))

	assert.Len(t, failing.events, 1)
	assert.Len(t, healthy.events, 1)
}

func TestPublishRecoversFromPanickingHandler(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	healthy := &recordingHandler{}
	bus.Subscribe(panickingHandler{}, cart.EventTypeRefreshRequested)
	bus.Subscribe(healthy, cart.EventTypeRefreshRequested)

	require.NotPanics(t, func() {
		_ = bus.Publish(context.Background(), cart.NewRefreshRequested("checkout"))
	})
	assert.Len(t, healthy.events, 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	handler := &recordingHandler{}
	bus.Subscribe(handler, cart.EventTypeRefreshRequested)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), cart.NewRefreshRequested("checkout")))

	assert.Empty(t, handler.events)
}
