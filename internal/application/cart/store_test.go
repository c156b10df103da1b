package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storefront/cartsync/internal/domain/cart"
	"github.com/storefront/cartsync/internal/infrastructure/cache"
	"github.com/storefront/cartsync/internal/infrastructure/event"
	"github.com/storefront/cartsync/internal/infrastructure/session"
)

// MockCartService is a mock implementation of cart.Service
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) FetchCart(ctx context.Context) (*cart.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Snapshot), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, input cart.AddItemInput) (*cart.Snapshot, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Snapshot), args.Error(1)
}

func (m *MockCartService) UpdateItem(ctx context.Context, lineID, quantity int64) (*cart.Snapshot, error) {
	args := m.Called(ctx, lineID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Snapshot), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, lineID int64) (*cart.Snapshot, error) {
	args := m.Called(ctx, lineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Snapshot), args.Error(1)
}

func (m *MockCartService) ClearCart(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockCartService) ValidateCart(ctx context.Context) (*cart.ValidationResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.ValidationResult), args.Error(1)
}

// snapshotOf builds a server snapshot from items
func snapshotOf(items ...cart.SnapshotItem) *cart.Snapshot {
	snap := &cart.Snapshot{ID: 1, Items: items}
	for _, item := range items {
		snap.ItemCount += item.Quantity
		snap.Subtotal = snap.Subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
	}
	return snap
}

func teeItem(lineID, quantity int64) cart.SnapshotItem {
	return cart.SnapshotItem{
		LineID:      lineID,
		ProductID:   10,
		ProductName: "Classic Tee",
		Quantity:    quantity,
		UnitPrice:   decimal.NewFromInt(50000),
		Stock:       25,
		Metadata:    cart.ItemMetadata{SelectedSize: "M"},
	}
}

func newTestStore(t *testing.T, service cart.Service, tokens session.TokenSource) (*Store, *cache.InMemorySnapshotStore) {
	t.Helper()
	snapshots := cache.NewInMemorySnapshotStore(nil)
	store := NewStore(service, snapshots, tokens, nil)
	return store, snapshots
}

func TestHydrateWithoutTokenForcesEmpty(t *testing.T) {
	service := &MockCartService{}
	store, snapshots := newTestStore(t, service, session.Static(""))

	// A previous account's cart is cached on this device
	require.NoError(t, snapshots.Save(context.Background(), "default", []cart.Line{
		{ProductID: 10, Quantity: 2, UnitPrice: decimal.NewFromInt(50000), Size: "M"},
	}))

	store.Hydrate(context.Background())

	assert.Empty(t, store.Lines())
	assert.Equal(t, int64(0), store.TotalItems())

	// The cached copy must be discarded, not just ignored
	cached, err := snapshots.Load(context.Background(), "default")
	require.NoError(t, err)
	assert.Empty(t, cached)

	service.AssertExpectations(t)
}

func TestHydrateReplacesViewFromServer(t *testing.T) {
	service := &MockCartService{}
	service.On("FetchCart", mock.Anything).Return(snapshotOf(teeItem(100, 2)), nil)
	store, snapshots := newTestStore(t, service, session.Static("tok"))

	store.Hydrate(context.Background())

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(100), lines[0].ServerLineID)
	assert.Equal(t, cart.SyncStateSynced, lines[0].SyncState)
	assert.Equal(t, int64(2), store.TotalItems())

	// Snapshot is persisted as the warm-start backup
	cached, err := snapshots.Load(context.Background(), "default")
	require.NoError(t, err)
	assert.Len(t, cached, 1)
}

func TestHydrateFallsBackToCacheOnFetchFailure(t *testing.T) {
	service := &MockCartService{}
	service.On("FetchCart", mock.Anything).Return(nil, errors.New("connection refused"))
	store, snapshots := newTestStore(t, service, session.Static("tok"))

	require.NoError(t, snapshots.Save(context.Background(), "default", []cart.Line{
		{ProductID: 10, Quantity: 2, UnitPrice: decimal.NewFromInt(50000), Size: "M"},
	}))

	store.Hydrate(context.Background())

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(10), lines[0].ProductID)
	assert.Equal(t, int64(2), store.TotalItems())
}

func TestPreHydrationTotalsAreZero(t *testing.T) {
	service := &MockCartService{}
	store, _ := newTestStore(t, service, session.Static("tok"))

	assert.False(t, store.Hydrated())
	assert.Equal(t, int64(0), store.TotalItems())
	assert.True(t, store.TotalPrice().IsZero())
}

func TestAddToCartMergesAndSendsTotalQuantity(t *testing.T) {
	service := &MockCartService{}
	store, _ := newTestStore(t, service, session.Static("tok"))
	ctx := context.Background()

	// First add: remote call carries quantity 1
	service.On("AddItem", mock.Anything, mock.MatchedBy(func(in cart.AddItemInput) bool {
		return in.ProductID == 10 && in.Quantity == 1 && in.SelectedSize == "M"
	})).Return(snapshotOf(teeItem(100, 1)), nil).Once()

	store.AddToCart(ctx, AddInput{ProductID: 10, Name: "Classic Tee", UnitPrice: decimal.NewFromInt(50000), Quantity: 1, Size: "M"})

	require.Len(t, store.Lines(), 1)
	assert.True(t, store.TotalPrice().Equal(decimal.NewFromInt(50000)))

	// Second add for the same tuple: the remote "set" call must carry the
	// resulting total 3, not the delta 2
	service.On("AddItem", mock.Anything, mock.MatchedBy(func(in cart.AddItemInput) bool {
		return in.ProductID == 10 && in.Quantity == 3
	})).Return(snapshotOf(teeItem(100, 3)), nil).Once()

	store.AddToCart(ctx, AddInput{ProductID: 10, Name: "Classic Tee", UnitPrice: decimal.NewFromInt(50000), Quantity: 2, Size: "M"})

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(3), lines[0].Quantity)
	assert.True(t, store.TotalPrice().Equal(decimal.NewFromInt(150000)))

	service.AssertExpectations(t)
}

func TestAddToCartDefaultsQuantityAndSize(t *testing.T) {
	service := &MockCartService{}
	store, _ := newTestStore(t, service, session.Static("tok"))

	service.On("AddItem", mock.Anything, mock.MatchedBy(func(in cart.AddItemInput) bool {
		return in.Quantity == 1 && in.SelectedSize == cart.DefaultSize
	})).Return(snapshotOf(teeItem(100, 1)), nil).Once()

	store.AddToCart(context.Background(), AddInput{ProductID: 10, UnitPrice: decimal.NewFromInt(50000)})

	service.AssertExpectations(t)
}

func TestAddToCartWithoutTokenIsNoop(t *testing.T) {
	service := &MockCartService{}
	store, _ := newTestStore(t, service, session.Static(""))

	store.AddToCart(context.Background(), AddInput{ProductID: 10, Quantity: 1})

	assert.Empty(t, store.Lines())
	service.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything)
}

func TestAddToCartFailureKeepsOptimisticState(t *testing.T) {
	service := &MockCartService{}
	service.On("AddItem", mock.Anything, mock.Anything).Return(nil, errors.New("gateway timeout"))
	store, _ := newTestStore(t, service, session.Static("tok"))

	store.AddToCart(context.Background(), AddInput{ProductID: 10, UnitPrice: decimal.NewFromInt(50000), Quantity: 2, Size: "M"})

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].Quantity)
	assert.Equal(t, cart.SyncStateFailed, lines[0].SyncState)
	assert.False(t, lines[0].Acknowledged())
}

func TestUpdateQuantityNonPositiveRemoves(t *testing.T) {
	for _, quantity := range []int64{0, -1} {
		service := &MockCartService{}
		service.On("FetchCart", mock.Anything).Return(snapshotOf(teeItem(100, 3)), nil).Once()
		service.On("RemoveItem", mock.Anything, int64(100)).Return(snapshotOf(), nil).Once()
		store, _ := newTestStore(t, service, session.Static("tok"))
		store.Hydrate(context.Background())

		store.UpdateQuantity(context.Background(), 10, quantity, "M")

		assert.Empty(t, store.Lines())
		service.AssertExpectations(t)
	}
}

func TestUpdateQuantitySetsAbsoluteValue(t *testing.T) {
	service := &MockCartService{}
	service.On("FetchCart", mock.Anything).Return(snapshotOf(teeItem(100, 3)), nil).Once()
	service.On("UpdateItem", mock.Anything, int64(100), int64(5)).Return(snapshotOf(teeItem(100, 5)), nil).Once()
	store, _ := newTestStore(t, service, session.Static("tok"))
	store.Hydrate(context.Background())

	store.UpdateQuantity(context.Background(), 10, 5, "M")

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(5), lines[0].Quantity)
	service.AssertExpectations(t)
}

func TestUpdateQuantityUnacknowledgedLineStaysLocal(t *testing.T) {
	service := &MockCartService{}
	service.On("AddItem", mock.Anything, mock.Anything).Return(nil, errors.New("down"))
	store, _ := newTestStore(t, service, session.Static("tok"))

	// Line exists locally but was never acknowledged by the server
	store.AddToCart(context.Background(), AddInput{ProductID: 10, Quantity: 1, Size: "M"})

	store.UpdateQuantity(context.Background(), 10, 4, "M")

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(4), lines[0].Quantity)
	service.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateQuantityFailureKeepsOptimisticState(t *testing.T) {
	service := &MockCartService{}
	service.On("FetchCart", mock.Anything).Return(snapshotOf(teeItem(100, 3)), nil).Once()
	service.On("UpdateItem", mock.Anything, int64(100), int64(5)).Return(nil, errors.New("down")).Once()
	store, _ := newTestStore(t, service, session.Static("tok"))
	store.Hydrate(context.Background())

	store.UpdateQuantity(context.Background(), 10, 5, "M")

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(5), lines[0].Quantity)
	assert.Equal(t, cart.SyncStateFailed, lines[0].SyncState)
}

func TestRemoveFromCartConfirmsWithServerFirst(t *testing.T) {
	service := &MockCartService{}
	service.On("FetchCart", mock.Anything).Return(snapshotOf(teeItem(100, 3)), nil).Once()
	service.On("RemoveItem", mock.Anything, int64(100)).Return(snapshotOf(), nil).Once()
	store, snapshots := newTestStore(t, service, session.Static("tok"))
	store.Hydrate(context.Background())

	store.RemoveFromCart(context.Background(), 10, "M")

	assert.Empty(t, store.Lines())
	cached, err := snapshots.Load(context.Background(), "default")
	require.NoError(t, err)
	assert.Empty(t, cached)
	service.AssertExpectations(t)
}

func TestRemoveFromCartFailureForcesResync(t *testing.T) {
	service := &MockCartService{}
	// Initial hydrate, then the forced resync after the failed delete
	service.On("FetchCart", mock.Anything).Return(snapshotOf(teeItem(100, 3)), nil).Twice()
	service.On("RemoveItem", mock.Anything, int64(100)).Return(nil, errors.New("conflict")).Once()
	store, _ := newTestStore(t, service, session.Static("tok"))
	store.Hydrate(context.Background())

	store.RemoveFromCart(context.Background(), 10, "M")

	// The line is still there: the server never confirmed the removal
	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(3), lines[0].Quantity)
	service.AssertExpectations(t)
}

func TestClearCartEmptiesLocallyEvenWhenRemoteFails(t *testing.T) {
	service := &MockCartService{}
	service.On("FetchCart", mock.Anything).Return(snapshotOf(teeItem(100, 3)), nil).Once()
	service.On("ClearCart", mock.Anything).Return(errors.New("down")).Once()
	store, snapshots := newTestStore(t, service, session.Static("tok"))
	store.Hydrate(context.Background())

	store.ClearCart(context.Background())

	assert.Empty(t, store.Lines())
	assert.Equal(t, int64(0), store.TotalItems())
	cached, err := snapshots.Load(context.Background(), "default")
	require.NoError(t, err)
	assert.Empty(t, cached)
	service.AssertExpectations(t)
}

func TestValidateCartIsReadOnly(t *testing.T) {
	service := &MockCartService{}
	service.On("FetchCart", mock.Anything).Return(snapshotOf(teeItem(100, 3)), nil).Once()
	service.On("ValidateCart", mock.Anything).Return(&cart.ValidationResult{
		Valid: false,
		Changes: []cart.ValidationChange{
			{
				Kind:       cart.ChangeKindPriceChanged,
				CartLineID: 100,
				ProductID:  10,
				Message:    "Price changed from 50000 to 60000",
				OldPrice:   decimal.NewFromInt(50000),
				NewPrice:   decimal.NewFromInt(60000),
			},
		},
	}, nil).Twice()
	store, _ := newTestStore(t, service, session.Static("tok"))
	store.Hydrate(context.Background())
	before := store.Lines()

	result, err := store.ValidateCart(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Valid)
	require.Len(t, result.Changes, 1)
	assert.True(t, result.Changes[0].Blocking())

	// Advisory only: quantities and prices are untouched
	assert.Equal(t, before, store.Lines())

	// Idempotent with no intervening mutation
	again, err := store.ValidateCart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.Changes, again.Changes)
}

func TestValidateCartUnauthenticatedReturnsNil(t *testing.T) {
	service := &MockCartService{}
	store, _ := newTestStore(t, service, session.Static(""))

	result, err := store.ValidateCart(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, result)
	service.AssertNotCalled(t, "ValidateCart", mock.Anything)
}

func TestLogoutThenHydrateYieldsEmptyCart(t *testing.T) {
	service := &MockCartService{}
	service.On("FetchCart", mock.Anything).Return(snapshotOf(teeItem(100, 3)), nil).Once()
	tokens := session.NewMemory("tok")
	snapshots := cache.NewInMemorySnapshotStore(nil)
	store := NewStore(service, snapshots, tokens, nil)

	store.Hydrate(context.Background())
	require.NotEmpty(t, store.Lines())

	tokens.Clear()
	store.Hydrate(context.Background())

	assert.Empty(t, store.Lines())
	assert.Equal(t, int64(0), store.TotalItems())

	// Even the durable copy is gone, so a different account on this device
	// cannot see the previous cart
	cached, err := snapshots.Load(context.Background(), "default")
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestRefreshRequestedEventForcesResync(t *testing.T) {
	service := &MockCartService{}
	service.On("FetchCart", mock.Anything).Return(snapshotOf(teeItem(100, 2)), nil).Once()
	bus := event.NewInMemoryEventBus(nil)
	snapshots := cache.NewInMemorySnapshotStore(nil)
	store := NewStore(service, snapshots, session.Static("tok"), bus)

	require.NoError(t, bus.Publish(context.Background(), cart.NewRefreshRequested("wishlist_move")))

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].Quantity)
	service.AssertExpectations(t)
}
