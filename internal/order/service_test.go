package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/shop-core/internal/catalog"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
	"github.com/vasiliy-maslov/shop-core/internal/discount"
	"github.com/vasiliy-maslov/shop-core/internal/inventory"
	"github.com/vasiliy-maslov/shop-core/internal/order"
)

var (
	windowStart = time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2025, 8, 31, 23, 59, 59, 0, time.UTC)
	insideNow   = time.Date(2025, 8, 25, 10, 0, 0, 0, time.UTC)

	productA = uuid.FromStringOrNil("00000000-0000-0000-0000-00000000000a")
	productB = uuid.FromStringOrNil("00000000-0000-0000-0000-00000000000b")

	alice      = customer.Principal{Username: "alice", Role: customer.RoleUser}
	admin      = customer.Principal{Username: "root", Role: customer.RoleAdmin}
	aliceEntry = &customer.Customer{ID: uuid.FromStringOrNil("10000000-0000-0000-0000-000000000001"), Username: "alice", Role: customer.RoleUser, Active: true}
)

func fastRetry(attempts int) order.RetryConfig {
	return order.RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func newService(scope *fakeScope, opts ...order.Option) order.Service {
	policy := discount.NewPolicy(windowStart, windowEnd, discount.DefaultFrequentThreshold)
	opts = append([]order.Option{
		order.WithClock(func() time.Time { return insideNow }),
		order.WithRetry(fastRetry(3)),
	}, opts...)
	return order.NewService(scope, policy, opts...)
}

func productPriced(id uuid.UUID, price string) *catalog.Product {
	return &catalog.Product{ID: id, Name: "P-" + id.String()[34:], Price: decimal.RequireFromString(price)}
}

func totalIs(want string) interface{} {
	return mock.MatchedBy(func(o *order.Order) bool {
		return o.Total.StringFixed(2) == want
	})
}

func TestService_PlaceOrder_Scenarios(t *testing.T) {
	tests := []struct {
		name         string
		isRandom     bool
		orderCount   int64
		wantTotal    string
		wantDiscount string
	}{
		{name: "regular order", orderCount: 3, wantTotal: "180.00", wantDiscount: "0.10"},
		{name: "random order", isRandom: true, orderCount: 3, wantTotal: "100.00", wantDiscount: "0.50"},
		{name: "frequent customer random order", isRandom: true, orderCount: 6, wantTotal: "90.00", wantDiscount: "0.55"},
		{name: "frequent customer regular order", orderCount: 6, wantTotal: "170.00", wantDiscount: "0.15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope := newFakeScope()
			scope.customers.On("FindByUsername", mock.Anything, "alice").Return(aliceEntry, nil).Once()
			scope.products.On("GetByID", mock.Anything, productA).Return(productPriced(productA, "100.00"), nil).Once()
			scope.inventory.On("Decrement", mock.Anything, productA, 2).Return(8, nil).Once()
			scope.customers.On("CountOrders", mock.Anything, aliceEntry.ID).Return(tt.orderCount, nil).Once()
			scope.orders.On("Create", mock.Anything, totalIs(tt.wantTotal)).Return(nil).Once()

			placed, err := newService(scope).PlaceOrder(context.Background(), alice, order.PlaceOrderRequest{
				Items:    []order.Item{{ProductID: productA, Quantity: 2}},
				IsRandom: tt.isRandom,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantTotal, placed.Total.StringFixed(2))
			assert.Equal(t, tt.wantDiscount, placed.Discount.StringFixed(2))
			assert.Equal(t, aliceEntry.ID, placed.CustomerID)
			assert.Equal(t, insideNow, placed.PlacedAt)
			assert.Equal(t, tt.isRandom, placed.IsRandom)
			require.Len(t, placed.Lines, 1)
			assert.Equal(t, placed.ID, placed.Lines[0].OrderID)
			assert.Equal(t, 2, placed.Lines[0].Quantity)
			assert.Equal(t, "100.00", placed.Lines[0].UnitPrice.StringFixed(2))
			scope.assertExpectations(t)
		})
	}
}

func TestService_PlaceOrder_OneLinePerBasketEntry(t *testing.T) {
	scope := newFakeScope()
	scope.customers.On("FindByUsername", mock.Anything, "alice").Return(aliceEntry, nil).Once()
	scope.products.On("GetByID", mock.Anything, productA).Return(productPriced(productA, "10.00"), nil).Once()
	scope.products.On("GetByID", mock.Anything, productB).Return(productPriced(productB, "2.50"), nil).Once()
	scope.inventory.On("Decrement", mock.Anything, productA, 1).Return(4, nil).Once()
	scope.inventory.On("Decrement", mock.Anything, productA, 2).Return(2, nil).Once()
	scope.inventory.On("Decrement", mock.Anything, productB, 4).Return(0, nil).Once()
	scope.customers.On("CountOrders", mock.Anything, aliceEntry.ID).Return(int64(0), nil).Once()
	scope.orders.On("Create", mock.Anything, mock.AnythingOfType("*order.Order")).Return(nil).Once()

	placed, err := newService(scope).PlaceOrder(context.Background(), alice, order.PlaceOrderRequest{
		Items: []order.Item{
			{ProductID: productB, Quantity: 4},
			{ProductID: productA, Quantity: 1},
			{ProductID: productA, Quantity: 2},
		},
	})
	require.NoError(t, err)

	// (4*2.50 + 1*10 + 2*10) * 0.90
	assert.Equal(t, "36.00", placed.Total.StringFixed(2))
	require.Len(t, placed.Lines, 3)
	assert.Equal(t, productB, placed.Lines[0].ProductID)
	assert.Equal(t, productA, placed.Lines[1].ProductID)
	assert.Equal(t, productA, placed.Lines[2].ProductID)
	scope.assertExpectations(t)
}

func TestService_PlaceOrder_InsufficientStockReleasesEarlierReservations(t *testing.T) {
	scope := newFakeScope()
	scope.customers.On("FindByUsername", mock.Anything, "alice").Return(aliceEntry, nil).Once()
	scope.products.On("GetByID", mock.Anything, productA).Return(productPriced(productA, "100.00"), nil).Once()
	scope.products.On("GetByID", mock.Anything, productB).Return(productPriced(productB, "5.00"), nil).Once()
	// productA sorts first, so it is reserved before productB fails.
	scope.inventory.On("Decrement", mock.Anything, productA, 2).Return(8, nil).Once()
	scope.inventory.On("Decrement", mock.Anything, productB, 2).
		Return(0, &inventory.InsufficientStockError{ProductID: productB, Requested: 2, Available: 1}).Once()
	scope.inventory.On("Increment", mock.Anything, productA, 2).Return(10, nil).Once()

	placed, err := newService(scope).PlaceOrder(context.Background(), alice, order.PlaceOrderRequest{
		Items: []order.Item{{ProductID: productB, Quantity: 2}, {ProductID: productA, Quantity: 2}},
	})
	require.Nil(t, placed)
	require.ErrorIs(t, err, order.ErrInsufficientStock)

	var perr *order.PlacementError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, order.StateReserving, perr.State)

	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, productB, stockErr.ProductID)

	scope.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	scope.customers.AssertNotCalled(t, "CountOrders", mock.Anything, mock.Anything)
	assert.Equal(t, 1, scope.executions, "insufficient stock must not be retried")
	scope.assertExpectations(t)
}

func TestService_PlaceOrder_PersistFailureReleasesAll(t *testing.T) {
	scope := newFakeScope()
	scope.customers.On("FindByUsername", mock.Anything, "alice").Return(aliceEntry, nil).Once()
	scope.products.On("GetByID", mock.Anything, productA).Return(productPriced(productA, "1.00"), nil).Once()
	scope.products.On("GetByID", mock.Anything, productB).Return(productPriced(productB, "1.00"), nil).Once()
	scope.inventory.On("Decrement", mock.Anything, productA, 1).Return(0, nil).Once()
	scope.inventory.On("Decrement", mock.Anything, productB, 3).Return(0, nil).Once()
	scope.customers.On("CountOrders", mock.Anything, aliceEntry.ID).Return(int64(0), nil).Once()
	boom := errors.New("connection reset by peer")
	scope.orders.On("Create", mock.Anything, mock.AnythingOfType("*order.Order")).Return(boom).Once()
	scope.inventory.On("Increment", mock.Anything, productB, 3).Return(3, nil).Once()
	scope.inventory.On("Increment", mock.Anything, productA, 1).Return(1, nil).Once()

	_, err := newService(scope).PlaceOrder(context.Background(), alice, order.PlaceOrderRequest{
		Items: []order.Item{{ProductID: productA, Quantity: 1}, {ProductID: productB, Quantity: 3}},
	})
	require.ErrorIs(t, err, boom)

	var perr *order.PlacementError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, order.StatePersisting, perr.State)
	scope.assertExpectations(t)
}

func TestService_PlaceOrder_Rejected(t *testing.T) {
	tests := []struct {
		name      string
		caller    customer.Principal
		items     []order.Item
		setup     func(s *fakeScope)
		wantErr   error
		wantState order.State
	}{
		{
			name:      "empty basket",
			caller:    alice,
			wantErr:   order.ErrValidation,
			wantState: order.StateValidating,
		},
		{
			name:      "zero quantity",
			caller:    alice,
			items:     []order.Item{{ProductID: productA, Quantity: 0}},
			wantErr:   order.ErrValidation,
			wantState: order.StateValidating,
		},
		{
			name:      "negative quantity",
			caller:    alice,
			items:     []order.Item{{ProductID: productA, Quantity: -1}},
			wantErr:   order.ErrValidation,
			wantState: order.StateValidating,
		},
		{
			name:      "missing product id",
			caller:    alice,
			items:     []order.Item{{Quantity: 1}},
			wantErr:   order.ErrValidation,
			wantState: order.StateValidating,
		},
		{
			name:      "caller without role",
			caller:    customer.Principal{Username: "alice"},
			items:     []order.Item{{ProductID: productA, Quantity: 1}},
			wantErr:   customer.ErrForbidden,
			wantState: order.StateValidating,
		},
		{
			name:   "unknown customer",
			caller: alice,
			items:  []order.Item{{ProductID: productA, Quantity: 1}},
			setup: func(s *fakeScope) {
				s.customers.On("FindByUsername", mock.Anything, "alice").Return(nil, customer.ErrNotFound).Once()
			},
			wantErr:   order.ErrCustomerNotFound,
			wantState: order.StateValidating,
		},
		{
			name:   "inactive customer",
			caller: alice,
			items:  []order.Item{{ProductID: productA, Quantity: 1}},
			setup: func(s *fakeScope) {
				inactive := *aliceEntry
				inactive.Active = false
				s.customers.On("FindByUsername", mock.Anything, "alice").Return(&inactive, nil).Once()
			},
			wantErr:   order.ErrCustomerInactive,
			wantState: order.StateValidating,
		},
		{
			name:   "unknown product",
			caller: alice,
			items:  []order.Item{{ProductID: productA, Quantity: 1}},
			setup: func(s *fakeScope) {
				s.customers.On("FindByUsername", mock.Anything, "alice").Return(aliceEntry, nil).Once()
				s.products.On("GetByID", mock.Anything, productA).Return(nil, catalog.ErrProductNotFound).Once()
			},
			wantErr:   order.ErrProductNotFound,
			wantState: order.StatePricing,
		},
		{
			name:   "product without inventory",
			caller: alice,
			items:  []order.Item{{ProductID: productA, Quantity: 1}},
			setup: func(s *fakeScope) {
				s.customers.On("FindByUsername", mock.Anything, "alice").Return(aliceEntry, nil).Once()
				s.products.On("GetByID", mock.Anything, productA).Return(productPriced(productA, "1.00"), nil).Once()
				s.inventory.On("Decrement", mock.Anything, productA, 1).Return(0, inventory.ErrInventoryNotFound).Once()
			},
			wantErr:   order.ErrInventoryNotFound,
			wantState: order.StateReserving,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope := newFakeScope()
			if tt.setup != nil {
				tt.setup(scope)
			}

			placed, err := newService(scope).PlaceOrder(context.Background(), tt.caller, order.PlaceOrderRequest{Items: tt.items})
			require.Nil(t, placed)
			require.ErrorIs(t, err, tt.wantErr)

			var perr *order.PlacementError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantState, perr.State)

			scope.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			scope.inventory.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything, mock.Anything)
			scope.assertExpectations(t)
		})
	}
}

func TestService_PlaceOrder_RetriesConcurrencyConflict(t *testing.T) {
	scope := newFakeScope()
	scope.customers.On("FindByUsername", mock.Anything, "alice").Return(aliceEntry, nil).Twice()
	scope.products.On("GetByID", mock.Anything, productA).Return(productPriced(productA, "100.00"), nil).Twice()
	scope.inventory.On("Decrement", mock.Anything, productA, 2).Return(0, inventory.ErrConcurrencyConflict).Once()
	scope.inventory.On("Decrement", mock.Anything, productA, 2).Return(8, nil).Once()
	scope.customers.On("CountOrders", mock.Anything, aliceEntry.ID).Return(int64(3), nil).Once()
	scope.orders.On("Create", mock.Anything, totalIs("180.00")).Return(nil).Once()

	placed, err := newService(scope).PlaceOrder(context.Background(), alice, order.PlaceOrderRequest{
		Items: []order.Item{{ProductID: productA, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "180.00", placed.Total.StringFixed(2))
	assert.Equal(t, 2, scope.executions)
	scope.assertExpectations(t)
}

func TestService_PlaceOrder_ConflictRetriesAreBounded(t *testing.T) {
	scope := newFakeScope()
	scope.customers.On("FindByUsername", mock.Anything, "alice").Return(aliceEntry, nil).Times(2)
	scope.products.On("GetByID", mock.Anything, productA).Return(productPriced(productA, "100.00"), nil).Times(2)
	scope.inventory.On("Decrement", mock.Anything, productA, 1).Return(0, inventory.ErrConcurrencyConflict).Times(2)

	_, err := newService(scope, order.WithRetry(fastRetry(2))).PlaceOrder(context.Background(), alice, order.PlaceOrderRequest{
		Items: []order.Item{{ProductID: productA, Quantity: 1}},
	})
	require.ErrorIs(t, err, order.ErrConcurrencyConflict)
	assert.Equal(t, 2, scope.executions)
	scope.assertExpectations(t)
}

func TestService_PlaceOrder_PublishesAfterCommit(t *testing.T) {
	scope := newFakeScope()
	scope.customers.On("FindByUsername", mock.Anything, "alice").Return(aliceEntry, nil).Once()
	scope.products.On("GetByID", mock.Anything, productA).Return(productPriced(productA, "100.00"), nil).Once()
	scope.inventory.On("Decrement", mock.Anything, productA, 2).Return(8, nil).Once()
	scope.customers.On("CountOrders", mock.Anything, aliceEntry.ID).Return(int64(0), nil).Once()
	scope.orders.On("Create", mock.Anything, mock.AnythingOfType("*order.Order")).Return(nil).Once()

	pub := new(MockPublisher)
	pub.On("PublishOrderPlaced", mock.Anything, totalIs("180.00")).Return(errors.New("broker down")).Once()

	placed, err := newService(scope, order.WithPublisher(pub)).PlaceOrder(context.Background(), alice, order.PlaceOrderRequest{
		Items: []order.Item{{ProductID: productA, Quantity: 2}},
	})
	require.NoError(t, err, "a failed publish does not undo a committed order")
	require.NotNil(t, placed)
	pub.AssertExpectations(t)
}

func TestService_PlaceOrder_Idempotency(t *testing.T) {
	t.Run("duplicate key is rejected", func(t *testing.T) {
		scope := newFakeScope()
		guard := new(MockGuard)
		guard.On("Claim", mock.Anything, "req-1").Return(false, nil).Once()

		_, err := newService(scope, order.WithIdempotencyGuard(guard)).PlaceOrder(context.Background(), alice, order.PlaceOrderRequest{
			Items:          []order.Item{{ProductID: productA, Quantity: 1}},
			IdempotencyKey: "req-1",
		})
		require.ErrorIs(t, err, order.ErrDuplicateRequest)
		assert.Zero(t, scope.executions)
		guard.AssertExpectations(t)
	})

	t.Run("failed placement releases the key", func(t *testing.T) {
		scope := newFakeScope()
		scope.customers.On("FindByUsername", mock.Anything, "alice").Return(nil, customer.ErrNotFound).Once()
		guard := new(MockGuard)
		guard.On("Claim", mock.Anything, "req-2").Return(true, nil).Once()
		guard.On("Release", mock.Anything, "req-2").Return(nil).Once()

		_, err := newService(scope, order.WithIdempotencyGuard(guard)).PlaceOrder(context.Background(), alice, order.PlaceOrderRequest{
			Items:          []order.Item{{ProductID: productA, Quantity: 1}},
			IdempotencyKey: "req-2",
		})
		require.ErrorIs(t, err, order.ErrCustomerNotFound)
		guard.AssertExpectations(t)
	})
}

func TestService_GetOrderWithLines(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())

	t.Run("not found yields empty composite", func(t *testing.T) {
		scope := newFakeScope()
		scope.orders.On("GetByID", mock.Anything, orderID).Return(nil, order.ErrOrderNotFound).Once()

		got, err := newService(scope).GetOrderWithLines(context.Background(), orderID)
		require.NoError(t, err)
		assert.Nil(t, got.Order)
		assert.NotNil(t, got.Lines)
		assert.Empty(t, got.Lines)
	})

	t.Run("found splits lines from order", func(t *testing.T) {
		scope := newFakeScope()
		stored := &order.Order{
			ID:    orderID,
			Total: decimal.RequireFromString("180.00"),
			Lines: []order.Line{{OrderID: orderID, ProductID: productA, Quantity: 2}},
		}
		scope.orders.On("GetByID", mock.Anything, orderID).Return(stored, nil).Once()

		got, err := newService(scope).GetOrderWithLines(context.Background(), orderID)
		require.NoError(t, err)
		require.NotNil(t, got.Order)
		assert.Nil(t, got.Order.Lines)
		require.Len(t, got.Lines, 1)
		assert.Equal(t, productA, got.Lines[0].ProductID)
	})

	t.Run("storage failure is an error", func(t *testing.T) {
		scope := newFakeScope()
		boom := errors.New("timeout")
		scope.orders.On("GetByID", mock.Anything, orderID).Return(nil, boom).Once()

		_, err := newService(scope).GetOrderWithLines(context.Background(), orderID)
		require.ErrorIs(t, err, boom)
	})
}

func TestService_UpdateTotal(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())

	t.Run("admin corrects total", func(t *testing.T) {
		scope := newFakeScope()
		corrected := decimal.RequireFromString("99.99")
		scope.orders.On("UpdateTotal", mock.Anything, orderID, mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(corrected)
		})).Return(nil).Once()
		scope.orders.On("GetByID", mock.Anything, orderID).Return(&order.Order{ID: orderID, Total: corrected}, nil).Once()

		got, err := newService(scope).UpdateTotal(context.Background(), admin, orderID, decimal.RequireFromString("99.987"))
		require.NoError(t, err)
		assert.Equal(t, "99.99", got.Total.StringFixed(2))
		scope.assertExpectations(t)
	})

	t.Run("user is forbidden", func(t *testing.T) {
		scope := newFakeScope()
		_, err := newService(scope).UpdateTotal(context.Background(), alice, orderID, decimal.NewFromInt(1))
		require.ErrorIs(t, err, customer.ErrForbidden)
		assert.Zero(t, scope.executions)
	})

	t.Run("negative total", func(t *testing.T) {
		scope := newFakeScope()
		_, err := newService(scope).UpdateTotal(context.Background(), admin, orderID, decimal.NewFromInt(-1))
		require.ErrorIs(t, err, order.ErrValidation)
	})

	t.Run("unknown order", func(t *testing.T) {
		scope := newFakeScope()
		scope.orders.On("UpdateTotal", mock.Anything, orderID, mock.Anything).Return(order.ErrOrderNotFound).Once()

		_, err := newService(scope).UpdateTotal(context.Background(), admin, orderID, decimal.NewFromInt(1))
		require.ErrorIs(t, err, order.ErrOrderNotFound)
	})
}

func TestService_ListByCustomer(t *testing.T) {
	scope := newFakeScope()
	scope.customers.On("FindByUsername", mock.Anything, "alice").Return(aliceEntry, nil).Once()
	scope.orders.On("ListByCustomer", mock.Anything, aliceEntry.ID).Return([]order.Order{{CustomerID: aliceEntry.ID}}, nil).Once()

	orders, err := newService(scope).ListByCustomer(context.Background(), alice)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	scope.assertExpectations(t)
}

func TestService_ListAll(t *testing.T) {
	t.Run("admin", func(t *testing.T) {
		scope := newFakeScope()
		scope.orders.On("List", mock.Anything).Return([]order.Order{
			{ID: uuid.Must(uuid.NewV4()), CustomerID: aliceEntry.ID},
			{ID: uuid.Must(uuid.NewV4())},
		}, nil).Once()

		orders, err := newService(scope).ListAll(context.Background(), admin)
		require.NoError(t, err)
		assert.Len(t, orders, 2)
		scope.assertExpectations(t)
	})

	t.Run("user_forbidden", func(t *testing.T) {
		scope := newFakeScope()

		_, err := newService(scope).ListAll(context.Background(), alice)
		require.ErrorIs(t, err, customer.ErrForbidden)
		assert.Equal(t, 0, scope.executions)
	})
}
