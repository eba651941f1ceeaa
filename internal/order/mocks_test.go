package order_test

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/vasiliy-maslov/shop-core/internal/catalog"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
	"github.com/vasiliy-maslov/shop-core/internal/inventory"
	"github.com/vasiliy-maslov/shop-core/internal/order"
)

type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) SearchByName(ctx context.Context, fragment string) ([]catalog.Product, error) {
	args := m.Called(ctx, fragment)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) SearchByPrice(ctx context.Context, min, max decimal.Decimal) ([]catalog.Product, error) {
	args := m.Called(ctx, min, max)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, p *catalog.Product, initialStock int) error {
	return m.Called(ctx, p, initialStock).Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockInventoryRepository struct {
	mock.Mock
}

func (m *MockInventoryRepository) Get(ctx context.Context, productID uuid.UUID) (*inventory.Record, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Record), args.Error(1)
}

func (m *MockInventoryRepository) List(ctx context.Context) ([]inventory.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.Record), args.Error(1)
}

func (m *MockInventoryRepository) Decrement(ctx context.Context, productID uuid.UUID, qty int) (int, error) {
	args := m.Called(ctx, productID, qty)
	return args.Int(0), args.Error(1)
}

func (m *MockInventoryRepository) Increment(ctx context.Context, productID uuid.UUID, qty int) (int, error) {
	args := m.Called(ctx, productID, qty)
	return args.Int(0), args.Error(1)
}

func (m *MockInventoryRepository) SetStock(ctx context.Context, productID uuid.UUID, stock int) error {
	return m.Called(ctx, productID, stock).Error(0)
}

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCustomerRepository) FindByUsername(ctx context.Context, username string) (*customer.Customer, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) ListActive(ctx context.Context) ([]customer.Customer, error) {
	args := m.Called(ctx)
	return args.Get(0).([]customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCustomerRepository) CountOrders(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	return m.Called(ctx, id, total).Error(0)
}

func (m *MockOrderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]order.Order, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context) ([]order.Order, error) {
	args := m.Called(ctx)
	return args.Get(0).([]order.Order), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishOrderPlaced(ctx context.Context, o *order.Order) error {
	return m.Called(ctx, o).Error(0)
}

type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) Claim(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockGuard) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// fakeScope hands the same mocked repositories to every transaction.
type fakeScope struct {
	products  *MockProductRepository
	inventory *MockInventoryRepository
	customers *MockCustomerRepository
	orders    *MockOrderRepository

	executions int
}

func newFakeScope() *fakeScope {
	return &fakeScope{
		products:  new(MockProductRepository),
		inventory: new(MockInventoryRepository),
		customers: new(MockCustomerRepository),
		orders:    new(MockOrderRepository),
	}
}

func (s *fakeScope) Execute(ctx context.Context, fn func(ctx context.Context, repos order.Repositories) error) error {
	s.executions++
	return fn(ctx, s)
}

func (s *fakeScope) Products() catalog.Repository    { return s.products }
func (s *fakeScope) Inventory() inventory.Repository { return s.inventory }
func (s *fakeScope) Customers() customer.Repository  { return s.customers }
func (s *fakeScope) Orders() order.Repository        { return s.orders }

func (s *fakeScope) assertExpectations(t mock.TestingT) {
	s.products.AssertExpectations(t)
	s.inventory.AssertExpectations(t)
	s.customers.AssertExpectations(t)
	s.orders.AssertExpectations(t)
}
