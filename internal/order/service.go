package order

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/shop-core/internal/catalog"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
	"github.com/vasiliy-maslov/shop-core/internal/discount"
	"github.com/vasiliy-maslov/shop-core/internal/inventory"
)

type Service interface {
	PlaceOrder(ctx context.Context, caller customer.Principal, req PlaceOrderRequest) (*Order, error)
	GetOrderWithLines(ctx context.Context, id uuid.UUID) (OrderWithLines, error)
	UpdateTotal(ctx context.Context, caller customer.Principal, id uuid.UUID, total decimal.Decimal) (*Order, error)
	ListByCustomer(ctx context.Context, caller customer.Principal) ([]Order, error)
	ListAll(ctx context.Context, caller customer.Principal) ([]Order, error)
}

type Option func(*service)

func WithPublisher(p Publisher) Option {
	return func(s *service) { s.publisher = p }
}

func WithIdempotencyGuard(g IdempotencyGuard) Option {
	return func(s *service) { s.guard = g }
}

func WithRetry(cfg RetryConfig) Option {
	return func(s *service) { s.retry = cfg }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	scope     TransactionScope
	policy    discount.Policy
	publisher Publisher
	guard     IdempotencyGuard
	retry     RetryConfig
	now       func() time.Time
}

func NewService(scope TransactionScope, policy discount.Policy, opts ...Option) Service {
	s := &service{
		scope:     scope,
		policy:    policy,
		publisher: nopPublisher{},
		guard:     nopGuard{},
		retry:     DefaultRetryConfig(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) PlaceOrder(ctx context.Context, caller customer.Principal, req PlaceOrderRequest) (*Order, error) {
	if err := customer.Authorize(caller.Role, customer.OpPlaceOrder); err != nil {
		return nil, &PlacementError{State: StateValidating, Err: err}
	}
	if err := validateRequest(req); err != nil {
		log.Warn().Err(err).Str("username", caller.Username).Msg("service: order request rejected")
		return nil, &PlacementError{State: StateValidating, Err: err}
	}

	if req.IdempotencyKey != "" {
		claimed, err := s.guard.Claim(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, &PlacementError{State: StateValidating, Err: fmt.Errorf("service: failed to claim idempotency key: %w", err)}
		}
		if !claimed {
			log.Warn().Str("idempotency_key", req.IdempotencyKey).Msg("service: duplicate order request")
			return nil, &PlacementError{State: StateValidating, Err: ErrDuplicateRequest}
		}
	}

	placed, err := retryOnConflict(ctx, s.retry, func() (*Order, error) {
		return s.placeOnce(ctx, caller, req)
	})
	if err != nil {
		if req.IdempotencyKey != "" {
			if relErr := s.guard.Release(ctx, req.IdempotencyKey); relErr != nil {
				log.Error().Err(relErr).Str("idempotency_key", req.IdempotencyKey).Msg("service: failed to release idempotency key")
			}
		}
		return nil, err
	}

	log.Info().
		Stringer("order_id", placed.ID).
		Stringer("customer_id", placed.CustomerID).
		Str("total", placed.Total.StringFixed(2)).
		Str("discount", placed.Discount.String()).
		Int("lines", len(placed.Lines)).
		Msg("service: order placed")

	if err := s.publisher.PublishOrderPlaced(ctx, placed); err != nil {
		log.Error().Err(err).Stringer("order_id", placed.ID).Msg("service: failed to publish order placed event")
	}

	return placed, nil
}

func (s *service) placeOnce(ctx context.Context, caller customer.Principal, req PlaceOrderRequest) (*Order, error) {
	p := &placement{
		caller: caller,
		req:    req,
		policy: s.policy,
		now:    s.now().UTC(),
		state:  StateValidating,
	}

	err := s.scope.Execute(ctx, p.run)
	if err != nil {
		var perr *PlacementError
		if !errors.As(err, &perr) {
			// The transaction itself failed to commit.
			err = &PlacementError{State: StatePersisting, Err: err}
		}
		return nil, err
	}

	p.enter(StateCommitted)
	return p.order, nil
}

// placement carries one attempt through the placement states. All of its
// writes happen inside a single transaction.
type placement struct {
	caller customer.Principal
	req    PlaceOrderRequest
	policy discount.Policy
	now    time.Time

	state    State
	ledger   *inventory.Ledger
	reserved []Item
	order    *Order
}

func (p *placement) enter(next State) {
	log.Debug().Str("from", p.state.String()).Str("to", next.String()).Str("username", p.caller.Username).Msg("service: placement state")
	p.state = next
}

func (p *placement) fail(ctx context.Context, err error) error {
	failedIn := p.state
	p.compensate(ctx)
	p.enter(StateFailed)
	return &PlacementError{State: failedIn, Err: err}
}

func (p *placement) run(ctx context.Context, repos Repositories) error {
	p.ledger = inventory.NewLedger(repos.Inventory())

	buyer, err := customer.NewService(repos.Customers()).Resolve(ctx, p.caller.Username)
	if err != nil {
		return p.fail(ctx, err)
	}

	p.enter(StatePricing)
	prices := make(map[uuid.UUID]decimal.Decimal, len(p.req.Items))
	subtotal := decimal.Zero
	for _, item := range p.req.Items {
		price, ok := prices[item.ProductID]
		if !ok {
			product, err := repos.Products().GetByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, catalog.ErrProductNotFound) {
					return p.fail(ctx, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID))
				}
				return p.fail(ctx, fmt.Errorf("service: failed to load product %s: %w", item.ProductID, err))
			}
			price = product.Price
			prices[item.ProductID] = price
		}
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	p.enter(StateReserving)
	for _, item := range reservationOrder(p.req.Items) {
		if _, err := p.ledger.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			return p.fail(ctx, err)
		}
		p.reserved = append(p.reserved, item)
	}

	count, err := repos.Customers().CountOrders(ctx, buyer.ID)
	if err != nil {
		return p.fail(ctx, fmt.Errorf("service: failed to count customer orders: %w", err))
	}
	rate := p.policy.Rate(p.req.IsRandom, p.now, count)

	p.enter(StatePersisting)
	o, err := p.buildOrder(buyer.ID, rate, discount.ApplyRate(subtotal, rate), prices)
	if err != nil {
		return p.fail(ctx, err)
	}
	if err := repos.Orders().Create(ctx, o); err != nil {
		return p.fail(ctx, fmt.Errorf("service: failed to persist order: %w", err))
	}

	p.order = o
	return nil
}

func (p *placement) buildOrder(customerID uuid.UUID, rate, total decimal.Decimal, prices map[uuid.UUID]decimal.Decimal) (*Order, error) {
	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate order ID: %w", err)
	}

	o := &Order{
		ID:         orderID,
		CustomerID: customerID,
		PlacedAt:   p.now,
		Total:      total,
		Discount:   rate,
		IsRandom:   p.req.IsRandom,
		Lines:      make([]Line, 0, len(p.req.Items)),
	}
	for _, item := range p.req.Items {
		lineID, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("service: failed to generate order line ID: %w", err)
		}
		o.Lines = append(o.Lines, Line{
			ID:        lineID,
			OrderID:   orderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: prices[item.ProductID],
		})
	}
	return o, nil
}

// compensate hands back every reservation made by this attempt, newest
// first. The transaction is rolled back afterwards as well, so a failed
// release is logged and does not replace the placement error.
func (p *placement) compensate(ctx context.Context) {
	for i := len(p.reserved) - 1; i >= 0; i-- {
		item := p.reserved[i]
		if err := p.ledger.Release(ctx, item.ProductID, item.Quantity); err != nil {
			log.Warn().Err(err).Stringer("product_id", item.ProductID).Int("quantity", item.Quantity).Msg("service: compensating release failed")
		}
	}
	p.reserved = nil
}

// reservationOrder sorts basket entries by product ID so that concurrent
// placements lock inventory rows in the same order.
func reservationOrder(items []Item) []Item {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b Item) int {
		return bytes.Compare(a.ProductID.Bytes(), b.ProductID.Bytes())
	})
	return sorted
}

func validateRequest(req PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "basket is empty"}
	}
	for i, item := range req.Items {
		if item.ProductID == uuid.Nil {
			return &ValidationError{Field: fmt.Sprintf("items[%d].product_id", i), Reason: "is required"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Reason: "must be positive"}
		}
	}
	return nil
}

func (s *service) GetOrderWithLines(ctx context.Context, id uuid.UUID) (OrderWithLines, error) {
	result := OrderWithLines{Lines: []Line{}}

	err := s.scope.Execute(ctx, func(ctx context.Context, repos Repositories) error {
		o, err := repos.Orders().GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				log.Debug().Stringer("order_id", id).Msg("service: order not found, returning empty result")
				return nil
			}
			return err
		}
		if o.Lines != nil {
			result.Lines = o.Lines
		}
		o.Lines = nil
		result.Order = o
		return nil
	})
	if err != nil {
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order")
		return OrderWithLines{}, fmt.Errorf("service: failed to fetch order: %w", err)
	}

	return result, nil
}

// UpdateTotal is an administrative correction. Only the total changes.
func (s *service) UpdateTotal(ctx context.Context, caller customer.Principal, id uuid.UUID, total decimal.Decimal) (*Order, error) {
	if err := customer.Authorize(caller.Role, customer.OpCorrectOrderTotal); err != nil {
		return nil, err
	}
	if total.IsNegative() {
		return nil, &ValidationError{Field: "total", Reason: "cannot be negative"}
	}
	total = total.Round(2)

	var updated *Order
	err := s.scope.Execute(ctx, func(ctx context.Context, repos Repositories) error {
		if err := repos.Orders().UpdateTotal(ctx, id, total); err != nil {
			return err
		}
		o, err := repos.Orders().GetByID(ctx, id)
		if err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", id).Msg("service: order not found for total correction")
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to update order total: %w", err)
	}

	log.Info().Stringer("order_id", id).Str("total", total.StringFixed(2)).Str("by", caller.Username).Msg("service: order total corrected")
	return updated, nil
}

func (s *service) ListByCustomer(ctx context.Context, caller customer.Principal) ([]Order, error) {
	if err := customer.Authorize(caller.Role, customer.OpViewOwnOrders); err != nil {
		return nil, err
	}

	var orders []Order
	err := s.scope.Execute(ctx, func(ctx context.Context, repos Repositories) error {
		buyer, err := customer.NewService(repos.Customers()).Resolve(ctx, caller.Username)
		if err != nil {
			return err
		}
		orders, err = repos.Orders().ListByCustomer(ctx, buyer.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) || errors.Is(err, ErrCustomerInactive) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to list customer orders: %w", err)
	}
	return orders, nil
}

// ListAll returns every order, newest first.
func (s *service) ListAll(ctx context.Context, caller customer.Principal) ([]Order, error) {
	if err := customer.Authorize(caller.Role, customer.OpViewAnyOrder); err != nil {
		return nil, err
	}

	var orders []Order
	err := s.scope.Execute(ctx, func(ctx context.Context, repos Repositories) error {
		var err error
		orders, err = repos.Orders().List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}
