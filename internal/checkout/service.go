// Package checkout turns a user's cart into an order in one transaction.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout/reservation"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	defaultMaxAttempts = 3
	orderNumberIndex   = "ux_orders_order_number"
)

var errOrderNumberTaken = errors.New("order number already taken")

// CreateOrderInput carries the checkout form.
type CreateOrderInput struct {
	ShippingAddress *types.ShippingAddress
	PaymentMethod   enums.PaymentMethod
}

// Service converts carts into orders.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*orders.OrderDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type orderNotifier interface {
	OrderPlaced(ctx context.Context, order models.Order)
}

// ServiceParams groups the checkout dependencies.
type ServiceParams struct {
	TxRunner    txRunner
	Carts       cart.CartRepository
	Products    *products.Repository
	Orders      orders.Repository
	Users       userLoader
	Notifier    orderNotifier
	Metrics     *metrics.CheckoutMetrics
	OrderNumber OrderNumberFunc
	Config      config.CheckoutConfig
	Logger      *logger.Logger
}

type service struct {
	tx          txRunner
	carts       cart.CartRepository
	products    *products.Repository
	orders      orders.Repository
	users       userLoader
	notifier    orderNotifier
	metrics     *metrics.CheckoutMetrics
	orderNumber OrderNumberFunc
	maxAttempts int
	logg        *logger.Logger
	now         func() time.Time
}

// NewService validates and wires the checkout dependencies. Notifier and
// Metrics are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	gen := params.OrderNumber
	if gen == nil {
		var err error
		if gen, err = NewOrderNumberGenerator(); err != nil {
			return nil, err
		}
	}
	attempts := params.Config.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return &service{
		tx:          params.TxRunner,
		carts:       params.Carts,
		products:    params.Products,
		orders:      params.Orders,
		users:       params.Users,
		notifier:    params.Notifier,
		metrics:     params.Metrics,
		orderNumber: gen,
		maxAttempts: attempts,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*orders.OrderDTO, error) {
	method := input.PaymentMethod
	if method == "" {
		method = enums.DefaultPaymentMethod
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid payment method")
	}

	started := s.now()
	ctx = s.logg.WithUserID(ctx, userID.String())

	var (
		order *models.Order
		err   error
	)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		order, err = s.placeOrder(ctx, userID, input.ShippingAddress, method)
		if !errors.Is(err, errOrderNumberTaken) {
			break
		}
		s.metrics.IncRetry()
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "order number collision, retrying checkout")
	}
	if err != nil {
		s.metrics.Observe(outcomeFor(err), time.Since(started))
		if errors.Is(err, errOrderNumberTaken) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not allocate order number")
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	s.metrics.Observe(metrics.OutcomeSuccess, time.Since(started))
	s.metrics.RecordOrder(unitsIn(order), order.TotalCents)

	logCtx := s.logg.WithOrderNumber(ctx, order.OrderNumber)
	s.logg.Info(logCtx, "order created")
	if s.notifier != nil {
		s.notifier.OrderPlaced(logCtx, *order)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logg.Error(logCtx, "load order owner", err)
		user = nil
	}
	dto := orders.NewOrderDTO(*order, user)
	return &dto, nil
}

// placeOrder is one attempt of the unit of work. Returning an error rolls
// back every write it made.
func (s *service) placeOrder(ctx context.Context, userID uuid.UUID, address *types.ShippingAddress, method enums.PaymentMethod) (*models.Order, error) {
	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		userCart, err := carts.FindByUser(ctx, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load cart: %w", err)
		}
		if userCart == nil || len(userCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "Cart is empty. Add items to cart before checkout.")
		}

		ids := make([]uuid.UUID, 0, len(userCart.Items))
		for _, item := range userCart.Items {
			ids = append(ids, item.ProductID)
		}
		catalog, err := s.products.WithTx(tx).FindByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("load cart products: %w", err)
		}

		if violations := validateLines(userCart.Items, catalog); violations != nil {
			return unavailable(violations)
		}

		requests := make([]reservation.StockRequest, 0, len(userCart.Items))
		for _, item := range userCart.Items {
			requests = append(requests, reservation.StockRequest{
				CartItemID: item.ID,
				ProductID:  item.ProductID,
				Size:       item.Size,
				Quantity:   item.Quantity,
			})
		}
		results, err := reservation.ReserveStock(ctx, tx, requests)
		if err != nil {
			return err
		}
		var violations error
		for _, res := range results {
			if !res.Reserved {
				violations = multierr.Append(violations, errors.New(res.Reason))
			}
		}
		if violations != nil {
			return unavailable(violations)
		}

		order := &models.Order{
			OrderNumber:     s.orderNumber(s.now()),
			UserID:          userID,
			Status:          enums.OrderStatusPending,
			ShippingAddress: address,
			PaymentMethod:   method,
			Items:           make([]models.OrderItem, 0, len(userCart.Items)),
		}
		for i, item := range userCart.Items {
			product := catalog[item.ProductID]
			line := models.OrderItem{
				ProductID:      product.ID,
				Name:           product.Name,
				Size:           item.Size,
				UnitPriceCents: product.PriceCents,
				Quantity:       item.Quantity,
				ImageURL:       product.ImageURL,
				Position:       i,
			}
			order.TotalCents += line.LineTotalCents()
			order.Items = append(order.Items, line)
		}

		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, orderNumberIndex) || db.IsUniqueViolation(err, "order_number") {
				return fmt.Errorf("%w: %v", errOrderNumberTaken, err)
			}
			return fmt.Errorf("insert order: %w", err)
		}
		lineIDs := make([]uuid.UUID, 0, len(userCart.Items))
		for _, item := range userCart.Items {
			lineIDs = append(lineIDs, item.ID)
		}
		if err := carts.DeleteItems(ctx, userCart.ID, lineIDs); err != nil {
			return fmt.Errorf("clear ordered lines: %w", err)
		}
		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// validateLines checks every line against the loaded products and returns
// one error per offending line, or nil.
func validateLines(items []models.CartItem, catalog map[uuid.UUID]models.Product) error {
	var violations error
	for _, item := range items {
		product, ok := catalog[item.ProductID]
		if !ok {
			violations = multierr.Append(violations, errors.New(reservation.MissingProductReason(item.ProductID)))
			continue
		}
		if reason := reservation.ShortfallReason(product, item.Size, item.Quantity); reason != "" {
			violations = multierr.Append(violations, errors.New(reason))
		}
	}
	return violations
}

func unavailable(violations error) error {
	errs := multierr.Errors(violations)
	details := make([]string, 0, len(errs))
	for _, e := range errs {
		details = append(details, e.Error())
	}
	return pkgerrors.New(pkgerrors.CodeCartItemsUnavailable, "Some items in your cart are no longer available").
		WithDetails(details...)
}

func outcomeFor(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart):
		return metrics.OutcomeEmptyCart
	case pkgerrors.IsCode(err, pkgerrors.CodeCartItemsUnavailable):
		return metrics.OutcomeUnavailable
	default:
		return metrics.OutcomeError
	}
}

func unitsIn(order *models.Order) int {
	units := 0
	for _, item := range order.Items {
		units += item.Quantity
	}
	return units
}
