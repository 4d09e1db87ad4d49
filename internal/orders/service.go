package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service defines order history reads and status transitions.
type Service interface {
	ListForUser(ctx context.Context, userID uuid.UUID, input ListInput) (*OrderList, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
}

type service struct {
	repo  Repository
	users userLoader
}

// NewService builds the orders service.
func NewService(repo Repository, users userLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	return &service{repo: repo, users: users}, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, input ListInput) (*OrderList, error) {
	if input.Filters.Status != nil && !input.Filters.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	params := pagination.Normalize(input.Page, input.Limit, DefaultListLimit, MaxListLimit)
	rows, total, err := s.repo.ListForUser(ctx, userID, input.Filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewOrderDTO(row, nil))
	}
	return &OrderList{Orders: out, Pagination: params.MetaFor(total)}, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOwned(ctx, userID, orderID, "Not authorized to view this order")
	if err != nil {
		return nil, err
	}
	return s.withUser(ctx, order)
}

// UpdateStatus moves an order to status. Cancelled orders are frozen, and the
// write itself is conditional so a cancel that lands between the read and the
// write is never overwritten.
func (s *service) UpdateStatus(ctx context.Context, userID, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"Invalid status. Must be one of: PENDING, PAID, PROCESSING, SHIPPED, DELIVERED, CANCELLED")
	}

	order, err := s.loadOwned(ctx, userID, orderID, "Not authorized to update this order")
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, cancelledErr(order.Status)
	}
	if order.Status == status {
		return s.withUser(ctx, order)
	}

	affected, err := s.repo.UpdateStatusUnlessCancelled(ctx, order.ID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}

	current, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
	}
	if affected == 0 && current.Status.IsTerminal() {
		return nil, cancelledErr(current.Status)
	}
	return s.withUser(ctx, current)
}

func cancelledErr(current enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "Cannot update status of cancelled order").
		WithDetails("Current status: " + string(current))
}

func (s *service) loadOwned(ctx context.Context, userID, orderID uuid.UUID, forbidden string) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, forbidden)
	}
	return order, nil
}

func (s *service) withUser(ctx context.Context, order *models.Order) (*OrderDTO, error) {
	user, err := s.users.FindByID(ctx, order.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order owner")
	}
	dto := NewOrderDTO(*order, user)
	return &dto, nil
}
