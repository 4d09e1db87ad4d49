package cart

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const mergeLockPrefix = "cart_merge:"

type mergeLocker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// Service exposes cart mutation and guest reconciliation operations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartView, error)
	Add(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartView, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartView, error)
	Remove(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error)
	Clear(ctx context.Context, userID uuid.UUID) (*CartView, error)
	Merge(ctx context.Context, userID uuid.UUID, items []GuestItem) (*CartView, error)
	ValidateGuest(ctx context.Context, items []GuestItem) ([]ValidatedGuestItem, error)
}

// AddItemInput is the validated payload for Add.
type AddItemInput struct {
	ProductID uuid.UUID
	Size      enums.ProductSize
	Quantity  int
}

type service struct {
	repo     CartRepository
	products productLoader
	locker   mergeLocker
	cfg      config.CartConfig
	logg     *logger.Logger
}

// NewService builds a cart service. locker may be nil, in which case merges
// run unguarded.
func NewService(repo CartRepository, products productLoader, locker mergeLocker, cfg config.CartConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		products: products,
		locker:   locker,
		cfg:      cfg,
		logg:     logg,
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return s.view(ctx, cart)
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartView, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Quantity must be a positive integer")
	}
	if !input.Size.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Size must be S, M, L, or XL")
	}

	product, err := s.loadProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.OffersSize(input.Size) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid size for this product")
	}
	if !product.InStock {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Product is out of stock")
	}

	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	if err := s.addLine(ctx, cart.ID, product, input.Size, input.Quantity, true); err != nil {
		return nil, err
	}
	return s.reload(ctx, userID)
}

// addLine creates the (product, size) line or grows the existing one. A
// create that loses a race on the line index retries once as a grow.
func (s *service) addLine(ctx context.Context, cartID uuid.UUID, product *models.Product, size enums.ProductSize, quantity int, retry bool) error {
	existing, err := s.repo.FindLine(ctx, cartID, product.ID, size)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}

	if existing == nil {
		if quantity > product.Stock {
			return pkgerrors.Newf(pkgerrors.CodeInsufficientStock, "Only %d items available in stock", product.Stock).
				WithDetails(stockDetail(product.Stock, quantity))
		}
		item := &models.CartItem{CartID: cartID, ProductID: product.ID, Size: size, Quantity: quantity}
		if err := s.repo.CreateItem(ctx, item); err != nil {
			if retry && db.IsUniqueViolation(err, "") {
				return s.addLine(ctx, cartID, product, size, quantity, false)
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
		}
		return nil
	}

	if existing.Quantity+quantity > product.Stock {
		headroom := max(product.Stock-existing.Quantity, 0)
		return pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
			"Cannot add %d items. Only %d more available in stock", quantity, headroom).
			WithDetails(stockDetail(headroom, quantity))
	}
	if err := s.repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+quantity); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
	}
	return nil
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartView, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Quantity must be a positive integer")
	}

	cart, item, err := s.findItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.loadProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	others, err := s.repo.SumOtherLines(ctx, cart.ID, item.ProductID, item.Size, item.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum cart lines")
	}
	available := product.Stock - others
	if quantity > available {
		return nil, pkgerrors.Newf(pkgerrors.CodeInsufficientStock, "Only %d items available in stock", max(available, 0)).
			WithDetails(stockDetail(max(available, 0), quantity))
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
	}
	return s.reload(ctx, userID)
}

func (s *service) Remove(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	removed, err := s.repo.DeleteItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart line")
	}
	if removed == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Cart item not found")
	}
	return s.reload(ctx, userID)
}

// Clear empties the cart. A missing cart is created empty so the call
// always succeeds.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if len(cart.Items) > 0 {
		if err := s.repo.ClearItems(ctx, cart.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		cart.Items = nil
	}
	return s.view(ctx, cart)
}

// Merge folds guest lines into the user's cart, skipping anything invalid and
// clamping quantities to stock. Only storage failures surface as errors.
func (s *service) Merge(ctx context.Context, userID uuid.UUID, items []GuestItem) (*CartView, error) {
	if s.locker != nil {
		lockName := mergeLockPrefix + userID.String()
		token, err := s.locker.AcquireLock(ctx, lockName, s.cfg.MergeLockTTL)
		switch {
		case err != nil:
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart merge lock unavailable; merging unguarded")
		case token == "":
			s.logg.Info(ctx, "cart merge already in progress")
			return s.Get(ctx, userID)
		default:
			defer func() {
				if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), lockName, token); err != nil {
					s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "release cart merge lock")
				}
			}()
		}
	}

	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}

	candidates, err := s.resolveGuest(ctx, items)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if err := s.mergeLine(ctx, cart.ID, c); err != nil {
			return nil, err
		}
	}
	return s.reload(ctx, userID)
}

func (s *service) mergeLine(ctx context.Context, cartID uuid.UUID, c guestCandidate) error {
	existing, err := s.repo.FindLine(ctx, cartID, c.product.ID, c.size)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}

	if existing != nil {
		quantity := min(existing.Quantity+c.quantity, c.product.Stock)
		if quantity == existing.Quantity {
			return nil
		}
		if err := s.repo.UpdateItemQuantity(ctx, existing.ID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
		}
		return nil
	}

	quantity := min(c.quantity, c.product.Stock)
	if quantity <= 0 {
		return nil
	}
	item := &models.CartItem{CartID: cartID, ProductID: c.product.ID, Size: c.size, Quantity: quantity}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
	}
	return nil
}

func (s *service) ValidateGuest(ctx context.Context, items []GuestItem) ([]ValidatedGuestItem, error) {
	candidates, err := s.resolveGuest(ctx, items)
	if err != nil {
		return nil, err
	}

	out := make([]ValidatedGuestItem, 0, len(candidates))
	for _, c := range candidates {
		quantity := min(c.quantity, c.product.Stock)
		if quantity <= 0 {
			continue
		}
		out = append(out, ValidatedGuestItem{Product: c.product.ID, Size: string(c.size), Quantity: quantity})
	}
	return out, nil
}

type guestCandidate struct {
	product  models.Product
	size     enums.ProductSize
	quantity int
}

// resolveGuest drops malformed, unknown, unavailable and unoffered lines.
func (s *service) resolveGuest(ctx context.Context, items []GuestItem) ([]guestCandidate, error) {
	type parsed struct {
		productID uuid.UUID
		size      enums.ProductSize
		quantity  int
	}

	var lines []parsed
	var ids []uuid.UUID
	seen := map[uuid.UUID]struct{}{}
	for _, item := range items {
		id, err := uuid.Parse(item.Product)
		if err != nil {
			continue
		}
		size, err := enums.ParseProductSize(item.Size)
		if err != nil {
			continue
		}
		quantity, ok := positiveInt(item.Quantity)
		if !ok {
			continue
		}
		lines = append(lines, parsed{productID: id, size: size, quantity: quantity})
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(lines) == 0 {
		return nil, nil
	}

	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	out := make([]guestCandidate, 0, len(lines))
	for _, line := range lines {
		product, ok := catalog[line.productID]
		if !ok || !product.InStock || !product.OffersSize(line.size) {
			continue
		}
		out = append(out, guestCandidate{product: product, size: line.size, quantity: line.quantity})
	}
	return out, nil
}

func positiveInt(v float64) (int, bool) {
	if v < 1 || v != math.Trunc(v) || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

func (s *service) findItem(ctx context.Context, userID, itemID uuid.UUID) (*models.Cart, *models.CartItem, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "Cart not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			return cart, &cart.Items[i], nil
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "Cart item not found")
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

func (s *service) reload(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload cart")
	}
	return s.view(ctx, cart)
}

func (s *service) view(ctx context.Context, cart *models.Cart) (*CartView, error) {
	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart products")
	}
	return buildView(cart, catalog), nil
}

func stockDetail(available, requested int) string {
	return fmt.Sprintf("%d requested, %d available", requested, available)
}
