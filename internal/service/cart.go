package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JKeiyuru/cornells-sub002/internal/messaging"
	"github.com/JKeiyuru/cornells-sub002/internal/models"
	"github.com/JKeiyuru/cornells-sub002/internal/notify"
	"github.com/JKeiyuru/cornells-sub002/internal/repo"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
	"github.com/JKeiyuru/cornells-sub002/internal/util"
	"github.com/JKeiyuru/cornells-sub002/pkg/logging"
	"github.com/JKeiyuru/cornells-sub002/pkg/telemetry"
)

const DefaultCartTTL = 7 * 24 * time.Hour

type CartService struct {
	Repo     *repo.GormRepo
	Notifier *notify.Dispatcher
	Metrics  *telemetry.Metrics

	// TTL is measured from a line's last update.
	TTL time.Duration
	Now func() time.Time
}

type CartView struct {
	Items      []models.CartItem `json:"items"`
	Subtotal   float64           `json:"subtotal"`
	TotalItems int               `json:"totalItems"`
	Removed    int               `json:"removedItems"`
	Adjusted   int               `json:"adjustedItems"`
}

type CouponQuote struct {
	Code     string  `json:"code"`
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

func (s *CartService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *CartService) notBefore() time.Time {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return s.now().Add(-ttl)
}

func validateCartQuantity(q int) error {
	if q < models.MinCartQuantity || q > models.MaxCartQuantity {
		return invalid("quantity", fmt.Sprintf("must be between %d and %d", models.MinCartQuantity, models.MaxCartQuantity))
	}
	return nil
}

func (s *CartService) activeProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, translate(err, "product")
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: product is no longer available", ErrNotFound)
	}
	return p, nil
}

func shortOf(p *models.Product, requested int) error {
	return &StockError{Items: []StockShortage{{ProductID: p.ID, Title: p.Title, Requested: requested, Available: p.Stock}}}
}

// AddToCart merges into an existing (product, size, color) line when there is one.
func (s *CartService) AddToCart(ctx context.Context, actor Actor, req transport.AddToCartRequest) (*models.CartItem, error) {
	ve := &ValidationError{}
	if req.ProductID == uuid.Nil {
		ve.Add("productId", "is required")
	}
	if req.Quantity < models.MinCartQuantity || req.Quantity > models.MaxCartQuantity {
		ve.Add("quantity", fmt.Sprintf("must be between %d and %d", models.MinCartQuantity, models.MaxCartQuantity))
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	p, err := s.activeProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	size, color := strings.TrimSpace(req.Size), strings.TrimSpace(req.Color)

	line, err := s.Repo.FindCartLine(ctx, actor.ID, p.ID, size, color)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		line = nil
	case err != nil:
		return nil, err
	}

	qty := req.Quantity
	if line != nil && !line.UpdatedAt.Before(s.notBefore()) {
		qty += line.Quantity
	}
	if qty > models.MaxCartQuantity {
		return nil, invalid("quantity", fmt.Sprintf("a cart line holds at most %d units", models.MaxCartQuantity))
	}
	if qty > p.Stock {
		return nil, shortOf(p, qty)
	}

	price := p.EffectivePrice()
	if line == nil {
		line = &models.CartItem{
			UserID:    actor.ID,
			ProductID: p.ID,
			Size:      size,
			Color:     color,
			Quantity:  qty,
			Price:     price,
			Title:     p.Title,
			Image:     p.FirstImage(),
		}
		if err := s.Repo.CreateCartItem(ctx, line); err != nil {
			return nil, translate(err, "cart item")
		}
	} else {
		now := s.now()
		err := s.Repo.UpdateCartItem(ctx, line.ID, map[string]any{
			"quantity":   qty,
			"price":      price,
			"title":      p.Title,
			"image":      p.FirstImage(),
			"updated_at": now,
		})
		if err != nil {
			return nil, translate(err, "cart item")
		}
		line.Quantity, line.Price, line.Title, line.Image, line.UpdatedAt = qty, price, p.Title, p.FirstImage(), now
	}

	s.Notifier.Dispatch(ctx, messaging.TopicCarts, actor.ID.String(), notify.NewEvent("cart_item_added", actor.ID, map[string]any{
		"productId": p.ID,
		"quantity":  req.Quantity,
	}))
	return line, nil
}

func (s *CartService) ownedLine(ctx context.Context, actor Actor, id uuid.UUID) (*models.CartItem, error) {
	item, err := s.Repo.GetCartItem(ctx, id)
	if err != nil {
		return nil, translate(err, "cart item")
	}
	if !actor.Owns(item.UserID) {
		return nil, fmt.Errorf("%w: not your cart item", ErrForbidden)
	}
	return item, nil
}

func (s *CartService) UpdateCartItem(ctx context.Context, actor Actor, id uuid.UUID, quantity int) (*models.CartItem, error) {
	if err := validateCartQuantity(quantity); err != nil {
		return nil, err
	}
	item, err := s.ownedLine(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	p, err := s.activeProduct(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if quantity > p.Stock {
		return nil, shortOf(p, quantity)
	}

	now := s.now()
	price := p.EffectivePrice()
	if err := s.Repo.UpdateCartItem(ctx, id, map[string]any{"quantity": quantity, "price": price, "updated_at": now}); err != nil {
		return nil, translate(err, "cart item")
	}
	item.Quantity, item.Price, item.UpdatedAt = quantity, price, now
	return item, nil
}

func (s *CartService) RemoveCartItem(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.ownedLine(ctx, actor, id); err != nil {
		return err
	}
	return s.Repo.DeleteCartItems(ctx, []uuid.UUID{id})
}

func (s *CartService) ClearCart(ctx context.Context, actor Actor) (int64, error) {
	return s.Repo.ClearCart(ctx, actor.ID)
}

func (s *CartService) CartCount(ctx context.Context, actor Actor) (lines, units int64, err error) {
	return s.Repo.CartCount(ctx, actor.ID, s.notBefore())
}

// GetCart reconciles every live line against the catalog before returning
// it: lines of vanished products are dropped, stale prices refreshed and
// quantities clamped to stock. Corrections are persisted and counted.
func (s *CartService) GetCart(ctx context.Context, actor Actor) (*CartView, error) {
	l := logging.FromContext(ctx).With("component", "cart_service")

	items, err := s.Repo.GetCart(ctx, actor.ID, s.notBefore())
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &CartView{Items: make([]models.CartItem, 0, len(items))}
	var dropped []uuid.UUID
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok || !p.IsActive {
			dropped = append(dropped, it.ID)
			continue
		}

		price := p.EffectivePrice()
		qty := it.Quantity
		if qty > p.Stock {
			qty = max(p.Stock, models.MinCartQuantity)
		}
		if price != it.Price || qty != it.Quantity {
			if err := s.Repo.CorrectCartItem(ctx, it.ID, price, qty); err != nil {
				return nil, err
			}
			it.Price, it.Quantity = price, qty
			view.Adjusted++
		}

		view.Items = append(view.Items, it)
		view.Subtotal += it.Price * float64(it.Quantity)
		view.TotalItems += it.Quantity
	}

	if len(dropped) > 0 {
		if err := s.Repo.DeleteCartItems(ctx, dropped); err != nil {
			return nil, err
		}
		view.Removed = len(dropped)
	}
	view.Subtotal = roundMoney(view.Subtotal)

	if view.Removed+view.Adjusted > 0 {
		l.Info("cart_reconciled", "user_id", actor.ID, "removed", view.Removed, "adjusted", view.Adjusted)
		s.Metrics.CartReconciled(ctx, view.Removed, view.Adjusted)
	}
	return view, nil
}

// MoveToWishlist drops the cart line and records the product on the wishlist.
func (s *CartService) MoveToWishlist(ctx context.Context, actor Actor, id uuid.UUID) error {
	item, err := s.ownedLine(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.AddWishlistItem(ctx, &models.WishlistItem{UserID: actor.ID, ProductID: item.ProductID}); err != nil {
			return err
		}
		return tx.DeleteCartItems(ctx, []uuid.UUID{item.ID})
	})
}

func (s *CartService) ListWishlist(ctx context.Context, actor Actor) ([]models.WishlistItem, error) {
	return s.Repo.ListWishlist(ctx, actor.ID)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func couponDiscount(c *models.Coupon, subtotal float64) float64 {
	var d float64
	switch c.DiscountType {
	case models.DiscountPercent:
		d = subtotal * c.DiscountValue / 100
	case models.DiscountFixed:
		d = c.DiscountValue
	}
	return roundMoney(math.Min(d, subtotal))
}

// ApplyCoupon prices the reconciled cart with the coupon; nothing is stored.
func (s *CartService) ApplyCoupon(ctx context.Context, actor Actor, code string) (*CouponQuote, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, invalid("code", "is required")
	}

	c, err := s.Repo.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("code", "coupon is invalid or expired")
		}
		return nil, err
	}
	if !c.IsActive || (c.ExpiresAt != nil && !c.ExpiresAt.After(s.now())) {
		return nil, invalid("code", "coupon is invalid or expired")
	}

	cart, err := s.GetCart(ctx, actor)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, invalid("cart", "cart is empty")
	}
	if cart.Subtotal < c.MinSubtotal {
		return nil, invalid("code", fmt.Sprintf("requires a subtotal of at least %.2f", c.MinSubtotal))
	}

	discount := couponDiscount(c, cart.Subtotal)
	return &CouponQuote{
		Code:     c.Code,
		Subtotal: cart.Subtotal,
		Discount: discount,
		Total:    roundMoney(cart.Subtotal - discount),
	}, nil
}

func (s *CartService) CreateCoupon(ctx context.Context, actor Actor, req transport.CreateCouponRequest) (*models.Coupon, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	c := &models.Coupon{
		Code:          normalizeCode(req.Code),
		DiscountType:  strings.ToLower(strings.TrimSpace(req.DiscountType)),
		DiscountValue: req.DiscountValue,
		MinSubtotal:   req.MinSubtotal,
		ExpiresAt:     req.ExpiresAt,
		IsActive:      true,
	}

	ve := &ValidationError{}
	if c.Code == "" {
		ve.Add("code", "is required")
	}
	switch c.DiscountType {
	case models.DiscountPercent:
		if c.DiscountValue <= 0 || c.DiscountValue > 100 {
			ve.Add("discountValue", "must be between 0 and 100 for percent coupons")
		}
	case models.DiscountFixed:
		if c.DiscountValue <= 0 {
			ve.Add("discountValue", "must be greater than 0")
		}
	default:
		ve.Add("discountType", "must be percent or fixed")
	}
	if c.MinSubtotal < 0 {
		ve.Add("minSubtotal", "must not be negative")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	if err := s.Repo.CreateCoupon(ctx, c); err != nil {
		return nil, translate(err, "coupon")
	}
	return c, nil
}

type CartLinePage struct {
	Items []models.CartItem
	Total int64
	Page  util.Page
}

func (s *CartService) AllCarts(ctx context.Context, actor Actor, page, size int) (*CartLinePage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	offset, limit := util.Calculate(page, size)
	total, items, err := s.Repo.AllCartItems(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return &CartLinePage{Items: items, Total: total, Page: util.NewPage(offset, limit, total)}, nil
}

func (s *CartService) SweepExpired(ctx context.Context) (int64, error) {
	return s.Repo.DeleteExpiredCartItems(ctx, s.notBefore())
}

// RunSweeper deletes expired lines every interval until ctx is done.
func (s *CartService) RunSweeper(ctx context.Context, interval time.Duration) {
	l := logging.FromContext(ctx).With("component", "cart_sweeper")
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.SweepExpired(ctx)
			if err != nil {
				l.Error("cart_sweep_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("cart_sweep_done", "deleted", n)
			}
		}
	}
}
