package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JKeiyuru/cornells-sub002/internal/messaging"
	"github.com/JKeiyuru/cornells-sub002/internal/models"
	"github.com/JKeiyuru/cornells-sub002/internal/notify"
	"github.com/JKeiyuru/cornells-sub002/internal/repo"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
	"github.com/JKeiyuru/cornells-sub002/internal/util"
	"github.com/JKeiyuru/cornells-sub002/pkg/db"
	"github.com/JKeiyuru/cornells-sub002/pkg/logging"
	"github.com/JKeiyuru/cornells-sub002/pkg/telemetry"
)

const (
	orderNumberAttempts = 3
	totalTolerance      = 0.01
)

var errOrderNumberTaken = errors.New("order number taken")

// adminCancelBlocked only stops a repeat cancel; admins may cancel shipped
// or delivered orders through UpdateOrder.
var adminCancelBlocked = []string{models.OrderCancelled}

type OrderService struct {
	Repo     *repo.GormRepo
	Notifier *notify.Dispatcher
	Metrics  *telemetry.Metrics

	Now         func() time.Time
	OrderNumber func(time.Time) string
}

// NewOrderNumber formats ORD-<last 8 digits of unix millis>-<3 random digits>.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%08d-%03d", now.UnixMilli()%100_000_000, rand.IntN(1000))
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *OrderService) nextNumber(now time.Time) string {
	if s.OrderNumber != nil {
		return s.OrderNumber(now)
	}
	return NewOrderNumber(now)
}

func validateCreateOrder(req transport.CreateOrderRequest) error {
	ve := &ValidationError{}

	if len(req.Items) == 0 {
		ve.Add("items", "at least one item is required")
	}
	for i, it := range req.Items {
		if it.ProductID == uuid.Nil {
			ve.Add(fmt.Sprintf("items[%d].productId", i), "is required")
		}
		if it.Quantity < 1 {
			ve.Add(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
	}

	addr := req.ShippingAddress
	if strings.TrimSpace(addr.Street) == "" {
		ve.Add("shippingAddress.street", "is required")
	}
	if strings.TrimSpace(addr.City) == "" {
		ve.Add("shippingAddress.city", "is required")
	}
	if strings.TrimSpace(addr.Country) == "" {
		ve.Add("shippingAddress.country", "is required")
	}

	switch {
	case req.PaymentMethod == "":
		ve.Add("paymentMethod", "is required")
	case !models.ValidPaymentMethod(req.PaymentMethod):
		ve.Add("paymentMethod", "must be one of "+strings.Join(models.PaymentMethods, ", "))
	}

	if req.TotalAmount <= 0 {
		ve.Add("totalAmount", "must be greater than 0")
	}
	if req.ShippingCost < 0 {
		ve.Add("shippingCost", "must not be negative")
	}
	if req.TaxAmount < 0 {
		ve.Add("taxAmount", "must not be negative")
	}
	if req.DiscountAmount < 0 {
		ve.Add("discountAmount", "must not be negative")
	}
	return ve.OrNil()
}

// mergeLines sums quantities of repeated products, keeping first-seen order.
func mergeLines(items []transport.CreateOrderItem) []transport.CreateOrderItem {
	out := make([]transport.CreateOrderItem, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// CreateOrder prices the lines from the catalog, persists the order and
// decrements stock in one transaction. Nothing is written when any line fails.
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, req transport.CreateOrderRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("component", "order_service")

	if actor.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: login required", ErrUnauthorized)
	}
	if err := validateCreateOrder(req); err != nil {
		return nil, err
	}
	lines := mergeLines(req.Items)

	var order *models.Order
	var err error
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		order, err = s.placeOrder(ctx, actor, req, lines)
		if !errors.Is(err, errOrderNumberTaken) {
			break
		}
		l.Warn("order_number_collision", "attempt", attempt)
	}
	if errors.Is(err, errOrderNumberTaken) {
		return nil, fmt.Errorf("%w: could not allocate a unique order number", ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, 0, len(order.Items))
	for _, it := range order.Items {
		productIDs = append(productIDs, it.ProductID)
	}
	if err := s.Repo.RemoveCartProducts(ctx, actor.ID, productIDs); err != nil {
		l.Warn("order_cart_cleanup_failed", "order_id", order.ID, "error", err)
	}

	s.Metrics.OrderCreated(ctx, order.PaymentMethod)
	s.Notifier.Dispatch(ctx, messaging.TopicOrders, order.ID.String(), notify.NewEvent("order_created", order.UserID, map[string]any{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"totalAmount": order.TotalAmount,
		"items":       len(order.Items),
	}))
	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, actor Actor, req transport.CreateOrderRequest, lines []transport.CreateOrderItem) (*models.Order, error) {
	var order *models.Order

	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		ids := make([]uuid.UUID, 0, len(lines))
		for _, ln := range lines {
			ids = append(ids, ln.ProductID)
		}
		products, err := tx.ProductsByIDs(ctx, ids)
		if err != nil {
			return err
		}

		var missing []string
		for _, id := range ids {
			if p, ok := products[id]; !ok || !p.IsActive {
				missing = append(missing, id.String())
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: products unavailable: %s", ErrNotFound, strings.Join(missing, ", "))
		}

		var short []StockShortage
		items := make([]models.OrderItem, 0, len(lines))
		var subtotal float64
		for _, ln := range lines {
			p := products[ln.ProductID]
			if ln.Quantity > p.Stock {
				short = append(short, StockShortage{ProductID: p.ID, Title: p.Title, Requested: ln.Quantity, Available: p.Stock})
				continue
			}
			price := p.EffectivePrice()
			subtotal += price * float64(ln.Quantity)
			items = append(items, models.OrderItem{
				ProductID: p.ID,
				Title:     p.Title,
				Price:     price,
				Quantity:  ln.Quantity,
				Image:     p.FirstImage(),
			})
		}
		if len(short) > 0 {
			return &StockError{Items: short}
		}

		subtotal = roundMoney(subtotal)
		expected := roundMoney(subtotal + req.ShippingCost + req.TaxAmount - req.DiscountAmount)
		if math.Abs(expected-req.TotalAmount) > totalTolerance {
			return invalid("totalAmount", fmt.Sprintf("does not match the order total %.2f", expected))
		}

		now := s.now()
		actorID := actor.ID
		order = &models.Order{
			OrderNumber:     s.nextNumber(now),
			UserID:          actor.ID,
			Items:           items,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			PaymentDetails:  req.PaymentDetails,
			Subtotal:        subtotal,
			ShippingCost:    req.ShippingCost,
			TaxAmount:       req.TaxAmount,
			DiscountAmount:  req.DiscountAmount,
			TotalAmount:     expected,
			Status:          models.OrderPending,
			PaymentStatus:   models.PaymentPending,
			Notes:           req.Notes,
			StatusHistory: []models.OrderStatusEntry{{
				Status:    models.OrderPending,
				ActorID:   &actorID,
				ActorRole: actor.Role,
				Notes:     "Order created",
				CreatedAt: now,
			}},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err) {
				return errOrderNumberTaken
			}
			return err
		}

		return s.adjustStock(ctx, tx, repo.SaleDeltas(items), products)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// adjustStock runs the shared stock primitive and reshapes a refusal into a StockError.
func (s *OrderService) adjustStock(ctx context.Context, tx *repo.GormRepo, deltas []repo.StockDelta, products map[uuid.UUID]models.Product) error {
	err := tx.AdjustStock(ctx, deltas)
	var adjErr *repo.StockAdjustError
	if !errors.As(err, &adjErr) {
		return err
	}

	s.Metrics.StockCompensated(ctx, adjErr.Reverted)
	logging.FromContext(ctx).Warn("stock_adjust_refused", "products", len(adjErr.ProductIDs), "reverted", adjErr.Reverted)

	requested := make(map[uuid.UUID]int, len(deltas))
	for _, d := range deltas {
		requested[d.ProductID] = -d.Stock
	}
	short := make([]StockShortage, 0, len(adjErr.ProductIDs))
	for _, id := range adjErr.ProductIDs {
		sh := StockShortage{ProductID: id, Requested: requested[id]}
		if p, ok := products[id]; ok {
			sh.Title = p.Title
		}
		if cur, err := tx.GetProduct(ctx, id); err == nil {
			sh.Available = cur.Stock
		}
		short = append(short, sh)
	}
	return &StockError{Items: short}
}

// UpdateOrder applies an admin change. Any status may follow any other;
// moving backwards is only logged.
func (s *OrderService) UpdateOrder(ctx context.Context, actor Actor, id uuid.UUID, req transport.UpdateOrderRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("component", "order_service", "order_id", id)

	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin access required", ErrForbidden)
	}

	ve := &ValidationError{}
	if req.Status != nil && !models.ValidOrderStatus(*req.Status) {
		ve.Add("status", "must be one of "+strings.Join(models.OrderStatuses, ", "))
	}
	if req.PaymentStatus != nil && !models.ValidPaymentStatus(*req.PaymentStatus) {
		ve.Add("paymentStatus", "must be one of "+strings.Join(models.PaymentStatuses, ", "))
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	var previous string
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		order, err := tx.LockOrder(ctx, id)
		if err != nil {
			return translate(err, "order")
		}
		previous = order.Status
		now := s.now()

		notes := ""
		if req.Notes != nil {
			notes = *req.Notes
		}

		fields := map[string]any{}
		if req.PaymentStatus != nil {
			fields["payment_status"] = *req.PaymentStatus
		}
		if req.TrackingNumber != nil {
			fields["tracking_number"] = *req.TrackingNumber
		}
		if req.EstimatedDelivery != nil {
			fields["estimated_delivery"] = req.EstimatedDelivery.UTC()
		}
		if req.Notes != nil {
			fields["notes"] = notes
		}

		if req.Status != nil && *req.Status != order.Status {
			next := *req.Status
			if !models.IsForwardTransition(order.Status, next) {
				l.Warn("non_forward_transition", "from", order.Status, "to", next, "actor_id", actor.ID)
			}

			if next == models.OrderCancelled {
				reason := notes
				if reason == "" {
					reason = "Cancelled by admin"
				}
				if err := s.cancelInTx(ctx, tx, order, adminCancelBlocked, actor, reason, now); err != nil {
					return err
				}
			} else {
				if err := s.leaveStatus(ctx, tx, order, fields); err != nil {
					return err
				}
				fields["status"] = next
				if err := tx.AppendStatusHistory(ctx, historyEntry(order.ID, next, actor, notes, now)); err != nil {
					return err
				}
				if next == models.OrderDelivered {
					if err := tx.CreditSpend(ctx, order.UserID, order.TotalAmount); err != nil {
						return translate(err, "user")
					}
				}
			}
		}

		if len(fields) == 0 {
			return nil
		}
		fields["updated_at"] = now
		return translate(tx.UpdateOrderFields(ctx, order.ID, fields), "order")
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, translate(err, "order")
	}

	if updated.Status != previous {
		s.Notifier.Dispatch(ctx, messaging.TopicOrders, id.String(), notify.NewEvent("order_status_changed", updated.UserID, map[string]any{
			"orderId":     id,
			"orderNumber": updated.OrderNumber,
			"from":        previous,
			"to":          updated.Status,
		}))
	}
	return updated, nil
}

// leaveStatus undoes the side effects tied to the order's current status
// before it moves elsewhere. Column resets go into fields.
func (s *OrderService) leaveStatus(ctx context.Context, tx *repo.GormRepo, order *models.Order, fields map[string]any) error {
	switch order.Status {
	case models.OrderCancelled:
		fields["cancellation_reason"] = ""
		fields["cancelled_at"] = nil
		fields["cancelled_by"] = nil
		ids := make([]uuid.UUID, 0, len(order.Items))
		for _, it := range order.Items {
			ids = append(ids, it.ProductID)
		}
		products, err := tx.ProductsByIDs(ctx, ids)
		if err != nil {
			return err
		}
		return s.adjustStock(ctx, tx, repo.SaleDeltas(order.Items), products)
	case models.OrderDelivered:
		return translate(tx.CreditSpend(ctx, order.UserID, -order.TotalAmount), "user")
	}
	return nil
}

func historyEntry(orderID uuid.UUID, status string, actor Actor, notes string, at time.Time) *models.OrderStatusEntry {
	entry := &models.OrderStatusEntry{
		OrderID:   orderID,
		Status:    status,
		ActorRole: actor.Role,
		Notes:     notes,
		CreatedAt: at,
	}
	if actor.ID != uuid.Nil {
		actorID := actor.ID
		entry.ActorID = &actorID
	}
	return entry
}

// cancelInTx flips the order to cancelled and restores the exact quantities
// taken at creation. The conditional update makes a second cancel a no-op
// that reports a conflict.
func (s *OrderService) cancelInTx(ctx context.Context, tx *repo.GormRepo, order *models.Order, blocked []string, actor Actor, reason string, now time.Time) error {
	if slices.Contains(blocked, order.Status) {
		return fmt.Errorf("%w: order cannot be cancelled in status %s", ErrConflict, order.Status)
	}
	if order.Status == models.OrderDelivered {
		if err := tx.CreditSpend(ctx, order.UserID, -order.TotalAmount); err != nil {
			return translate(err, "user")
		}
	}

	payment := order.PaymentStatus
	if payment == models.PaymentPaid {
		payment = models.PaymentRefunded
	}

	ok, err := tx.MarkCancelled(ctx, order.ID, blocked, reason, actor.ID, now, payment)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: order is no longer cancellable", ErrConflict)
	}

	if err := tx.AppendStatusHistory(ctx, historyEntry(order.ID, models.OrderCancelled, actor, reason, now)); err != nil {
		return err
	}
	if err := tx.AdjustStock(ctx, repo.RestoreDeltas(order.Items)); err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}

	order.Status = models.OrderCancelled
	order.PaymentStatus = payment
	s.Metrics.OrderCancelled(ctx, actor.Role)
	return nil
}

// CancelOrder is open to the owner and to admins.
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Cancelled by customer"
	}

	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		order, err := tx.LockOrder(ctx, id)
		if err != nil {
			return translate(err, "order")
		}
		if !actor.CanAccess(order.UserID) {
			return fmt.Errorf("%w: not your order", ErrForbidden)
		}
		return s.cancelInTx(ctx, tx, order, models.NonCancellableStatuses, actor, reason, s.now())
	})
	if err != nil {
		return nil, err
	}

	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, translate(err, "order")
	}
	s.Notifier.Dispatch(ctx, messaging.TopicOrders, id.String(), notify.NewEvent("order_cancelled", order.UserID, map[string]any{
		"orderId":     id,
		"orderNumber": order.OrderNumber,
		"reason":      reason,
	}))
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, translate(err, "order")
	}
	if !actor.CanAccess(order.UserID) {
		return nil, fmt.Errorf("%w: not your order", ErrForbidden)
	}
	return order, nil
}

type OrderPage struct {
	Orders []models.Order
	Total  int64
	Page   util.Page
}

func (s *OrderService) ListOrders(ctx context.Context, actor Actor, q transport.OrderListQuery) (*OrderPage, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin access required", ErrForbidden)
	}
	ve := &ValidationError{}
	if q.Status != "" && !models.ValidOrderStatus(q.Status) {
		ve.Add("status", "unknown order status")
	}
	if q.PaymentStatus != "" && !models.ValidPaymentStatus(q.PaymentStatus) {
		ve.Add("paymentStatus", "unknown payment status")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	offset, limit := util.Calculate(q.Page, q.Limit)
	total, orders, err := s.Repo.ListOrders(ctx, repo.OrderFilter{
		Status:        q.Status,
		PaymentStatus: q.PaymentStatus,
		Offset:        offset,
		Limit:         limit,
	})
	if err != nil {
		return nil, err
	}
	return &OrderPage{Orders: orders, Total: total, Page: util.NewPage(offset, limit, total)}, nil
}

func (s *OrderService) UserOrders(ctx context.Context, actor Actor, userID uuid.UUID, page, size int) (*OrderPage, error) {
	if !actor.CanAccess(userID) {
		return nil, fmt.Errorf("%w: not your orders", ErrForbidden)
	}
	offset, limit := util.Calculate(page, size)
	total, orders, err := s.Repo.ListOrders(ctx, repo.OrderFilter{UserID: userID, Offset: offset, Limit: limit})
	if err != nil {
		return nil, err
	}
	return &OrderPage{Orders: orders, Total: total, Page: util.NewPage(offset, limit, total)}, nil
}

// DeleteOrder purges the record; stock is left as it is.
func (s *OrderService) DeleteOrder(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin access required", ErrForbidden)
	}
	if err := s.Repo.DeleteOrder(ctx, id); err != nil {
		return translate(err, "order")
	}
	logging.FromContext(ctx).Info("order_purged", "order_id", id, "actor_id", actor.ID)
	return nil
}

func (s *OrderService) OrderStats(ctx context.Context, actor Actor) (*repo.OrderStats, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin access required", ErrForbidden)
	}
	return s.Repo.OrderStats(ctx, s.now())
}
