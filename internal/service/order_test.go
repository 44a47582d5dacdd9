package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
	"github.com/JKeiyuru/cornells-sub002/internal/repo"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
)

// tickingClock advances one second per call so history entries sort stably.
func tickingClock() func() time.Time {
	var n atomic.Int64
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return base.Add(time.Duration(n.Add(1)) * time.Second) }
}

func newOrderService(t *testing.T) (*OrderService, *repo.GormRepo) {
	t.Helper()
	r := newRepo(t)
	return &OrderService{Repo: r, Now: tickingClock()}, r
}

func TestCreateOrderSnapshotsAndDecrements(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer := customer(t, r)
	disc := 80.0
	dress := seedProduct(t, r, func(p *models.Product) { p.DiscountedPrice = &disc })
	bag := seedProduct(t, r, func(p *models.Product) { p.Title = "Tote Bag"; p.Price = 45.5; p.Stock = 3 })

	req := orderRequest(80*2+45.5+200, line(dress, 2), line(bag, 1))
	req.ShippingCost = 200
	order, err := svc.CreateOrder(ctx, buyer, req)
	require.NoError(t, err)

	assert.Regexp(t, `^ORD-\d{8}-\d{3}$`, order.OrderNumber)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, models.PaymentPending, order.PaymentStatus)
	assert.InDelta(t, 205.5, order.Subtotal, 0.001)
	assert.InDelta(t, 405.5, order.TotalAmount, 0.001)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 80.0, order.Items[0].Price)
	assert.Equal(t, "https://cdn.example.com/dress.jpg", order.Items[0].Image)

	got := productNow(t, r, dress.ID)
	assert.Equal(t, 8, got.Stock)
	assert.Equal(t, 2, got.SoldCount)
	assert.Equal(t, 2, productNow(t, r, bag.ID).Stock)

	stored, err := r.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.StatusHistory, 1)
	assert.Equal(t, "Order created", stored.StatusHistory[0].Notes)
}

func TestCreateOrderMergesRepeatedLines(t *testing.T) {
	svc, r := newOrderService(t)
	p := seedProduct(t, r, func(p *models.Product) { p.Stock = 5 })

	order, err := svc.CreateOrder(context.Background(), customer(t, r), orderRequest(500, line(p, 2), line(p, 3)))
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 5, order.Items[0].Quantity)
	assert.Equal(t, 0, productNow(t, r, p.ID).Stock)
}

func TestCreateOrderValidation(t *testing.T) {
	svc, r := newOrderService(t)
	buyer := customer(t, r)

	req := transport.CreateOrderRequest{PaymentMethod: "cheque", ShippingCost: -1}
	_, err := svc.CreateOrder(context.Background(), buyer, req)
	require.ErrorIs(t, err, ErrValidation)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	for _, field := range []string{"items", "shippingAddress.street", "shippingAddress.city", "shippingAddress.country", "paymentMethod", "totalAmount", "shippingCost"} {
		assert.Contains(t, ve.Fields, field)
	}

	_, err = svc.CreateOrder(context.Background(), Actor{}, orderRequest(100))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateOrderTotalMismatch(t *testing.T) {
	svc, r := newOrderService(t)
	p := seedProduct(t, r, nil)

	_, err := svc.CreateOrder(context.Background(), customer(t, r), orderRequest(150, line(p, 1)))
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "100.00")
	assert.Equal(t, 10, productNow(t, r, p.ID).Stock)
}

func TestCreateOrderUnknownOrInactiveProduct(t *testing.T) {
	svc, r := newOrderService(t)
	retired := seedProduct(t, r, func(p *models.Product) { p.IsActive = false })
	buyer := customer(t, r)

	_, err := svc.CreateOrder(context.Background(), buyer, orderRequest(100, line(retired, 1)))
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), retired.ID.String())

	ghost := transport.CreateOrderItem{ProductID: uuid.New(), Quantity: 1}
	_, err = svc.CreateOrder(context.Background(), buyer, orderRequest(100, ghost))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateOrderOverStockHasNoSideEffects(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	svc.OrderNumber = func(time.Time) string { return "ORD-00000001-001" }
	ok := seedProduct(t, r, func(p *models.Product) { p.Title = "Scarf"; p.Stock = 4 })
	short := seedProduct(t, r, func(p *models.Product) { p.Title = "Blazer"; p.Stock = 2 })

	_, err := svc.CreateOrder(ctx, customer(t, r), orderRequest(500, line(ok, 2), line(short, 3)))
	require.ErrorIs(t, err, ErrInsufficientStock)

	var se *StockError
	require.True(t, errors.As(err, &se))
	require.Len(t, se.Items, 1)
	assert.Equal(t, StockShortage{ProductID: short.ID, Title: "Blazer", Requested: 3, Available: 2}, se.Items[0])

	assert.Equal(t, 4, productNow(t, r, ok.ID).Stock)
	assert.Equal(t, 2, productNow(t, r, short.ID).Stock)
	exists, err := r.OrderNumberExists(ctx, "ORD-00000001-001")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStockRunsOutScenario(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer := customer(t, r)
	p := seedProduct(t, r, func(p *models.Product) { p.Stock = 5 })

	_, err := svc.CreateOrder(ctx, buyer, orderRequest(500, line(p, 5)))
	require.NoError(t, err)
	assert.Equal(t, 0, productNow(t, r, p.ID).Stock)

	_, err = svc.CreateOrder(ctx, buyer, orderRequest(100, line(p, 1)))
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 0, productNow(t, r, p.ID).Stock)
}

func TestCreateOrderRetriesOrderNumberCollision(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer := customer(t, r)
	p := seedProduct(t, r, nil)

	var calls atomic.Int64
	svc.OrderNumber = func(time.Time) string {
		return fmt.Sprintf("ORD-00000042-%03d", min(calls.Add(1), 2))
	}
	first, err := svc.CreateOrder(ctx, buyer, orderRequest(100, line(p, 1)))
	require.NoError(t, err)
	assert.Equal(t, "ORD-00000042-001", first.OrderNumber)

	second, err := svc.CreateOrder(ctx, buyer, orderRequest(100, line(p, 1)))
	require.NoError(t, err)
	assert.Equal(t, "ORD-00000042-002", second.OrderNumber)
	assert.Equal(t, 8, productNow(t, r, p.ID).Stock)

	_, err = svc.CreateOrder(ctx, buyer, orderRequest(100, line(p, 1)))
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 8, productNow(t, r, p.ID).Stock)
}

func TestCreateOrderClearsPurchasedCartLines(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer := customer(t, r)
	bought := seedProduct(t, r, nil)
	kept := seedProduct(t, r, func(p *models.Product) { p.Title = "Belt" })
	for _, p := range []*models.Product{bought, kept} {
		require.NoError(t, r.CreateCartItem(ctx, &models.CartItem{UserID: buyer.ID, ProductID: p.ID, Quantity: 1, Price: p.Price, Title: p.Title}))
	}

	_, err := svc.CreateOrder(ctx, buyer, orderRequest(100, line(bought, 1)))
	require.NoError(t, err)

	items, err := r.GetCart(ctx, buyer.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, kept.ID, items[0].ProductID)
}

func TestCreateThenCancelRestoresStock(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer := customer(t, r)
	a := seedProduct(t, r, func(p *models.Product) { p.Stock = 7; p.SoldCount = 3 })
	b := seedProduct(t, r, func(p *models.Product) { p.Title = "Sandals"; p.Price = 60; p.Stock = 2 })

	order, err := svc.CreateOrder(ctx, buyer, orderRequest(100*4+60*2, line(a, 4), line(b, 2)))
	require.NoError(t, err)
	assert.Equal(t, 3, productNow(t, r, a.ID).Stock)

	_, err = svc.CancelOrder(ctx, buyer, order.ID, "")
	require.NoError(t, err)

	gotA, gotB := productNow(t, r, a.ID), productNow(t, r, b.ID)
	assert.Equal(t, 7, gotA.Stock)
	assert.Equal(t, 3, gotA.SoldCount)
	assert.Equal(t, 2, gotB.Stock)
	assert.Equal(t, 0, gotB.SoldCount)
}

func TestCancelTwiceConflictsWithoutDoubleRestore(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer := customer(t, r)
	p := seedProduct(t, r, nil)

	order, err := svc.CreateOrder(ctx, buyer, orderRequest(300, line(p, 3)))
	require.NoError(t, err)

	_, err = svc.CancelOrder(ctx, buyer, order.ID, "duplicate")
	require.NoError(t, err)
	_, err = svc.CancelOrder(ctx, buyer, order.ID, "duplicate")
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), models.OrderCancelled)

	assert.Equal(t, 10, productNow(t, r, p.ID).Stock)
}

func TestCancelChangedMind(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer := customer(t, r)
	p := seedProduct(t, r, nil)

	order, err := svc.CreateOrder(ctx, buyer, orderRequest(100, line(p, 1)))
	require.NoError(t, err)

	got, err := svc.CancelOrder(ctx, buyer, order.ID, "changed mind")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)
	assert.Equal(t, "changed mind", got.CancellationReason)
	require.Len(t, got.StatusHistory, 2)
	assert.Equal(t, models.OrderCancelled, got.StatusHistory[1].Status)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, buyer.ID, *got.CancelledBy)
}

func TestCancelOrderAccessAndStatus(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer, stranger, boss := customer(t, r), customer(t, r), admin(t, r)
	p := seedProduct(t, r, nil)

	order, err := svc.CreateOrder(ctx, buyer, orderRequest(100, line(p, 1)))
	require.NoError(t, err)

	_, err = svc.CancelOrder(ctx, stranger, order.ID, "")
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CancelOrder(ctx, buyer, uuid.New(), "")
	require.ErrorIs(t, err, ErrNotFound)

	shipped := models.OrderShipped
	_, err = svc.UpdateOrder(ctx, boss, order.ID, transport.UpdateOrderRequest{Status: &shipped})
	require.NoError(t, err)

	_, err = svc.CancelOrder(ctx, buyer, order.ID, "")
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), models.OrderShipped)
	assert.Equal(t, 9, productNow(t, r, p.ID).Stock)
}

func TestCancelPaidOrderIsRefunded(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer, boss := customer(t, r), admin(t, r)
	p := seedProduct(t, r, nil)

	order, err := svc.CreateOrder(ctx, buyer, orderRequest(100, line(p, 1)))
	require.NoError(t, err)
	paid := models.PaymentPaid
	_, err = svc.UpdateOrder(ctx, boss, order.ID, transport.UpdateOrderRequest{PaymentStatus: &paid})
	require.NoError(t, err)

	got, err := svc.CancelOrder(ctx, boss, order.ID, "out of season")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, got.PaymentStatus)
}

func TestUpdateOrderStatusFlow(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer, boss := customer(t, r), admin(t, r)
	p := seedProduct(t, r, func(p *models.Product) { p.Price = 6000 })

	order, err := svc.CreateOrder(ctx, buyer, orderRequest(12000, line(p, 2)))
	require.NoError(t, err)

	_, err = svc.UpdateOrder(ctx, buyer, order.ID, transport.UpdateOrderRequest{})
	require.ErrorIs(t, err, ErrForbidden)

	bogus := "teleported"
	_, err = svc.UpdateOrder(ctx, boss, order.ID, transport.UpdateOrderRequest{Status: &bogus})
	require.ErrorIs(t, err, ErrValidation)

	delivered, tracking := models.OrderDelivered, "TRK-778"
	got, err := svc.UpdateOrder(ctx, boss, order.ID, transport.UpdateOrderRequest{Status: &delivered, TrackingNumber: &tracking})
	require.NoError(t, err)
	assert.Equal(t, models.OrderDelivered, got.Status)
	assert.Equal(t, "TRK-778", got.TrackingNumber)
	require.Len(t, got.StatusHistory, 2)

	u, err := r.GetUser(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 12000.0, u.TotalSpent)
	assert.Equal(t, models.TierSilver, u.MembershipTier)

	// moving back from delivered is allowed and takes the spend back
	processing := models.OrderProcessing
	_, err = svc.UpdateOrder(ctx, boss, order.ID, transport.UpdateOrderRequest{Status: &processing})
	require.NoError(t, err)
	u, err = r.GetUser(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, u.TotalSpent)
	assert.Equal(t, models.TierBronze, u.MembershipTier)
}

func TestUpdateOrderCancelAndReopen(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer, boss := customer(t, r), admin(t, r)
	p := seedProduct(t, r, nil)

	order, err := svc.CreateOrder(ctx, buyer, orderRequest(400, line(p, 4)))
	require.NoError(t, err)

	cancelled := models.OrderCancelled
	got, err := svc.UpdateOrder(ctx, boss, order.ID, transport.UpdateOrderRequest{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)
	assert.Equal(t, "Cancelled by admin", got.CancellationReason)
	assert.Equal(t, 10, productNow(t, r, p.ID).Stock)

	pending := models.OrderPending
	got, err = svc.UpdateOrder(ctx, boss, order.ID, transport.UpdateOrderRequest{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, got.Status)
	assert.Len(t, got.StatusHistory, 3)
	assert.Equal(t, 6, productNow(t, r, p.ID).Stock)
	assert.Empty(t, got.CancellationReason)
	assert.Nil(t, got.CancelledAt)
	assert.Nil(t, got.CancelledBy)
}

func TestUpdateOrderReopenFailsWhenStockIsGone(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer, other, boss := customer(t, r), customer(t, r), admin(t, r)
	p := seedProduct(t, r, func(p *models.Product) { p.Stock = 3 })

	order, err := svc.CreateOrder(ctx, buyer, orderRequest(300, line(p, 3)))
	require.NoError(t, err)
	_, err = svc.CancelOrder(ctx, buyer, order.ID, "")
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, other, orderRequest(200, line(p, 2)))
	require.NoError(t, err)

	confirmed := models.OrderConfirmed
	_, err = svc.UpdateOrder(ctx, boss, order.ID, transport.UpdateOrderRequest{Status: &confirmed})
	require.ErrorIs(t, err, ErrInsufficientStock)

	got, err := r.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)
	assert.Equal(t, 1, productNow(t, r, p.ID).Stock)
}

func TestStockNeverNegativeAcrossSequence(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer := customer(t, r)
	p := seedProduct(t, r, func(p *models.Product) { p.Stock = 4 })

	var placed []uuid.UUID
	for _, qty := range []int{3, 2, 1, 1, 4} {
		o, err := svc.CreateOrder(ctx, buyer, orderRequest(float64(100*qty), line(p, qty)))
		if err == nil {
			placed = append(placed, o.ID)
		}
		assert.GreaterOrEqual(t, productNow(t, r, p.ID).Stock, 0)
	}
	for _, id := range placed {
		_, err := svc.CancelOrder(ctx, buyer, id, "")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, productNow(t, r, p.ID).Stock, 0)
	}
	assert.Equal(t, 4, productNow(t, r, p.ID).Stock)
}

func TestOrderReadsAndAccess(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer, stranger, boss := customer(t, r), customer(t, r), admin(t, r)
	p := seedProduct(t, r, nil)

	order, err := svc.CreateOrder(ctx, buyer, orderRequest(100, line(p, 1)))
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, buyer, orderRequest(200, line(p, 2)))
	require.NoError(t, err)

	_, err = svc.GetOrder(ctx, stranger, order.ID)
	require.ErrorIs(t, err, ErrForbidden)
	got, err := svc.GetOrder(ctx, boss, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)

	_, err = svc.ListOrders(ctx, buyer, transport.OrderListQuery{})
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ListOrders(ctx, boss, transport.OrderListQuery{Status: "lost"})
	require.ErrorIs(t, err, ErrValidation)

	page, err := svc.ListOrders(ctx, boss, transport.OrderListQuery{Status: models.OrderPending, Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
	assert.Len(t, page.Orders, 1)
	assert.True(t, page.Page.HasNextPage)

	_, err = svc.UserOrders(ctx, stranger, buyer.ID, 1, 10)
	require.ErrorIs(t, err, ErrForbidden)
	mine, err := svc.UserOrders(ctx, buyer, buyer.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, mine.Total)

	require.ErrorIs(t, svc.DeleteOrder(ctx, buyer, order.ID), ErrForbidden)
	require.NoError(t, svc.DeleteOrder(ctx, boss, order.ID))
	require.ErrorIs(t, svc.DeleteOrder(ctx, boss, order.ID), ErrNotFound)
	assert.Equal(t, 7, productNow(t, r, p.ID).Stock)
}

func TestDashboard(t *testing.T) {
	svc, r := newOrderService(t)
	ctx := context.Background()
	buyer, boss := customer(t, r), admin(t, r)
	p := seedProduct(t, r, nil)
	_, err := svc.CreateOrder(ctx, buyer, orderRequest(100, line(p, 1)))
	require.NoError(t, err)

	_, err = svc.Dashboard(ctx, buyer)
	require.ErrorIs(t, err, ErrForbidden)

	d, err := svc.Dashboard(ctx, boss)
	require.NoError(t, err)
	assert.EqualValues(t, 1, d.Products.TotalProducts)
	assert.EqualValues(t, 1, d.Orders.TotalOrders)
	assert.EqualValues(t, 2, d.ActiveUsers)
}
