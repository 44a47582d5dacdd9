package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
)

func seedOrder(t *testing.T, r *GormRepo, userID uuid.UUID, status string, total float64) *models.Order {
	t.Helper()
	o := &models.Order{
		OrderNumber:     "ORD-" + uuid.NewString()[:8],
		UserID:          userID,
		Items:           []models.OrderItem{{ProductID: uuid.New(), Title: "Tee", Price: total, Quantity: 1}},
		ShippingAddress: models.ShippingAddress{Street: "1 Moi Ave", City: "Nairobi", Country: "KE"},
		PaymentMethod:   "mpesa",
		Subtotal:        total,
		TotalAmount:     total,
		Status:          status,
		PaymentStatus:   models.PaymentPending,
		StatusHistory:   []models.OrderStatusEntry{{Status: status, Notes: "Order created"}},
	}
	require.NoError(t, r.CreateOrder(context.Background(), o))
	return o
}

func TestOrderNumberUnique(t *testing.T) {
	r := newTestRepo(t)
	o := seedOrder(t, r, uuid.New(), models.OrderPending, 10)

	exists, err := r.OrderNumberExists(context.Background(), o.OrderNumber)
	require.NoError(t, err)
	assert.True(t, exists)

	dup := &models.Order{
		OrderNumber: o.OrderNumber, UserID: uuid.New(), PaymentMethod: "card",
		ShippingAddress: o.ShippingAddress, TotalAmount: 1, Subtotal: 1,
		Status: models.OrderPending, PaymentStatus: models.PaymentPending,
	}
	assert.Error(t, r.CreateOrder(context.Background(), dup))
}

func TestMarkCancelled(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	actor := uuid.New()
	o := seedOrder(t, r, uuid.New(), models.OrderPending, 100)

	ok, err := r.MarkCancelled(ctx, o.ID, models.NonCancellableStatuses, "changed mind", actor, time.Now(), models.PaymentPending)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.MarkCancelled(ctx, o.ID, models.NonCancellableStatuses, "again", actor, time.Now(), models.PaymentPending)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := r.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)
	assert.Equal(t, "changed mind", got.CancellationReason)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, actor, *got.CancelledBy)

	shipped := seedOrder(t, r, uuid.New(), models.OrderShipped, 100)
	ok, err = r.MarkCancelled(ctx, shipped.ID, models.NonCancellableStatuses, "late", actor, time.Now(), models.PaymentPending)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.MarkCancelled(ctx, shipped.ID, []string{models.OrderCancelled}, "lost in transit", actor, time.Now(), models.PaymentRefunded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListOrdersAndDelete(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	owner := uuid.New()
	first := seedOrder(t, r, owner, models.OrderPending, 10)
	seedOrder(t, r, owner, models.OrderShipped, 20)
	seedOrder(t, r, uuid.New(), models.OrderPending, 30)

	total, orders, err := r.ListOrders(ctx, OrderFilter{UserID: owner, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, orders, 2)

	total, orders, err = r.ListOrders(ctx, OrderFilter{Status: models.OrderPending, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, o := range orders {
		assert.Len(t, o.Items, 1)
		assert.Len(t, o.StatusHistory, 1)
	}

	require.NoError(t, r.DeleteOrder(ctx, first.ID))
	_, err = r.GetOrder(ctx, first.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, r.DeleteOrder(ctx, first.ID), gorm.ErrRecordNotFound)

	var items int64
	require.NoError(t, r.DB.Model(&models.OrderItem{}).Where("order_id = ?", first.ID).Count(&items).Error)
	assert.Zero(t, items)
}

func TestOrderStats(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	seedOrder(t, r, uuid.New(), models.OrderPending, 100)
	seedOrder(t, r, uuid.New(), models.OrderDelivered, 50)
	seedOrder(t, r, uuid.New(), models.OrderCancelled, 999)

	st, err := r.OrderStats(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.TotalOrders)
	assert.EqualValues(t, 1, st.ByStatus[models.OrderCancelled])
	assert.EqualValues(t, 3, st.ByPaymentStatus[models.PaymentPending])
	assert.Equal(t, 150.0, st.TotalRevenue)
	assert.Equal(t, 75.0, st.AverageOrderValue)
	require.Len(t, st.Monthly, 12)
	assert.EqualValues(t, 3, st.Monthly[11].Orders)
	assert.Equal(t, 150.0, st.Monthly[11].Revenue)
	assert.Len(t, st.RecentOrders, 3)
}
