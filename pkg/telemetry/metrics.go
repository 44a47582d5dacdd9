package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/JKeiyuru/cornells-sub002"

// Metrics holds the storefront counters. A nil *Metrics records nothing.
type Metrics struct {
	ordersCreated      metric.Int64Counter
	ordersCancelled    metric.Int64Counter
	stockCompensations metric.Int64Counter
	cartReconciled     metric.Int64Counter
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)

	ordersCreated, err := meter.Int64Counter("orders_created_total",
		metric.WithDescription("Orders persisted successfully"))
	if err != nil {
		return nil, err
	}
	ordersCancelled, err := meter.Int64Counter("orders_cancelled_total",
		metric.WithDescription("Orders moved to cancelled"))
	if err != nil {
		return nil, err
	}
	stockCompensations, err := meter.Int64Counter("stock_compensations_total",
		metric.WithDescription("Stock deltas reverted after a partial adjustment failure"))
	if err != nil {
		return nil, err
	}
	cartReconciled, err := meter.Int64Counter("cart_reconciled_items_total",
		metric.WithDescription("Cart lines removed or adjusted during reconciliation"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersCreated:      ordersCreated,
		ordersCancelled:    ordersCancelled,
		stockCompensations: stockCompensations,
		cartReconciled:     cartReconciled,
	}, nil
}

func (m *Metrics) OrderCreated(ctx context.Context, paymentMethod string) {
	if m == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", paymentMethod)))
}

func (m *Metrics) OrderCancelled(ctx context.Context, actorRole string) {
	if m == nil {
		return
	}
	m.ordersCancelled.Add(ctx, 1, metric.WithAttributes(attribute.String("actor_role", actorRole)))
}

func (m *Metrics) StockCompensated(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.stockCompensations.Add(ctx, int64(n))
}

func (m *Metrics) CartReconciled(ctx context.Context, removed, adjusted int) {
	if m == nil {
		return
	}
	if removed > 0 {
		m.cartReconciled.Add(ctx, int64(removed), metric.WithAttributes(attribute.String("kind", "removed")))
	}
	if adjusted > 0 {
		m.cartReconciled.Add(ctx, int64(adjusted), metric.WithAttributes(attribute.String("kind", "adjusted")))
	}
}
