package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/JKeiyuru/cornells-sub002/internal/service"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
	"github.com/JKeiyuru/cornells-sub002/pkg/logging"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	var req transport.CreateOrderRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(l, "create_order_error", "invalid body", err)
	}
	order, err := h.Svc.CreateOrder(ctx, actorOf(c), req)
	if err != nil {
		return fail(l, "create_order_error", err)
	}

	l.Info("create_order_success", "order_id", order.ID, "order_number", order.OrderNumber)
	return ok(c, http.StatusCreated, "Order created successfully", echo.Map{"order": order})
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list")

	page, limit := queryPage(c)
	res, err := h.Svc.ListOrders(ctx, actorOf(c), transport.OrderListQuery{
		Status:        c.QueryParam("status"),
		PaymentStatus: c.QueryParam("paymentStatus"),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return paged(c, "orders", "totalOrders", res.Orders, res.Total, res.Page)
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "get_order_error", "id is not a uuid", err)
	}
	order, err := h.Svc.GetOrder(ctx, actorOf(c), id)
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return ok(c, http.StatusOK, "", echo.Map{"order": order})
}

func (h *OrderHTTP) UserOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.user_orders")

	userID, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "user_orders_error", "id is not a uuid", err)
	}
	page, limit := queryPage(c)
	res, err := h.Svc.UserOrders(ctx, actorOf(c), userID, page, limit)
	if err != nil {
		return fail(l, "user_orders_error", err)
	}
	return paged(c, "orders", "totalOrders", res.Orders, res.Total, res.Page)
}

func (h *OrderHTTP) UpdateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update")

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "update_order_error", "id is not a uuid", err)
	}
	var req transport.UpdateOrderRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(l, "update_order_error", "invalid body", err)
	}
	order, err := h.Svc.UpdateOrder(ctx, actorOf(c), id, req)
	if err != nil {
		return fail(l, "update_order_error", err)
	}

	l.Info("update_order_success", "order_id", order.ID, "status", order.Status)
	return ok(c, http.StatusOK, "Order updated successfully", echo.Map{"order": order})
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel")

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "cancel_order_error", "id is not a uuid", err)
	}
	var req transport.CancelOrderRequest
	if err := bindStrict(c, &req); err != nil && !errors.Is(err, transport.ErrEmptyBody) {
		return badRequest(l, "cancel_order_error", "invalid body", err)
	}
	order, err := h.Svc.CancelOrder(ctx, actorOf(c), id, req.Reason)
	if err != nil {
		return fail(l, "cancel_order_error", err)
	}

	l.Info("cancel_order_success", "order_id", order.ID)
	return ok(c, http.StatusOK, "Order cancelled successfully", echo.Map{"order": order})
}

func (h *OrderHTTP) DeleteOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.delete")

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "delete_order_error", "id is not a uuid", err)
	}
	if err := h.Svc.DeleteOrder(ctx, actorOf(c), id); err != nil {
		return fail(l, "delete_order_error", err)
	}
	return ok(c, http.StatusOK, "Order deleted successfully", nil)
}

func (h *OrderHTTP) OrderStats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.stats")

	st, err := h.Svc.OrderStats(ctx, actorOf(c))
	if err != nil {
		return fail(l, "order_stats_error", err)
	}
	return ok(c, http.StatusOK, "", echo.Map{"stats": st})
}

func (h *OrderHTTP) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.dashboard")

	d, err := h.Svc.Dashboard(ctx, actorOf(c))
	if err != nil {
		return fail(l, "dashboard_error", err)
	}
	return ok(c, http.StatusOK, "", echo.Map{"dashboard": d})
}
