package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/JKeiyuru/cornells-sub002/internal/service"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
	"github.com/JKeiyuru/cornells-sub002/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	var req transport.AddToCartRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(l, "add_to_cart_error", "invalid body", err)
	}
	item, err := h.Svc.AddToCart(ctx, actorOf(c), req)
	if err != nil {
		return fail(l, "add_to_cart_error", err)
	}

	l.Info("add_to_cart_success", "cart_item_id", item.ID)
	return ok(c, http.StatusCreated, "Item added to cart", echo.Map{"cartItem": item})
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	view, err := h.Svc.GetCart(ctx, actorOf(c))
	if err != nil {
		return fail(l, "get_cart_error", err)
	}
	return ok(c, http.StatusOK, "", echo.Map{
		"cartItems":     view.Items,
		"subtotal":      view.Subtotal,
		"totalItems":    view.TotalItems,
		"removedItems":  view.Removed,
		"adjustedItems": view.Adjusted,
	})
}

func (h *CartHTTP) UpdateCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update")

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "update_cart_item_error", "id is not a uuid", err)
	}
	var req transport.UpdateCartItemRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(l, "update_cart_item_error", "invalid body", err)
	}
	item, err := h.Svc.UpdateCartItem(ctx, actorOf(c), id, req.Quantity)
	if err != nil {
		return fail(l, "update_cart_item_error", err)
	}
	return ok(c, http.StatusOK, "Cart item updated", echo.Map{"cartItem": item})
}

func (h *CartHTTP) RemoveCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "remove_cart_item_error", "id is not a uuid", err)
	}
	if err := h.Svc.RemoveCartItem(ctx, actorOf(c), id); err != nil {
		return fail(l, "remove_cart_item_error", err)
	}
	return ok(c, http.StatusOK, "Item removed from cart", nil)
}

func (h *CartHTTP) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	n, err := h.Svc.ClearCart(ctx, actorOf(c))
	if err != nil {
		return fail(l, "clear_cart_error", err)
	}
	return ok(c, http.StatusOK, "Cart cleared", echo.Map{"deletedCount": n})
}

func (h *CartHTTP) CartCount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.count")

	lines, units, err := h.Svc.CartCount(ctx, actorOf(c))
	if err != nil {
		return fail(l, "cart_count_error", err)
	}
	return ok(c, http.StatusOK, "", echo.Map{"count": lines, "totalQuantity": units})
}

func (h *CartHTTP) MoveToWishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.move_to_wishlist")

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "move_to_wishlist_error", "id is not a uuid", err)
	}
	if err := h.Svc.MoveToWishlist(ctx, actorOf(c), id); err != nil {
		return fail(l, "move_to_wishlist_error", err)
	}
	return ok(c, http.StatusOK, "Item moved to wishlist", nil)
}

func (h *CartHTTP) ApplyCoupon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.apply_coupon")

	var req transport.ApplyCouponRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(l, "apply_coupon_error", "invalid body", err)
	}
	quote, err := h.Svc.ApplyCoupon(ctx, actorOf(c), req.Code)
	if err != nil {
		return fail(l, "apply_coupon_error", err)
	}
	return ok(c, http.StatusOK, "Coupon applied", echo.Map{
		"code":     quote.Code,
		"subtotal": quote.Subtotal,
		"discount": quote.Discount,
		"total":    quote.Total,
	})
}

func (h *CartHTTP) AllCarts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.all")

	page, limit := queryPage(c)
	res, err := h.Svc.AllCarts(ctx, actorOf(c), page, limit)
	if err != nil {
		return fail(l, "all_carts_error", err)
	}
	return paged(c, "cartItems", "totalCartItems", res.Items, res.Total, res.Page)
}

func (h *CartHTTP) CreateCoupon(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "coupon.create")

	var req transport.CreateCouponRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(l, "create_coupon_error", "invalid body", err)
	}
	coupon, err := h.Svc.CreateCoupon(ctx, actorOf(c), req)
	if err != nil {
		return fail(l, "create_coupon_error", err)
	}

	l.Info("create_coupon_success", "code", coupon.Code)
	return ok(c, http.StatusCreated, "Coupon created", echo.Map{"coupon": coupon})
}

func (h *CartHTTP) Wishlist(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.list")

	items, err := h.Svc.ListWishlist(ctx, actorOf(c))
	if err != nil {
		return fail(l, "wishlist_error", err)
	}
	return ok(c, http.StatusOK, "", echo.Map{"wishlist": items})
}
