package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/JKeiyuru/cornells-sub002/internal/service"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
	"github.com/JKeiyuru/cornells-sub002/pkg/logging"
	"github.com/JKeiyuru/cornells-sub002/pkg/tokens"
)

type UserHTTP struct {
	Svc *service.UserService
}

func (h *UserHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.me")

	u, err := h.Svc.Me(ctx, actorOf(c))
	if err != nil {
		return fail(l, "me_error", err)
	}
	return ok(c, http.StatusOK, "", echo.Map{"user": u})
}

func (h *UserHTTP) AddAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.add_address")

	var req transport.AddressRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(l, "add_address_error", "invalid body", err)
	}
	u, err := h.Svc.AddAddress(ctx, actorOf(c), req)
	if err != nil {
		return fail(l, "add_address_error", err)
	}
	return ok(c, http.StatusCreated, "Address added", echo.Map{"addresses": u.Addresses})
}

func (h *UserHTTP) SetDefaultAddress(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.default_address")

	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return badRequest(l, "default_address_error", "index is not a number", err)
	}
	u, err := h.Svc.SetDefaultAddress(ctx, actorOf(c), idx)
	if err != nil {
		return fail(l, "default_address_error", err)
	}
	return ok(c, http.StatusOK, "Default address updated", echo.Map{"addresses": u.Addresses})
}

func (h *UserHTTP) DeleteMe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.delete_me")

	actor := actorOf(c)
	if err := h.Svc.DeleteAccount(ctx, actor); err != nil {
		return fail(l, "delete_account_error", err)
	}

	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, accessCookiePath))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, refreshCookiePath))
	l.Info("delete_account_success", "user_id", actor.ID)
	return ok(c, http.StatusOK, "Account deleted", nil)
}

func (h *UserHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.list")

	page, limit := queryPage(c)
	res, err := h.Svc.ListUsers(ctx, actorOf(c), page, limit)
	if err != nil {
		return fail(l, "list_users_error", err)
	}
	return paged(c, "users", "totalUsers", res.Users, res.Total, res.Page)
}

func (h *UserHTTP) GetUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.get")

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "get_user_error", "id is not a uuid", err)
	}
	u, err := h.Svc.GetUser(ctx, actorOf(c), id)
	if err != nil {
		return fail(l, "get_user_error", err)
	}
	return ok(c, http.StatusOK, "", echo.Map{"user": u})
}
