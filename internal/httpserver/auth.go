package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/JKeiyuru/cornells-sub002/internal/service"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
	"github.com/JKeiyuru/cornells-sub002/pkg/logging"
	"github.com/JKeiyuru/cornells-sub002/pkg/tokens"
)

const (
	accessCookiePath  = "/"
	refreshCookiePath = "/api/v1/auth"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func setSessionCookies(c echo.Context, res *service.LoginResult) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, res.AccessToken, accessCookiePath, res.AccessExp))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, res.RefreshToken, refreshCookiePath, res.RefreshExp))
}

func sessionBody(res *service.LoginResult) echo.Map {
	return echo.Map{
		"user":         res.User,
		"accessToken":  res.AccessToken,
		"refreshToken": res.RefreshToken,
		"expiresAt":    res.AccessExp,
	}
}

// refreshToken prefers the cookie and falls back to a JSON body.
func refreshToken(c echo.Context) (string, error) {
	if ck, err := c.Cookie(tokens.RefreshCookie); err == nil && ck.Value != "" {
		return ck.Value, nil
	}
	var req transport.RefreshRequest
	if err := bindStrict(c, &req); err != nil && !errors.Is(err, transport.ErrEmptyBody) {
		return "", err
	}
	return req.RefreshToken, nil
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(l, "register_error", "invalid body", err)
	}
	user, err := h.Svc.Register(ctx, req)
	if err != nil {
		return fail(l, "register_error", err)
	}

	l.Info("register_success", "user_id", user.ID)
	return ok(c, http.StatusCreated, "Registration successful", echo.Map{"user": user})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(l, "login_error", "invalid body", err)
	}
	res, err := h.Svc.Login(ctx, req, c.RealIP())
	if err != nil {
		return fail(l, "login_error", err)
	}

	setSessionCookies(c, res)
	l.Info("login_success", "user_id", res.User.ID)
	return ok(c, http.StatusOK, "Logged in successfully", sessionBody(res))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	tok, err := refreshToken(c)
	if err != nil {
		return badRequest(l, "refresh_error", "invalid body", err)
	}
	res, err := h.Svc.Refresh(ctx, tok)
	if err != nil {
		return fail(l, "refresh_error", err)
	}

	setSessionCookies(c, res)
	return ok(c, http.StatusOK, "Token refreshed", sessionBody(res))
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	tok, err := refreshToken(c)
	if err != nil {
		return badRequest(l, "logout_error", "invalid body", err)
	}
	if err := h.Svc.Logout(ctx, tok); err != nil {
		return fail(l, "logout_error", err)
	}

	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, accessCookiePath))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, refreshCookiePath))
	return ok(c, http.StatusOK, "Logged out", nil)
}
