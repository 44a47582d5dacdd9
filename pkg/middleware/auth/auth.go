package middleware

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/JKeiyuru/cornells-sub002/pkg/tokens"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	tokenKey = "token"
)

type Auth struct {
	requireAuth echo.MiddlewareFunc
	optional    echo.MiddlewareFunc
}

// NewAuth accepts an access token from "Authorization: Bearer" or the accessToken cookie.
func NewAuth(secret []byte) *Auth {
	base := echojwt.Config{
		SigningKey:    secret,
		SigningMethod: "HS256",
		ContextKey:    tokenKey,
		TokenLookup:   "header:Authorization:Bearer ,cookie:" + tokens.AccessCookie,
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return new(tokens.AccessClaims) },
		SuccessHandler: func(c echo.Context) {
			tok, ok := c.Get(tokenKey).(*jwt.Token)
			if !ok {
				return
			}
			if claims, ok := tok.Claims.(*tokens.AccessClaims); ok {
				setUserContext(c, claims)
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required").SetInternal(err)
		},
	}

	optional := base
	optional.ContinueOnIgnoredError = true
	optional.ErrorHandler = func(c echo.Context, err error) error { return nil }

	return &Auth{
		requireAuth: echojwt.WithConfig(base),
		optional:    echojwt.WithConfig(optional),
	}
}

func (a *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return a.requireAuth(next)
}

func (a *Auth) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return a.requireAuth(func(c echo.Context) error {
		if Role(c) != RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	})
}

// Optional identifies the caller when a valid token is present and never rejects.
func (a *Auth) Optional(next echo.HandlerFunc) echo.HandlerFunc {
	return a.optional(next)
}

func setUserContext(c echo.Context, claims *tokens.AccessClaims) {
	c.Set("user_id", claims.Subject)
	c.Set("role", claims.Role)
}
