// Package csrf implements a double-submit cookie check for requests that
// authenticate with the session cookie.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

type Config struct {
	CookieName string
	HeaderName string
	CookiePath string
	Secure     bool
	MaxAge     time.Duration

	// SessionCookie marks a request as cookie-authenticated. Requests without
	// it (bearer clients, anonymous callers) are not checked.
	SessionCookie string

	EnforceSameOrigin bool
	SkipPaths         []string
}

func DefaultConfig() Config {
	return Config{
		CookieName: "XSRF-TOKEN",
		HeaderName: "X-CSRF-Token",
		CookiePath: "/",
		Secure:     true,
		MaxAge:     24 * time.Hour,
	}
}

func Middleware(cfg Config) echo.MiddlewareFunc {
	def := DefaultConfig()
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = def.HeaderName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = def.CookiePath
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = def.MaxAge
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if _, ok := skip[req.URL.Path]; ok {
				return next(c)
			}

			token := readCookie(req, cfg.CookieName)
			if token == "" {
				var err error
				if token, err = newToken(32); err != nil {
					return echo.NewHTTPError(http.StatusInternalServerError, "failed to create CSRF token").SetInternal(err)
				}
				setCookie(c, cfg, token)
			}

			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				c.Response().Header().Set(cfg.HeaderName, token)
				return next(c)
			}

			if cfg.SessionCookie != "" && readCookie(req, cfg.SessionCookie) == "" {
				return next(c)
			}
			if req.Header.Get(echo.HeaderAuthorization) != "" {
				return next(c)
			}

			if cfg.EnforceSameOrigin && !sameOrigin(req) {
				return echo.NewHTTPError(http.StatusForbidden, "invalid origin")
			}
			if !equal(token, req.Header.Get(cfg.HeaderName)) {
				return echo.NewHTTPError(http.StatusForbidden, "invalid CSRF token")
			}
			return next(c)
		}
	}
}

func newToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func setCookie(c echo.Context, cfg Config, token string) {
	c.SetCookie(&http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     cfg.CookiePath,
		Secure:   cfg.Secure,
		HttpOnly: false, // read by the browser client and echoed in the header
		MaxAge:   int(cfg.MaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

func readCookie(req *http.Request, name string) string {
	ck, err := req.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func equal(a, b string) bool {
	return a != "" && subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.Header.Get("Referer")
	}
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
