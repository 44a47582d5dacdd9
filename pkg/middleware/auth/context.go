package middleware

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var ErrNoIdentity = errors.New("unauthorized")

func UserID(c echo.Context) (uuid.UUID, error) {
	s, ok := c.Get("user_id").(string)
	if !ok || s == "" {
		return uuid.Nil, ErrNoIdentity
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, ErrNoIdentity
	}
	return id, nil
}

func Role(c echo.Context) string {
	s, _ := c.Get("role").(string)
	return s
}

func IsAdmin(c echo.Context) bool {
	return Role(c) == RoleAdmin
}
