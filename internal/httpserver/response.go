package httpserver

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/JKeiyuru/cornells-sub002/internal/service"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
	"github.com/JKeiyuru/cornells-sub002/internal/util"
	middleware "github.com/JKeiyuru/cornells-sub002/pkg/middleware/auth"
)

func ok(c echo.Context, status int, message string, payload echo.Map) error {
	body := echo.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	return c.JSON(status, body)
}

// paged adds the pagination fields next to the list under key.
func paged(c echo.Context, key, totalKey string, items any, total int64, p util.Page) error {
	return ok(c, http.StatusOK, "", echo.Map{
		key:           items,
		totalKey:      total,
		"currentPage": p.CurrentPage,
		"totalPages":  p.TotalPages,
		"hasNextPage": p.HasNextPage,
		"hasPrevPage": p.HasPrevPage,
	})
}

// actorOf reads the identity set by the auth middleware. Anonymous callers
// get the zero Actor.
func actorOf(c echo.Context) service.Actor {
	id, err := middleware.UserID(c)
	if err != nil {
		return service.Actor{}
	}
	return service.Actor{ID: id, Role: middleware.Role(c)}
}

func bindStrict(c echo.Context, v any) error {
	return transport.DecodeStrict(c.Request().Body, v)
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

func queryPage(c echo.Context) (int, int) {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	limit := util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	return page, limit
}

// queryParser collects malformed numeric and boolean query values.
type queryParser struct {
	c  echo.Context
	ve service.ValidationError
}

func (q *queryParser) float(name string) *float64 {
	raw := q.c.QueryParam(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.ve.Add(name, "must be a number")
		return nil
	}
	return &v
}

func (q *queryParser) int(name string) *int {
	raw := q.c.QueryParam(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		q.ve.Add(name, "must be an integer")
		return nil
	}
	return &v
}

func (q *queryParser) bool(name string) *bool {
	raw := q.c.QueryParam(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		q.ve.Add(name, "must be true or false")
		return nil
	}
	return &v
}

func (q *queryParser) err() error { return q.ve.OrNil() }
