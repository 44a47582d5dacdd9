package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/JKeiyuru/cornells-sub002/internal/service"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
	"github.com/JKeiyuru/cornells-sub002/internal/util"
	"github.com/JKeiyuru/cornells-sub002/pkg/logging"
)

type QuoteHTTP struct {
	Svc *service.QuoteService
}

func (h *QuoteHTTP) RequestQuote(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "quote.request")

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "request_quote_error", "id is not a uuid", err)
	}
	var req transport.QuoteRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(l, "request_quote_error", "invalid body", err)
	}
	q, err := h.Svc.RequestQuote(ctx, actorOf(c), id, req)
	if err != nil {
		return fail(l, "request_quote_error", err)
	}

	l.Info("request_quote_success", "quote_id", q.ID.Hex(), "product_id", id)
	return ok(c, http.StatusCreated, "Quote request received", echo.Map{"quote": q})
}

func (h *QuoteHTTP) ListQuotes(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "quote.list")

	limit := util.ParseIntDefault(c.QueryParam("limit"), 0)
	list, err := h.Svc.ListQuotes(ctx, actorOf(c), c.QueryParam("status"), limit)
	if err != nil {
		return fail(l, "list_quotes_error", err)
	}
	return ok(c, http.StatusOK, "", echo.Map{"quotes": list, "count": len(list)})
}
