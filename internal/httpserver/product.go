package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
	"github.com/JKeiyuru/cornells-sub002/internal/service"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
	"github.com/JKeiyuru/cornells-sub002/internal/util"
	"github.com/JKeiyuru/cornells-sub002/pkg/logging"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.list")

	qp := &queryParser{c: c}
	page, limit := queryPage(c)
	q := transport.ProductListQuery{
		Page:      page,
		Limit:     limit,
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
		Category:  c.QueryParam("category"),
		Brand:     c.QueryParam("brand"),
		Search:    c.QueryParam("search"),
		MinPrice:  qp.float("minPrice"),
		MaxPrice:  qp.float("maxPrice"),
		MinMOQ:    qp.int("minMoq"),
		MaxMOQ:    qp.int("maxMoq"),
		InStock:   qp.bool("inStock"),
		Featured:  qp.bool("featured"),
	}
	if err := qp.err(); err != nil {
		return fail(l, "list_products_error", err)
	}

	res, err := h.Svc.ListProducts(ctx, q)
	if err != nil {
		return fail(l, "list_products_error", err)
	}
	return paged(c, "products", "totalProducts", res.Products, res.Total, res.Page)
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get")

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "get_product_error", "id is not a uuid", err)
	}
	p, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return fail(l, "get_product_error", err)
	}
	return ok(c, http.StatusOK, "", echo.Map{"product": p})
}

func (h *CatalogHTTP) ProductsByBrand(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.by_brand")

	page, limit := queryPage(c)
	res, err := h.Svc.ProductsByBrand(ctx, c.Param("brandName"), page, limit)
	if err != nil {
		return fail(l, "products_by_brand_error", err)
	}
	return paged(c, "products", "totalProducts", res.Products, res.Total, res.Page)
}

func (h *CatalogHTTP) FeaturedProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.featured")

	items, err := h.Svc.FeaturedProducts(ctx, util.ParseIntDefault(c.QueryParam("limit"), 0))
	if err != nil {
		return fail(l, "featured_products_error", err)
	}
	return ok(c, http.StatusOK, "", echo.Map{"products": items})
}

func (h *CatalogHTTP) RelatedProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.related")

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "related_products_error", "id is not a uuid", err)
	}
	items, err := h.Svc.RelatedProducts(ctx, id, util.ParseIntDefault(c.QueryParam("limit"), 0))
	if err != nil {
		return fail(l, "related_products_error", err)
	}
	return ok(c, http.StatusOK, "", echo.Map{"products": items})
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search")

	query := c.QueryParam("q")
	if query == "" {
		query = c.QueryParam("search")
	}
	page, limit := queryPage(c)
	res, err := h.Svc.SearchProducts(ctx, query, page, limit)
	if err != nil {
		return fail(l, "search_products_error", err)
	}
	return paged(c, "products", "totalProducts", res.Products, res.Total, res.Page)
}

func (h *CatalogHTTP) CheckStock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.check_stock")

	var req struct {
		Items []transport.CreateOrderItem `json:"items"`
	}
	if err := bindStrict(c, &req); err != nil {
		return badRequest(l, "check_stock_error", "invalid body", err)
	}
	res, err := h.Svc.CheckStock(ctx, req.Items)
	if err != nil {
		return fail(l, "check_stock_error", err)
	}
	return ok(c, http.StatusOK, "", echo.Map{
		"available":   res.OK(),
		"unavailable": res.Unavailable,
		"short":       res.Short,
	})
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req transport.CreateProductRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(l, "create_product_error", "invalid body", err)
	}
	p, err := h.Svc.CreateProduct(ctx, actorOf(c), req)
	if err != nil {
		return fail(l, "create_product_error", err)
	}

	l.Info("create_product_success", "product_id", p.ID)
	return ok(c, http.StatusCreated, "Product created", echo.Map{"product": p})
}

func (h *CatalogHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update")

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "update_product_error", "id is not a uuid", err)
	}
	var upd transport.ProductUpdate
	if err := bindStrict(c, &upd); err != nil {
		return badRequest(l, "update_product_error", "invalid body: "+strings.TrimPrefix(err.Error(), "json: "), err)
	}
	p, err := h.Svc.UpdateProduct(ctx, actorOf(c), id, upd)
	if err != nil {
		return fail(l, "update_product_error", err)
	}

	l.Info("update_product_success", "product_id", p.ID)
	return ok(c, http.StatusOK, "Product updated", echo.Map{"product": p})
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete")

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "delete_product_error", "id is not a uuid", err)
	}
	if err := h.Svc.DeleteProduct(ctx, actorOf(c), id); err != nil {
		return fail(l, "delete_product_error", err)
	}

	l.Info("delete_product_success", "product_id", id)
	return ok(c, http.StatusOK, "Product deleted", nil)
}

func (h *CatalogHTTP) ProductStats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.stats")

	st, err := h.Svc.ProductStats(ctx, actorOf(c))
	if err != nil {
		return fail(l, "product_stats_error", err)
	}
	return ok(c, http.StatusOK, "", echo.Map{"stats": st})
}

func (h *CatalogHTTP) AddRating(c echo.Context) error {
	return h.rating(c, "rating.add", http.StatusCreated, "Rating added", h.Svc.AddRating)
}

func (h *CatalogHTTP) UpdateRating(c echo.Context) error {
	return h.rating(c, "rating.update", http.StatusOK, "Rating updated", h.Svc.UpdateRating)
}

func (h *CatalogHTTP) rating(c echo.Context, handler string, status int, message string,
	apply func(context.Context, service.Actor, uuid.UUID, transport.RatingRequest) (*models.Product, error),
) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", handler)
	event := strings.ReplaceAll(handler, ".", "_") + "_error"

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, event, "id is not a uuid", err)
	}
	var req transport.RatingRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(l, event, "invalid body", err)
	}
	p, err := apply(ctx, actorOf(c), id, req)
	if err != nil {
		return fail(l, event, err)
	}
	return ok(c, status, message, echo.Map{"product": p})
}

func (h *CatalogHTTP) DeleteRating(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "rating.delete")

	id, err := pathUUID(c, "id")
	if err != nil {
		return badRequest(l, "delete_rating_error", "id is not a uuid", err)
	}
	p, err := h.Svc.DeleteRating(ctx, actorOf(c), id)
	if err != nil {
		return fail(l, "delete_rating_error", err)
	}
	return ok(c, http.StatusOK, "Rating deleted", echo.Map{"product": p})
}
