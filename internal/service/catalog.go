package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JKeiyuru/cornells-sub002/internal/messaging"
	"github.com/JKeiyuru/cornells-sub002/internal/models"
	"github.com/JKeiyuru/cornells-sub002/internal/notify"
	"github.com/JKeiyuru/cornells-sub002/internal/repo"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
	"github.com/JKeiyuru/cornells-sub002/internal/util"
	"github.com/JKeiyuru/cornells-sub002/pkg/logging"
)

const (
	defaultFeaturedLimit = 8
	defaultRelatedLimit  = 4
	maxShortListLimit    = 50
)

// ProductIndex is the full-text side of the catalog.
type ProductIndex interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error)
}

type CatalogService struct {
	Repo     *repo.GormRepo
	Index    ProductIndex
	Notifier *notify.Dispatcher
}

type ProductPage struct {
	Products []models.Product
	Total    int64
	Page     util.Page
}

func validateProduct(p *models.Product) error {
	ve := &ValidationError{}
	if strings.TrimSpace(p.Title) == "" {
		ve.Add("title", "is required")
	}
	if p.Price <= 0 {
		ve.Add("price", "must be greater than 0")
	}
	if p.DiscountedPrice != nil && (*p.DiscountedPrice <= 0 || *p.DiscountedPrice >= p.Price) {
		ve.Add("discountedPrice", "must be greater than 0 and less than price")
	}
	if p.Stock < 0 {
		ve.Add("stock", "must not be negative")
	}
	if strings.TrimSpace(p.Brand) == "" {
		ve.Add("brand", "is required")
	}
	if len(p.Categories) == 0 {
		ve.Add("categories", "at least one category is required")
	}
	if p.MOQ < 1 {
		ve.Add("moq", "must be at least 1")
	}
	return ve.OrNil()
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(s)]; ok {
			continue
		}
		seen[strings.ToLower(s)] = struct{}{}
		out = append(out, s)
	}
	return out
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin access required", ErrForbidden)
	}
	return nil
}

// reindex keeps search in step on a best-effort basis.
func (s *CatalogService) reindex(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "product_id", p.ID, "error", err)
	}
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor Actor, req transport.CreateProductRequest) (*models.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	p := &models.Product{
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		Price:           req.Price,
		DiscountedPrice: req.DiscountedPrice,
		Stock:           req.Stock,
		IsActive:        true,
		IsFeatured:      req.IsFeatured,
		Brand:           strings.TrimSpace(req.Brand),
		Categories:      cleanList(req.Categories),
		Images:          cleanList(req.Images),
		MOQ:             1,
	}
	if req.MOQ != nil {
		p.MOQ = *req.MOQ
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, translate(err, "product")
	}

	s.reindex(ctx, p)
	s.Notifier.Dispatch(ctx, messaging.TopicProducts, p.ID.String(), notify.NewEvent("product_created", actor.ID, map[string]any{
		"productId": p.ID,
		"title":     p.Title,
		"brand":     p.Brand,
	}))
	return p, nil
}

// applyProductUpdate merges upd into p and returns the changed columns.
func applyProductUpdate(p *models.Product, upd transport.ProductUpdate) []string {
	var cols []string
	if upd.Title != nil {
		p.Title = strings.TrimSpace(*upd.Title)
		cols = append(cols, "title")
	}
	if upd.Description != nil {
		p.Description = *upd.Description
		cols = append(cols, "description")
	}
	if upd.Price != nil {
		p.Price = *upd.Price
		cols = append(cols, "price")
	}
	if upd.ClearDiscount {
		p.DiscountedPrice = nil
		cols = append(cols, "discounted_price")
	} else if upd.DiscountedPrice != nil {
		v := *upd.DiscountedPrice
		p.DiscountedPrice = &v
		cols = append(cols, "discounted_price")
	}
	if upd.Stock != nil {
		p.Stock = *upd.Stock
		cols = append(cols, "stock")
	}
	if upd.Brand != nil {
		p.Brand = strings.TrimSpace(*upd.Brand)
		cols = append(cols, "brand")
	}
	if upd.Categories != nil {
		p.Categories = cleanList(*upd.Categories)
		cols = append(cols, "categories")
	}
	if upd.Images != nil {
		p.Images = cleanList(*upd.Images)
		cols = append(cols, "images")
	}
	if upd.MOQ != nil {
		p.MOQ = *upd.MOQ
		cols = append(cols, "moq")
	}
	if upd.IsFeatured != nil {
		p.IsFeatured = *upd.IsFeatured
		cols = append(cols, "is_featured")
	}
	if upd.IsActive != nil {
		p.IsActive = *upd.IsActive
		cols = append(cols, "is_active")
	}
	return cols
}

func (s *CatalogService) UpdateProduct(ctx context.Context, actor Actor, id uuid.UUID, upd transport.ProductUpdate) (*models.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, translate(err, "product")
	}

	cols := applyProductUpdate(p, upd)
	if len(cols) == 0 {
		return nil, invalid("body", "no updatable fields supplied")
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	p.UpdatedAt = time.Now().UTC()
	if err := s.Repo.SaveProductColumns(ctx, p, append(cols, "updated_at")); err != nil {
		return nil, translate(err, "product")
	}

	s.reindex(ctx, p)
	s.Notifier.Dispatch(ctx, messaging.TopicProducts, p.ID.String(), notify.NewEvent("product_updated", actor.ID, map[string]any{
		"productId": p.ID,
		"fields":    cols,
	}))
	return p, nil
}

// DeleteProduct is a soft delete; order history keeps its snapshots.
func (s *CatalogService) DeleteProduct(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.Repo.SoftDeleteProduct(ctx, id); err != nil {
		return translate(err, "product")
	}

	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("search_delete_failed", "product_id", id, "error", err)
		}
	}
	s.Notifier.Dispatch(ctx, messaging.TopicProducts, id.String(), notify.NewEvent("product_deleted", actor.ID, map[string]any{"productId": id}))
	return nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetActiveProductWithRatings(ctx, id)
	if err != nil {
		return nil, translate(err, "product")
	}
	if err := s.Repo.IncrementViews(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("product_view_count_failed", "product_id", id, "error", err)
	} else {
		p.ViewCount++
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, q transport.ProductListQuery) (*ProductPage, error) {
	ve := &ValidationError{}
	if q.SortBy != "" {
		if _, ok := repo.ProductSortColumn(q.SortBy); !ok {
			ve.Add("sortBy", "unsupported sort field")
		}
	}
	order := strings.ToLower(q.SortOrder)
	if order != "" && order != "asc" && order != "desc" {
		ve.Add("sortOrder", "must be asc or desc")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		ve.Add("minPrice", "must not exceed maxPrice")
	}
	if q.MinMOQ != nil && q.MaxMOQ != nil && *q.MinMOQ > *q.MaxMOQ {
		ve.Add("minMoq", "must not exceed maxMoq")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	offset, limit := util.Calculate(q.Page, q.Limit)
	total, items, err := s.Repo.ListProducts(ctx, repo.ProductFilter{
		Category: q.Category,
		Brand:    q.Brand,
		Search:   strings.TrimSpace(q.Search),
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		MinMOQ:   q.MinMOQ,
		MaxMOQ:   q.MaxMOQ,
		InStock:  q.InStock,
		Featured: q.Featured,
		SortBy:   sortBy,
		SortDesc: order != "asc",
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}
	return &ProductPage{Products: items, Total: total, Page: util.NewPage(offset, limit, total)}, nil
}

func (s *CatalogService) ProductsByBrand(ctx context.Context, brand string, page, limit int) (*ProductPage, error) {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return nil, invalid("brand", "is required")
	}
	return s.ListProducts(ctx, transport.ProductListQuery{Brand: brand, Page: page, Limit: limit})
}

func shortLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxShortListLimit {
		return maxShortListLimit
	}
	return limit
}

func (s *CatalogService) FeaturedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	featured := true
	_, items, err := s.Repo.ListProducts(ctx, repo.ProductFilter{
		Featured: &featured,
		SortBy:   "createdAt",
		SortDesc: true,
		Limit:    shortLimit(limit, defaultFeaturedLimit),
	})
	return items, err
}

func (s *CatalogService) RelatedProducts(ctx context.Context, id uuid.UUID, limit int) ([]models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, translate(err, "product")
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: product", ErrNotFound)
	}
	return s.Repo.RelatedProducts(ctx, p, shortLimit(limit, defaultRelatedLimit))
}

// SearchProducts prefers the search index and falls back to a substring
// match in the database when the index is absent or failing.
func (s *CatalogService) SearchProducts(ctx context.Context, query string, page, size int) (*ProductPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("q", "is required")
	}
	offset, limit := util.Calculate(page, size)

	if s.Index != nil {
		total, ids, err := s.Index.Search(ctx, query, offset, limit)
		if err == nil {
			items, err := s.Repo.ProductsByPositions(ctx, ids)
			if err != nil {
				return nil, err
			}
			return &ProductPage{Products: items, Total: total, Page: util.NewPage(offset, limit, total)}, nil
		}
		logging.FromContext(ctx).Warn("search_fallback", "reason", "index error", "error", err)
	}

	total, items, err := s.Repo.ListProducts(ctx, repo.ProductFilter{
		Search:   query,
		SortBy:   "soldCount",
		SortDesc: true,
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}
	return &ProductPage{Products: items, Total: total, Page: util.NewPage(offset, limit, total)}, nil
}

type StockCheck struct {
	Unavailable []uuid.UUID     `json:"unavailable"`
	Short       []StockShortage `json:"short"`
}

func (c *StockCheck) OK() bool { return len(c.Unavailable) == 0 && len(c.Short) == 0 }

// CheckStock is a read-only preview; it reserves nothing.
func (s *CatalogService) CheckStock(ctx context.Context, lines []transport.CreateOrderItem) (*StockCheck, error) {
	if len(lines) == 0 {
		return nil, invalid("items", "at least one item is required")
	}
	lines = mergeLines(lines)
	ids := make([]uuid.UUID, 0, len(lines))
	for _, ln := range lines {
		ids = append(ids, ln.ProductID)
	}
	products, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	res := &StockCheck{Unavailable: []uuid.UUID{}, Short: []StockShortage{}}
	for _, ln := range lines {
		p, ok := products[ln.ProductID]
		if !ok || !p.IsActive {
			res.Unavailable = append(res.Unavailable, ln.ProductID)
			continue
		}
		if ln.Quantity > p.Stock {
			res.Short = append(res.Short, StockShortage{ProductID: p.ID, Title: p.Title, Requested: ln.Quantity, Available: p.Stock})
		}
	}
	return res, nil
}

func (s *CatalogService) ProductStats(ctx context.Context, actor Actor) (*repo.ProductStats, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.Repo.ProductStats(ctx)
}
