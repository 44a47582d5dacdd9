package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
)

type ProductFilter struct {
	Category string
	Brand    string
	Search   string
	MinPrice *float64
	MaxPrice *float64
	MinMOQ   *int
	MaxMOQ   *int
	InStock  *bool
	Featured *bool

	SortBy    string
	SortDesc  bool
	Offset    int
	Limit     int
	ExcludeID uuid.UUID
}

var productSortColumns = map[string]string{
	"createdAt":     "created_at",
	"price":         "price",
	"title":         "title",
	"soldCount":     "sold_count",
	"averageRating": "average_rating",
	"viewCount":     "view_count",
	"stock":         "stock",
}

func ProductSortColumn(sortBy string) (string, bool) {
	col, ok := productSortColumns[sortBy]
	return col, ok
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(prod).Error
}

// GetProduct returns the product regardless of its active flag.
func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var prod models.Product
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&prod).Error; err != nil {
		return nil, err
	}
	return &prod, nil
}

func (r *GormRepo) GetActiveProductWithRatings(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var prod models.Product
	err := r.DB.WithContext(ctx).
		Preload("Ratings", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Where("id = ? AND is_active = ?", id, true).
		First(&prod).Error
	if err != nil {
		return nil, err
	}
	return &prod, nil
}

// ProductsByIDs fetches the given products in one query, keyed by id.
func (r *GormRepo) ProductsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []models.Product
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, p := range items {
		out[p.ID] = p
	}
	return out, nil
}

// SaveProductColumns writes only the named columns of prod. Going through the
// struct keeps the json serializer on categories and images.
func (r *GormRepo) SaveProductColumns(ctx context.Context, prod *models.Product, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	res := r.DB.WithContext(ctx).Model(prod).Select(columns).Updates(prod)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) SoftDeleteProduct(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// likeEscape makes user input match literally inside a LIKE ... ESCAPE '!' pattern.
func likeEscape(s string) string { return likeEscaper.Replace(s) }

func (r *GormRepo) activeProducts(ctx context.Context, f ProductFilter) *gorm.DB {
	q := r.DB.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)

	if f.Category != "" {
		q = q.Where("LOWER(categories) LIKE ? ESCAPE '!'", `%"`+likeEscape(strings.ToLower(f.Category))+`"%`)
	}
	if f.Brand != "" {
		q = q.Where("LOWER(brand) = ?", strings.ToLower(f.Brand))
	}
	if f.Search != "" {
		like := "%" + likeEscape(strings.ToLower(f.Search)) + "%"
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!')", like, like)
	}
	if f.MinPrice != nil {
		q = q.Where("COALESCE(discounted_price, price) >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("COALESCE(discounted_price, price) <= ?", *f.MaxPrice)
	}
	if f.MinMOQ != nil {
		q = q.Where("moq >= ?", *f.MinMOQ)
	}
	if f.MaxMOQ != nil {
		q = q.Where("moq <= ?", *f.MaxMOQ)
	}
	if f.InStock != nil {
		if *f.InStock {
			q = q.Where("stock > 0")
		} else {
			q = q.Where("stock = 0")
		}
	}
	if f.Featured != nil {
		q = q.Where("is_featured = ?", *f.Featured)
	}
	if f.ExcludeID != uuid.Nil {
		q = q.Where("id <> ?", f.ExcludeID)
	}
	return q
}

func (r *GormRepo) ListProducts(ctx context.Context, f ProductFilter) (int64, []models.Product, error) {
	var total int64
	if err := r.activeProducts(ctx, f).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	col, ok := ProductSortColumn(f.SortBy)
	if !ok {
		col = "created_at"
	}

	items := make([]models.Product, 0, f.Limit)
	err := r.activeProducts(ctx, f).
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: f.SortDesc}).
		Order("id").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&items).Error
	if err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// RelatedProducts returns active products sharing the brand or any category.
func (r *GormRepo) RelatedProducts(ctx context.Context, prod *models.Product, limit int) ([]models.Product, error) {
	q := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("is_active = ? AND id <> ?", true, prod.ID)

	cond := r.DB.Where("LOWER(brand) = ?", strings.ToLower(prod.Brand))
	for _, cat := range prod.Categories {
		cond = cond.Or("LOWER(categories) LIKE ? ESCAPE '!'", `%"`+likeEscape(strings.ToLower(cat))+`"%`)
	}

	items := make([]models.Product, 0, limit)
	err := q.Where(cond).
		Order("sold_count DESC").
		Order("average_rating DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

// ProductsByPositions keeps the order of ids, dropping ids that are not active.
func (r *GormRepo) ProductsByPositions(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	byID, err := r.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}
