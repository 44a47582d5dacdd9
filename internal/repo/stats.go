package repo

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
)

const LowStockThreshold = 10

type BrandCount struct {
	Brand string `json:"brand"`
	Count int64  `json:"count"`
}

type ProductStats struct {
	TotalProducts    int64            `json:"totalProducts"`
	ActiveProducts   int64            `json:"activeProducts"`
	InactiveProducts int64            `json:"inactiveProducts"`
	FeaturedProducts int64            `json:"featuredProducts"`
	OutOfStock       int64            `json:"outOfStock"`
	LowStock         int64            `json:"lowStock"`
	InventoryValue   float64          `json:"inventoryValue"`
	ByBrand          []BrandCount     `json:"byBrand"`
	TopSelling       []models.Product `json:"topSelling"`
}

func (r *GormRepo) ProductStats(ctx context.Context) (*ProductStats, error) {
	var st ProductStats
	db := r.DB.WithContext(ctx)
	products := func() *gorm.DB { return db.Model(&models.Product{}) }

	if err := products().Count(&st.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := products().Where("is_active = ?", true).Count(&st.ActiveProducts).Error; err != nil {
		return nil, err
	}
	st.InactiveProducts = st.TotalProducts - st.ActiveProducts
	if err := products().Where("is_active = ? AND is_featured = ?", true, true).Count(&st.FeaturedProducts).Error; err != nil {
		return nil, err
	}
	if err := products().Where("is_active = ? AND stock = 0", true).Count(&st.OutOfStock).Error; err != nil {
		return nil, err
	}
	if err := products().Where("is_active = ? AND stock > 0 AND stock < ?", true, LowStockThreshold).Count(&st.LowStock).Error; err != nil {
		return nil, err
	}
	if err := products().Select("COALESCE(SUM(stock * price), 0)").Where("is_active = ?", true).Scan(&st.InventoryValue).Error; err != nil {
		return nil, err
	}

	st.ByBrand = []BrandCount{}
	if err := products().Select("brand, COUNT(*) AS count").Where("is_active = ?", true).
		Group("brand").Order("count DESC").Scan(&st.ByBrand).Error; err != nil {
		return nil, err
	}

	st.TopSelling = []models.Product{}
	if err := products().Where("is_active = ?", true).Order("sold_count DESC").Limit(5).Find(&st.TopSelling).Error; err != nil {
		return nil, err
	}
	return &st, nil
}

type countByName struct {
	Name  string
	Count int64
}

type MonthlyOrders struct {
	Month   string  `json:"month"`
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type OrderStats struct {
	TotalOrders       int64            `json:"totalOrders"`
	ByStatus          map[string]int64 `json:"byStatus"`
	ByPaymentStatus   map[string]int64 `json:"byPaymentStatus"`
	TotalRevenue      float64          `json:"totalRevenue"`
	AverageOrderValue float64          `json:"averageOrderValue"`
	Monthly           []MonthlyOrders  `json:"monthly"`
	RecentOrders      []models.Order   `json:"recentOrders"`
}

// OrderStats aggregates orders; revenue excludes cancelled orders. Monthly
// buckets cover the twelve calendar months ending with now's month.
func (r *GormRepo) OrderStats(ctx context.Context, now time.Time) (*OrderStats, error) {
	db := r.DB.WithContext(ctx)
	st := OrderStats{ByStatus: map[string]int64{}, ByPaymentStatus: map[string]int64{}}

	if err := db.Model(&models.Order{}).Count(&st.TotalOrders).Error; err != nil {
		return nil, err
	}

	var byStatus []countByName
	if err := db.Model(&models.Order{}).Select("status AS name, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, c := range byStatus {
		st.ByStatus[c.Name] = c.Count
	}

	var byPayment []countByName
	if err := db.Model(&models.Order{}).Select("payment_status AS name, COUNT(*) AS count").Group("payment_status").Scan(&byPayment).Error; err != nil {
		return nil, err
	}
	for _, c := range byPayment {
		st.ByPaymentStatus[c.Name] = c.Count
	}

	var revenue struct {
		Sum   float64
		Count int64
	}
	if err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(total_amount), 0) AS sum, COUNT(*) AS count").
		Where("status <> ?", models.OrderCancelled).
		Scan(&revenue).Error; err != nil {
		return nil, err
	}
	st.TotalRevenue = roundMoney(revenue.Sum)
	if revenue.Count > 0 {
		st.AverageOrderValue = roundMoney(revenue.Sum / float64(revenue.Count))
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	var rows []struct {
		Status      string
		TotalAmount float64
		CreatedAt   time.Time
	}
	if err := db.Model(&models.Order{}).
		Select("status, total_amount, created_at").
		Where("created_at >= ?", start).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	st.Monthly = make([]MonthlyOrders, 12)
	index := make(map[string]int, 12)
	for i := range st.Monthly {
		m := start.AddDate(0, i, 0).Format("2006-01")
		st.Monthly[i].Month = m
		index[m] = i
	}
	for _, row := range rows {
		i, ok := index[row.CreatedAt.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		st.Monthly[i].Orders++
		if row.Status != models.OrderCancelled {
			st.Monthly[i].Revenue = roundMoney(st.Monthly[i].Revenue + row.TotalAmount)
		}
	}

	st.RecentOrders = []models.Order{}
	if err := db.Preload("Items").Order("created_at DESC").Limit(5).Find(&st.RecentOrders).Error; err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *GormRepo) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).Where("is_active = ?", true).Count(&n).Error
	return n, err
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
