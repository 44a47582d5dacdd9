package repo

import (
	"context"
	"math"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
)

func (r *GormRepo) CreateRating(ctx context.Context, rating *models.Rating) error {
	return r.DB.WithContext(ctx).Create(rating).Error
}

func (r *GormRepo) UpdateRating(ctx context.Context, productID, userID uuid.UUID, star int, comment string) (*models.Rating, error) {
	res := r.DB.WithContext(ctx).Model(&models.Rating{}).
		Where("product_id = ? AND user_id = ?", productID, userID).
		Updates(map[string]any{"star": star, "comment": comment})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var rating models.Rating
	if err := r.DB.WithContext(ctx).Where("product_id = ? AND user_id = ?", productID, userID).First(&rating).Error; err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *GormRepo) DeleteRating(ctx context.Context, productID, userID uuid.UUID) error {
	res := r.DB.WithContext(ctx).
		Where("product_id = ? AND user_id = ?", productID, userID).
		Delete(&models.Rating{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecomputeRating stores the mean star value rounded to one decimal and the count.
func (r *GormRepo) RecomputeRating(ctx context.Context, productID uuid.UUID) (float64, int, error) {
	var agg struct {
		Avg   float64
		Count int
	}
	err := r.DB.WithContext(ctx).Model(&models.Rating{}).
		Select("COALESCE(AVG(star), 0) AS avg, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&agg).Error
	if err != nil {
		return 0, 0, err
	}

	avg := math.Round(agg.Avg*10) / 10
	err = r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]any{"average_rating": avg, "rating_count": agg.Count}).Error
	if err != nil {
		return 0, 0, err
	}
	return avg, agg.Count, nil
}
