package repo

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
)

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Create(u).Error
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.DB.WithContext(ctx).
		Where("email = ? AND is_active = ?", strings.ToLower(email), true).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *GormRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// CreditSpend adds amount to the user's cumulative spend and re-derives the tier.
// The user row stays locked until the surrounding transaction ends, so
// concurrent credits for one user apply one after the other.
func (r *GormRepo) CreditSpend(ctx context.Context, id uuid.UUID, amount float64) error {
	var u models.User
	if err := forUpdate(r.DB.WithContext(ctx)).Where("id = ?", id).First(&u).Error; err != nil {
		return err
	}
	total := roundMoney(u.TotalSpent + amount)
	return r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		UpdateColumns(map[string]any{
			"total_spent":     total,
			"membership_tier": models.MembershipTier(total),
		}).Error
}

// SoftDeleteUser deactivates the account and frees its email for reuse.
func (r *GormRepo) SoftDeleteUser(ctx context.Context, id uuid.UUID, now time.Time) error {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&u).Error; err != nil {
		return err
	}
	mangled := "deleted_" + strconv.FormatInt(now.Unix(), 10) + "_" + u.Email
	return r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "email": mangled}).Error
}

func (r *GormRepo) ListUsers(ctx context.Context, offset, limit int) (int64, []models.User, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}
	users := make([]models.User, 0, limit)
	err := r.DB.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	if err != nil {
		return 0, nil, err
	}
	return total, users, nil
}

func (r *GormRepo) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func (r *GormRepo) GetRefreshToken(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("jti = ?", jti).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// RevokeRefreshToken reports false when the token was already revoked.
func (r *GormRepo) RevokeRefreshToken(ctx context.Context, jti string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("jti = ? AND revoked = ?", jti, false).
		Update("revoked", true)
	return res.RowsAffected > 0, res.Error
}

func (r *GormRepo) RevokeRefreshByHash(ctx context.Context, hash string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hash).
		Update("revoked", true).Error
}

// SaveUserColumns writes the named columns of u through the struct so the
// json serializer on addresses applies.
func (r *GormRepo) SaveUserColumns(ctx context.Context, u *models.User, columns []string) error {
	res := r.DB.WithContext(ctx).Model(u).Select(columns).Updates(u)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}
