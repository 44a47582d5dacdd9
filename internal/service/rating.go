package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JKeiyuru/cornells-sub002/internal/models"
	"github.com/JKeiyuru/cornells-sub002/internal/repo"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
	pkgdb "github.com/JKeiyuru/cornells-sub002/pkg/db"
)

const maxCommentLength = 1000

func validateRating(req transport.RatingRequest) error {
	ve := &ValidationError{}
	if req.Star < 1 || req.Star > 5 {
		ve.Add("star", "must be between 1 and 5")
	}
	if len(req.Comment) > maxCommentLength {
		ve.Add("comment", fmt.Sprintf("must be at most %d characters", maxCommentLength))
	}
	return ve.OrNil()
}

// AddRating allows one rating per user and product; the product's average is
// recomputed in the same transaction.
func (s *CatalogService) AddRating(ctx context.Context, actor Actor, productID uuid.UUID, req transport.RatingRequest) (*models.Product, error) {
	if actor.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: login required", ErrUnauthorized)
	}
	if err := validateRating(req); err != nil {
		return nil, err
	}

	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return translate(err, "product")
		}
		if !p.IsActive {
			return fmt.Errorf("%w: product", ErrNotFound)
		}

		name := ""
		if u, err := tx.GetUser(ctx, actor.ID); err == nil {
			name = u.Name
		}
		rating := &models.Rating{
			ProductID: productID,
			UserID:    actor.ID,
			UserName:  name,
			Star:      req.Star,
			Comment:   strings.TrimSpace(req.Comment),
		}
		if err := tx.CreateRating(ctx, rating); err != nil {
			if pkgdb.IsUniqueViolation(err) {
				return fmt.Errorf("%w: you have already rated this product", ErrConflict)
			}
			return err
		}
		_, _, err = tx.RecomputeRating(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.productWithRatings(ctx, productID)
}

func (s *CatalogService) UpdateRating(ctx context.Context, actor Actor, productID uuid.UUID, req transport.RatingRequest) (*models.Product, error) {
	if actor.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: login required", ErrUnauthorized)
	}
	if err := validateRating(req); err != nil {
		return nil, err
	}

	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.UpdateRating(ctx, productID, actor.ID, req.Star, strings.TrimSpace(req.Comment)); err != nil {
			return translate(err, "rating")
		}
		_, _, err := tx.RecomputeRating(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.productWithRatings(ctx, productID)
}

func (s *CatalogService) DeleteRating(ctx context.Context, actor Actor, productID uuid.UUID) (*models.Product, error) {
	if actor.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: login required", ErrUnauthorized)
	}

	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.DeleteRating(ctx, productID, actor.ID); err != nil {
			return translate(err, "rating")
		}
		_, _, err := tx.RecomputeRating(ctx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.productWithRatings(ctx, productID)
}

func (s *CatalogService) productWithRatings(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetActiveProductWithRatings(ctx, id)
	if err != nil {
		return nil, translate(err, "product")
	}
	return p, nil
}
