package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JKeiyuru/cornells-sub002/internal/dbtest"
	"github.com/JKeiyuru/cornells-sub002/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()
	return &GormRepo{DB: dbtest.Open(t)}
}

func seedProduct(t *testing.T, r *GormRepo, mutate func(p *models.Product)) *models.Product {
	t.Helper()
	p := &models.Product{
		Title:      "Linen Shirt",
		Price:      100,
		Stock:      10,
		IsActive:   true,
		Brand:      "Cornells",
		Categories: []string{"Shirts"},
		MOQ:        1,
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, r.CreateProduct(context.Background(), p))
	return p
}

func reload(t *testing.T, r *GormRepo, p *models.Product) *models.Product {
	t.Helper()
	got, err := r.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	return got
}
