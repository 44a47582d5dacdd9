package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JKeiyuru/cornells-sub002/internal/dbtest"
	"github.com/JKeiyuru/cornells-sub002/internal/models"
	"github.com/JKeiyuru/cornells-sub002/internal/repo"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
	middleware "github.com/JKeiyuru/cornells-sub002/pkg/middleware/auth"
)

func newRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	return &repo.GormRepo{DB: dbtest.Open(t)}
}

func seedUser(t *testing.T, r *repo.GormRepo, role string) Actor {
	t.Helper()
	u := &models.User{
		Name:           "Wanjiru",
		Email:          uuid.NewString()[:8] + "@example.com",
		PasswordHash:   "x",
		Role:           role,
		Addresses:      []models.Address{},
		MembershipTier: models.TierBronze,
		IsActive:       true,
	}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return Actor{ID: u.ID, Role: role}
}

func customer(t *testing.T, r *repo.GormRepo) Actor { return seedUser(t, r, middleware.RoleUser) }
func admin(t *testing.T, r *repo.GormRepo) Actor    { return seedUser(t, r, middleware.RoleAdmin) }

func seedProduct(t *testing.T, r *repo.GormRepo, mutate func(p *models.Product)) *models.Product {
	t.Helper()
	p := &models.Product{
		Title:      "Kitenge Dress",
		Price:      100,
		Stock:      10,
		IsActive:   true,
		Brand:      "Cornells",
		Categories: []string{"Dresses"},
		Images:     []string{"https://cdn.example.com/dress.jpg"},
		MOQ:        1,
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, r.CreateProduct(context.Background(), p))
	return p
}

func productNow(t *testing.T, r *repo.GormRepo, id uuid.UUID) *models.Product {
	t.Helper()
	p, err := r.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p
}

func orderRequest(total float64, items ...transport.CreateOrderItem) transport.CreateOrderRequest {
	return transport.CreateOrderRequest{
		Items:           items,
		ShippingAddress: models.ShippingAddress{Street: "12 Kenyatta Ave", City: "Nairobi", Country: "KE"},
		PaymentMethod:   "mpesa",
		TotalAmount:     total,
	}
}

func line(p *models.Product, qty int) transport.CreateOrderItem {
	return transport.CreateOrderItem{ProductID: p.ID, Quantity: qty}
}
