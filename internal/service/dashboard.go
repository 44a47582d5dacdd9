package service

import (
	"context"

	"github.com/JKeiyuru/cornells-sub002/internal/repo"
)

type Dashboard struct {
	Products    *repo.ProductStats `json:"products"`
	Orders      *repo.OrderStats   `json:"orders"`
	ActiveUsers int64              `json:"activeUsers"`
}

func (s *OrderService) Dashboard(ctx context.Context, actor Actor) (*Dashboard, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	products, err := s.Repo.ProductStats(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.Repo.OrderStats(ctx, s.now())
	if err != nil {
		return nil, err
	}
	users, err := s.Repo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Products: products, Orders: orders, ActiveUsers: users}, nil
}
