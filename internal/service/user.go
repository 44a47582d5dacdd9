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
)

type UserService struct {
	Repo     *repo.GormRepo
	Notifier *notify.Dispatcher
}

func (s *UserService) Me(ctx context.Context, actor Actor) (*models.User, error) {
	u, err := s.Repo.GetUser(ctx, actor.ID)
	if err != nil {
		return nil, translate(err, "user")
	}
	return u, nil
}

// setDefault leaves exactly one default address when the list is non-empty.
func setDefault(addrs []models.Address, idx int) {
	for i := range addrs {
		addrs[i].IsDefault = i == idx
	}
}

func (s *UserService) AddAddress(ctx context.Context, actor Actor, req transport.AddressRequest) (*models.User, error) {
	ve := &ValidationError{}
	if strings.TrimSpace(req.Street) == "" {
		ve.Add("street", "is required")
	}
	if strings.TrimSpace(req.City) == "" {
		ve.Add("city", "is required")
	}
	if strings.TrimSpace(req.Country) == "" {
		ve.Add("country", "is required")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		u, err := tx.GetUser(ctx, actor.ID)
		if err != nil {
			return translate(err, "user")
		}
		u.Addresses = append(u.Addresses, models.Address{
			Label:      req.Label,
			FullName:   req.FullName,
			Phone:      req.Phone,
			Street:     strings.TrimSpace(req.Street),
			City:       strings.TrimSpace(req.City),
			State:      req.State,
			PostalCode: req.PostalCode,
			Country:    strings.TrimSpace(req.Country),
		})
		last := len(u.Addresses) - 1
		if req.IsDefault || last == 0 {
			setDefault(u.Addresses, last)
		}
		user = u
		return s.saveAddresses(ctx, tx, u)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) SetDefaultAddress(ctx context.Context, actor Actor, index int) (*models.User, error) {
	var user *models.User
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		u, err := tx.GetUser(ctx, actor.ID)
		if err != nil {
			return translate(err, "user")
		}
		if index < 0 || index >= len(u.Addresses) {
			return fmt.Errorf("%w: address %d", ErrNotFound, index)
		}
		setDefault(u.Addresses, index)
		user = u
		return s.saveAddresses(ctx, tx, u)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) saveAddresses(ctx context.Context, tx *repo.GormRepo, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	return translate(tx.SaveUserColumns(ctx, u, []string{"addresses", "updated_at"}), "user")
}

// DeleteAccount deactivates the user and frees the email for a new sign-up.
func (s *UserService) DeleteAccount(ctx context.Context, actor Actor) error {
	now := time.Now().UTC()
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.SoftDeleteUser(ctx, actor.ID, now); err != nil {
			return translate(err, "user")
		}
		if _, err := tx.ClearCart(ctx, actor.ID); err != nil {
			return err
		}
		return tx.RevokeUserRefreshTokens(ctx, actor.ID)
	})
	if err != nil {
		return err
	}
	s.Notifier.Dispatch(ctx, messaging.TopicUsers, actor.ID.String(), notify.NewEvent("user_deleted", actor.ID, nil))
	return nil
}

type UserPage struct {
	Users []models.User
	Total int64
	Page  util.Page
}

func (s *UserService) ListUsers(ctx context.Context, actor Actor, page, size int) (*UserPage, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	offset, limit := util.Calculate(page, size)
	total, users, err := s.Repo.ListUsers(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Total: total, Page: util.NewPage(offset, limit, total)}, nil
}

func (s *UserService) GetUser(ctx context.Context, actor Actor, id uuid.UUID) (*models.User, error) {
	if !actor.CanAccess(id) {
		return nil, fmt.Errorf("%w: not your account", ErrForbidden)
	}
	u, err := s.Repo.GetUser(ctx, id)
	if err != nil {
		return nil, translate(err, "user")
	}
	return u, nil
}
