package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JKeiyuru/cornells-sub002/internal/messaging"
	"github.com/JKeiyuru/cornells-sub002/internal/models"
	"github.com/JKeiyuru/cornells-sub002/internal/notify"
	"github.com/JKeiyuru/cornells-sub002/internal/ratelimit"
	"github.com/JKeiyuru/cornells-sub002/internal/repo"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
	pkg_hash "github.com/JKeiyuru/cornells-sub002/pkg/hash"
	"github.com/JKeiyuru/cornells-sub002/pkg/logging"
	middleware "github.com/JKeiyuru/cornells-sub002/pkg/middleware/auth"
	"github.com/JKeiyuru/cornells-sub002/pkg/tokens"
)

const minPasswordLength = 8

type AuthService struct {
	Repo     *repo.GormRepo
	Limiter  ratelimit.Limiter
	Notifier *notify.Dispatcher

	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	email := normalizeEmail(req.Email)
	ve := &ValidationError{}
	if strings.TrimSpace(req.Name) == "" {
		ve.Add("name", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		ve.Add("email", "must be a valid email address")
	}
	if len(req.Password) < minPasswordLength {
		ve.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	pwHash, err := pkg_hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Name:           strings.TrimSpace(req.Name),
		Email:          email,
		PasswordHash:   pwHash,
		Role:           middleware.RoleUser,
		Phone:          strings.TrimSpace(req.Phone),
		Addresses:      []models.Address{},
		MembershipTier: models.TierBronze,
		IsActive:       true,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return nil, translate(err, "email")
	}

	s.Notifier.Dispatch(ctx, messaging.TopicUsers, user.ID.String(), notify.NewEvent("user_registered", user.ID, map[string]any{
		"email": user.Email,
	}))
	return user, nil
}

func loginKey(clientIP string) string {
	return "login:" + clientIP
}

// Login counts every attempt against a fixed window per client IP, whichever
// account it targets. A successful login clears the window.
func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest, clientIP string) (*LoginResult, error) {
	email := normalizeEmail(req.Email)
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	ve := &ValidationError{}
	if email == "" {
		ve.Add("email", "is required")
	}
	if req.Password == "" {
		ve.Add("password", "is required")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	key := loginKey(clientIP)
	if s.Limiter != nil {
		allowed, retryAfter, err := s.Limiter.Hit(ctx, key)
		switch {
		case err != nil:
			l.Warn("login_limiter_unavailable", "error", err)
		case !allowed:
			l.Warn("login_rate_limited", "retry_after", retryAfter.String())
			return nil, fmt.Errorf("%w: too many login attempts, retry in %s", ErrRateLimited, retryAfter.Round(time.Second))
		}
	}

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
		}
		return nil, err
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, req.Password) {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}

	if s.Limiter != nil {
		if err := s.Limiter.Reset(ctx, key); err != nil {
			l.Warn("login_limiter_reset_failed", "error", err)
		}
	}

	var res *LoginResult
	err = s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		res, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *AuthService) ttls() (time.Duration, time.Duration) {
	access, refresh := s.AccessTTL, s.RefreshTTL
	if access <= 0 {
		access = 15 * time.Minute
	}
	if refresh <= 0 {
		refresh = 7 * 24 * time.Hour
	}
	return access, refresh
}

// issue signs a new token pair and stores the refresh token hashed.
func (s *AuthService) issue(ctx context.Context, tx *repo.GormRepo, user *models.User) (*LoginResult, error) {
	accessTTL, refreshTTL := s.ttls()
	now := time.Now().UTC()
	accessExp, refreshExp := now.Add(accessTTL), now.Add(refreshTTL)

	access, err := tokens.NewAccessToken(s.AccessSecret, user.ID.String(), user.Role, accessExp)
	if err != nil {
		return nil, err
	}
	refresh, jti, err := tokens.NewRefreshToken(s.RefreshSecret, user.ID.String(), refreshExp)
	if err != nil {
		return nil, err
	}

	if err := tx.CreateRefreshToken(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: tokens.Sha256Hex(refresh),
		JTI:       jti,
		ExpiresAt: refreshExp,
	}); err != nil {
		return nil, err
	}

	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh rotates the refresh token; each one can be used once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token required", ErrUnauthorized)
	}
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}

	var res *LoginResult
	err = s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		stored, err := tx.GetRefreshToken(ctx, claims.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: refresh token not found", ErrUnauthorized)
			}
			return err
		}
		if stored.TokenHash != tokens.Sha256Hex(refreshToken) || stored.UserID != userID || time.Now().After(stored.ExpiresAt) {
			return fmt.Errorf("%w: refresh token expired or invalid", ErrUnauthorized)
		}

		revoked, err := tx.RevokeRefreshToken(ctx, claims.ID)
		if err != nil {
			return err
		}
		if !revoked {
			return fmt.Errorf("%w: refresh token already used", ErrUnauthorized)
		}

		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: account disabled", ErrUnauthorized)
			}
			return err
		}
		res, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Repo.RevokeRefreshByHash(ctx, tokens.Sha256Hex(refreshToken))
}
