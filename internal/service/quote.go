package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/JKeiyuru/cornells-sub002/internal/messaging"
	"github.com/JKeiyuru/cornells-sub002/internal/notify"
	"github.com/JKeiyuru/cornells-sub002/internal/quotes"
	"github.com/JKeiyuru/cornells-sub002/internal/repo"
	"github.com/JKeiyuru/cornells-sub002/internal/transport"
)

const (
	maxQuoteMessageLength = 2000
	defaultQuoteListLimit = 50
)

type QuoteStore interface {
	Insert(ctx context.Context, q *quotes.Request) error
	List(ctx context.Context, status string, limit int64) ([]quotes.Request, error)
}

type QuoteService struct {
	Store    QuoteStore
	Repo     *repo.GormRepo
	Notifier *notify.Dispatcher
}

func validateQuote(req transport.QuoteRequest) *ValidationError {
	ve := &ValidationError{}
	if strings.TrimSpace(req.Name) == "" {
		ve.Add("name", "is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		ve.Add("email", "must be a valid email address")
	}
	if req.Quantity < 1 {
		ve.Add("quantity", "must be at least 1")
	}
	if len(req.Message) > maxQuoteMessageLength {
		ve.Add("message", fmt.Sprintf("must be at most %d characters", maxQuoteMessageLength))
	}
	return ve
}

// RequestQuote records a bulk enquiry. The requested quantity must reach the
// product's minimum order quantity. Anonymous callers are allowed; a signed-in
// caller is linked to the request.
func (s *QuoteService) RequestQuote(ctx context.Context, actor Actor, productID uuid.UUID, req transport.QuoteRequest) (*quotes.Request, error) {
	ve := validateQuote(req)
	if !ve.Empty() {
		return nil, ve
	}
	if s.Store == nil {
		return nil, fmt.Errorf("%w: quote requests are not available", ErrUnavailable)
	}

	p, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, translate(err, "product")
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: product", ErrNotFound)
	}
	if req.Quantity < p.MOQ {
		return nil, invalid("quantity", fmt.Sprintf("must be at least the minimum order quantity of %d", p.MOQ))
	}

	q := &quotes.Request{
		ProductID:    p.ID.String(),
		ProductTitle: p.Title,
		Brand:        p.Brand,
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Company:      strings.TrimSpace(req.Company),
		Phone:        strings.TrimSpace(req.Phone),
		Quantity:     req.Quantity,
		Message:      strings.TrimSpace(req.Message),
		Status:       quotes.StatusNew,
	}
	if actor.ID != uuid.Nil {
		q.UserID = actor.ID.String()
	}
	if err := s.Store.Insert(ctx, q); err != nil {
		return nil, err
	}

	s.Notifier.Dispatch(ctx, messaging.TopicQuotes, p.ID.String(), notify.NewEvent("quote_requested", actor.ID, map[string]any{
		"productId": p.ID,
		"brand":     p.Brand,
		"quantity":  q.Quantity,
		"email":     q.Email,
	}))
	return q, nil
}

func (s *QuoteService) ListQuotes(ctx context.Context, actor Actor, status string, limit int) ([]quotes.Request, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if s.Store == nil {
		return nil, fmt.Errorf("%w: quote requests are not available", ErrUnavailable)
	}
	switch status {
	case "", quotes.StatusNew, quotes.StatusContacted, quotes.StatusClosed:
	default:
		return nil, invalid("status", "must be one of new, contacted, closed")
	}
	if limit <= 0 || limit > maxShortListLimit {
		limit = defaultQuoteListLimit
	}
	return s.Store.List(ctx, status, int64(limit))
}
