package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/JKeiyuru/cornells-sub002/internal/repo"
	pkgdb "github.com/JKeiyuru/cornells-sub002/pkg/db"
)

var (
	ErrValidation        = errors.New("validation")         // 400
	ErrInsufficientStock = errors.New("insufficient stock") // 400
	ErrUnauthorized      = errors.New("unauthorized")       // 401
	ErrForbidden         = errors.New("forbidden")          // 403
	ErrNotFound          = errors.New("not found")          // 404
	ErrConflict          = errors.New("conflict")           // 409
	ErrRateLimited       = errors.New("rate limited")       // 429
	ErrUnavailable       = errors.New("unavailable")        // 503
)

// ValidationError collects every field problem of one request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

// OrNil lets callers return the collector directly once all checks ran.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// StockShortage is one line that asked for more than the shelf holds.
type StockShortage struct {
	ProductID uuid.UUID `json:"productId"`
	Title     string    `json:"title"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

type StockError struct {
	Items []StockShortage
}

func (e *StockError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", it.Title, it.Requested, it.Available))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// translate maps persistence errors onto the service taxonomy.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case pkgdb.IsUniqueViolation(err):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	case errors.Is(err, repo.ErrInsufficientStock):
		return fmt.Errorf("%w: %s", ErrInsufficientStock, what)
	default:
		return err
	}
}
