package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/JKeiyuru/cornells-sub002/internal/service"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeRateLimited       = "RATE_LIMITED"
	CodeUnavailable       = "UNAVAILABLE"
	CodeInternal          = "INTERNAL_ERROR"
)

const internalMessage = "internal server error"

// APIError is what handlers return; the error handler renders it.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
	Items   []service.StockShortage
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

type errorBody struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Code    string                  `json:"code"`
	Errors  map[string]string       `json:"errors,omitempty"`
	Items   []service.StockShortage `json:"items,omitempty"`
	Detail  string                  `json:"detail,omitempty"`
}

// publicMessage drops the sentinel prefix the service layer puts in front.
func publicMessage(err error, sentinel error) string {
	msg := err.Error()
	if trimmed, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return trimmed
	}
	return msg
}

// toAPIError classifies a service error.
func toAPIError(err error) *APIError {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae
	}

	var ve *service.ValidationError
	if errors.As(err, &ve) {
		msg := strings.TrimPrefix(ve.Error(), service.ErrValidation.Error()+": ")
		return &APIError{Status: http.StatusBadRequest, Code: CodeValidation, Message: msg, Fields: ve.Fields, Err: err}
	}

	var se *service.StockError
	if errors.As(err, &se) {
		return &APIError{Status: http.StatusBadRequest, Code: CodeInsufficientStock, Message: se.Error(), Items: se.Items, Err: err}
	}

	table := []struct {
		sentinel error
		status   int
		code     string
	}{
		{service.ErrValidation, http.StatusBadRequest, CodeValidation},
		{service.ErrInsufficientStock, http.StatusBadRequest, CodeInsufficientStock},
		{service.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized},
		{service.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{service.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{service.ErrConflict, http.StatusConflict, CodeConflict},
		{service.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
		{service.ErrUnavailable, http.StatusServiceUnavailable, CodeUnavailable},
	}
	for _, row := range table {
		if errors.Is(err, row.sentinel) {
			return &APIError{Status: row.status, Code: row.code, Message: publicMessage(err, row.sentinel), Err: err}
		}
	}
	return &APIError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: internalMessage, Err: err}
}

// fail logs the outcome of a failed handler and hands the error to the error handler.
func fail(l *slog.Logger, event string, err error) error {
	ae := toAPIError(err)
	if ae.Status >= http.StatusInternalServerError {
		l.Error(event, "status", ae.Status, "code", ae.Code, "error", err)
	} else {
		l.Warn(event, "status", ae.Status, "code", ae.Code, "error", err)
	}
	return ae
}

func badRequest(l *slog.Logger, event, reason string, err error) error {
	l.Warn(event, "status", http.StatusBadRequest, "reason", reason, "error", err)
	return &APIError{Status: http.StatusBadRequest, Code: CodeValidation, Message: reason, Err: err}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeRateLimited
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	}
	if status >= http.StatusInternalServerError {
		return CodeInternal
	}
	return http.StatusText(status)
}

// ErrorHandler renders every error as {success:false, message, code}.
// Unexpected failures are reported as a bare 500; development adds the cause.
func ErrorHandler(development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		var ae *APIError
		switch {
		case errors.As(err, &ae):
		case errors.As(err, &he):
			ae = &APIError{Status: he.Code, Code: codeForStatus(he.Code), Message: fmt.Sprint(he.Message), Err: he.Internal}
		default:
			ae = toAPIError(err)
		}

		body := errorBody{Message: ae.Message, Code: ae.Code, Errors: ae.Fields, Items: ae.Items}
		if ae.Status == http.StatusInternalServerError {
			body.Message = internalMessage
			if development && ae.Err != nil {
				body.Detail = ae.Err.Error()
			}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(ae.Status)
		} else {
			werr = c.JSON(ae.Status, body)
		}
		if werr != nil {
			c.Logger().Error(werr)
		}
	}
}
