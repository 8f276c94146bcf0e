package httpapi

import (
	"context"
	"errors"
	"net/http"

	"lodgfy-booking/internal/auth"
	"lodgfy-booking/internal/domain"
	"lodgfy-booking/internal/repository"
)

// HTTPErrorInfo status and client-facing message for an error.
type HTTPErrorInfo struct {
	Status  int
	Message string
}

type ErrorMapping struct {
	Error  error
	Status int
	// Detail exposes err.Error() to the client instead of the generic message.
	Detail  bool
	Message string
}

// ErrorMapper turns service errors into HTTP statuses. Mappings are tried in order.
type ErrorMapper struct {
	mappings       []ErrorMapping
	defaultStatus  int
	defaultMessage string
}

func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{
		defaultStatus:  http.StatusInternalServerError,
		defaultMessage: "internal server error",
	}
}

// WithMapping maps err to status. detail=true passes the full error text through.
func (m *ErrorMapper) WithMapping(err error, status int, message string, detail bool) *ErrorMapper {
	m.mappings = append(m.mappings, ErrorMapping{Error: err, Status: status, Message: message, Detail: detail})
	return m
}

func (m *ErrorMapper) Map(err error) HTTPErrorInfo {
	if err == nil {
		return HTTPErrorInfo{Status: http.StatusOK}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return HTTPErrorInfo{Status: http.StatusGatewayTimeout, Message: "request timeout"}
	}
	if errors.Is(err, context.Canceled) {
		return HTTPErrorInfo{Status: http.StatusServiceUnavailable, Message: "request cancelled"}
	}
	for _, mapping := range m.mappings {
		if errors.Is(err, mapping.Error) {
			msg := mapping.Message
			if mapping.Detail {
				msg = err.Error()
			}
			return HTTPErrorInfo{Status: mapping.Status, Message: msg}
		}
	}
	return HTTPErrorInfo{Status: m.defaultStatus, Message: m.defaultMessage}
}

// NewBookingErrorMapper the mapping used by every booking endpoint.
func NewBookingErrorMapper() *ErrorMapper {
	return NewErrorMapper().
		WithMapping(domain.ErrGuestNotFound, http.StatusNotFound, "guest not found", true).
		WithMapping(domain.ErrUnitNotFound, http.StatusNotFound, "unit not found", true).
		WithMapping(domain.ErrReservationNotFound, http.StatusNotFound, "reservation not found", true).
		WithMapping(domain.ErrInvalidDateRange, http.StatusBadRequest, "invalid date range", true).
		WithMapping(domain.ErrInvalidInput, http.StatusBadRequest, "invalid input", true).
		WithMapping(domain.ErrReservationConflict, http.StatusConflict, "reservation conflict", true).
		WithMapping(domain.ErrUnitCodeTaken, http.StatusConflict, "unit code already in use", true).
		WithMapping(domain.ErrUnitInUse, http.StatusConflict, "unit has active reservations", true).
		WithMapping(domain.ErrInvalidTransition, http.StatusUnprocessableEntity, "invalid transition", true).
		WithMapping(auth.ErrMissingToken, http.StatusUnauthorized, "missing token", false).
		WithMapping(auth.ErrInvalidToken, http.StatusUnauthorized, "invalid token", false).
		WithMapping(repository.ErrGuestDirectoryUnavailable, http.StatusServiceUnavailable, "guest directory unavailable", false)
}
