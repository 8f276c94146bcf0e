package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"lodgfy-booking/internal/domain"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrGuestDirectoryUnavailable the breaker is open or the directory keeps failing.
var ErrGuestDirectoryUnavailable = errors.New("guest directory unavailable")

// HTTPGuestDirectory resolves guests through the registration service's REST API:
//
//	GET {base}/api/guests/{id} -> 200 {"guest_id","name","email"} | 404
type HTTPGuestDirectory struct {
	httpClient *resty.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

type guestResponse struct {
	GuestID string `json:"guest_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
}

// NewHTTPGuestDirectory builds the client. Transport errors and 5xx count against the breaker;
// 404 is a normal answer.
func NewHTTPGuestDirectory(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPGuestDirectory {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "guest-directory",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &HTTPGuestDirectory{
		httpClient: client,
		breaker:    breaker,
		logger:     logger,
	}
}

var _ GuestDirectory = (*HTTPGuestDirectory)(nil)

func (d *HTTPGuestDirectory) GuestExists(ctx context.Context, guestID string) (bool, error) {
	_, err := d.GetGuest(ctx, guestID)
	if err != nil {
		if errors.Is(err, domain.ErrGuestNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *HTTPGuestDirectory) GetGuest(ctx context.Context, guestID string) (*domain.Guest, error) {
	out, err := d.breaker.Execute(func() (interface{}, error) {
		var body guestResponse
		resp, err := d.httpClient.R().
			SetContext(ctx).
			SetResult(&body).
			Get("/api/guests/" + url.PathEscape(guestID))
		if err != nil {
			return nil, fmt.Errorf("failed to call guest directory: %w", err)
		}
		switch {
		case resp.StatusCode() == http.StatusNotFound:
			// not a breaker failure
			return (*domain.Guest)(nil), nil
		case resp.IsError():
			return nil, fmt.Errorf("guest directory returned status %d", resp.StatusCode())
		}
		if body.GuestID == "" {
			body.GuestID = guestID
		}
		return &domain.Guest{GuestID: body.GuestID, Name: body.Name, Email: body.Email}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrGuestDirectoryUnavailable, err)
		}
		d.logger.Error("Guest directory lookup failed", zap.String("guest_id", guestID), zap.Error(err))
		return nil, err
	}

	guest, _ := out.(*domain.Guest)
	if guest == nil {
		return nil, fmt.Errorf("guest %s: %w", guestID, domain.ErrGuestNotFound)
	}
	return guest, nil
}
