package httpapi

import (
	"context"
	"io"
	"net/http"
	"sort"
	"time"

	"lodgfy-booking/internal/auth"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HealthCheck checks one dependency (database, redis, ...).
type HealthCheck func(ctx context.Context) error

// Router gorilla/mux routes plus the middleware chain applied by Handler.
type Router struct {
	mux    *mux.Router
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    mux.NewRouter(),
		logger: logger,
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoutes GET /healthz; 503 when any check fails.
func (r *Router) RegisterHealthRoutes(checks map[string]HealthCheck) {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	r.mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		out := map[string]string{}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				r.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
				out[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = "ok"
		}
		if status != http.StatusOK {
			writeJSON(w, status, Result[map[string]string]{Code: ResultError, Type: "error", Message: "unhealthy", Result: out})
			return
		}
		writeJSON(w, status, Ok(out))
	}).Methods(http.MethodGet)
}

func (r *Router) RegisterReservationRoutes(h *ReservationHandler) {
	s := r.mux.PathPrefix("/api/reservations").Subrouter()
	s.HandleFunc("", h.List).Methods(http.MethodGet)
	s.HandleFunc("", h.Create).Methods(http.MethodPost)
	s.HandleFunc("/export", h.Export).Methods(http.MethodGet)
	s.HandleFunc("/guest/{guestId}", h.ListByGuest).Methods(http.MethodGet)
	s.HandleFunc("/unit/{unitId}", h.ListByUnit).Methods(http.MethodGet)
	s.HandleFunc("/status/{status}", h.ListByStatus).Methods(http.MethodGet)
	s.HandleFunc("/{id}", h.Get).Methods(http.MethodGet)
	s.HandleFunc("/{id}", h.Update).Methods(http.MethodPut)
	s.HandleFunc("/{id}", h.Delete).Methods(http.MethodDelete)
	s.HandleFunc("/{id}/confirm", h.Confirm).Methods(http.MethodPost)
	s.HandleFunc("/{id}/cancel", h.Cancel).Methods(http.MethodPost)
	s.HandleFunc("/{id}/complete", h.Complete).Methods(http.MethodPost)
}

func (r *Router) RegisterUnitRoutes(h *UnitHandler) {
	s := r.mux.PathPrefix("/api/units").Subrouter()
	s.HandleFunc("", h.List).Methods(http.MethodGet)
	s.HandleFunc("", h.Create).Methods(http.MethodPost)
	s.HandleFunc("/search", h.Search).Methods(http.MethodGet)
	s.HandleFunc("/available", h.FindAvailable).Methods(http.MethodPost)
	s.HandleFunc("/{id}", h.Get).Methods(http.MethodGet)
	s.HandleFunc("/{id}", h.Update).Methods(http.MethodPut)
	s.HandleFunc("/{id}", h.Delete).Methods(http.MethodDelete)
	s.HandleFunc("/{id}/availability", h.Availability).Methods(http.MethodGet)
	s.HandleFunc("/{id}/release", h.Release).Methods(http.MethodPost)
}

// Options for the outer middleware chain.
type Options struct {
	CORSOrigins []string
	// Tokens enables bearer authentication on every route except /healthz.
	Tokens auth.TokenValidator
}

// Handler wraps the routes with request logging, authentication, CORS and panic recovery.
func (r *Router) Handler(opts Options) http.Handler {
	var h http.Handler = r.mux

	if opts.Tokens != nil {
		mapper := NewBookingErrorMapper()
		h = auth.Middleware(opts.Tokens, func(w http.ResponseWriter, req *http.Request, err error) {
			info := mapper.Map(err)
			writeJSON(w, info.Status, Fail(info.Message))
		}, "/healthz")(h)
	}

	h = gorillaHandlers.CustomLoggingHandler(io.Discard, h, func(_ io.Writer, p gorillaHandlers.LogFormatterParams) {
		r.logger.Info("HTTP request",
			zap.String("method", p.Request.Method),
			zap.String("path", p.URL.Path),
			zap.Int("status", p.StatusCode),
			zap.Int("size", p.Size),
			zap.Duration("duration", time.Since(p.TimeStamp)),
		)
	})

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	h = gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(origins),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
	)(h)

	return gorillaHandlers.RecoveryHandler(
		gorillaHandlers.RecoveryLogger(zap.NewStdLog(r.logger)),
	)(h)
}
