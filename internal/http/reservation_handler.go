package httpapi

import (
	"context"
	"net/http"

	"lodgfy-booking/internal/domain"
	"lodgfy-booking/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ReservationHandler reservation lifecycle endpoints.
type ReservationHandler struct {
	reservations service.ReservationService
	errors       *ErrorMapper
	logger       *zap.Logger
}

func NewReservationHandler(reservations service.ReservationService, logger *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		reservations: reservations,
		errors:       NewBookingErrorMapper(),
		logger:       logger,
	}
}

// ============================================
// Lifecycle
// ============================================

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createReservationBody
	if err := decodeAndValidate(r, &body); err != nil {
		writeError(w, h.errors, h.logger, "CreateReservation", err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeError(w, h.errors, h.logger, "CreateReservation", err)
		return
	}
	res, err := h.reservations.CreateReservation(r.Context(), req)
	if err != nil {
		writeError(w, h.errors, h.logger, "CreateReservation", err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(res))
}

func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "ConfirmReservation", h.reservations.ConfirmReservation)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "CancelReservation", h.reservations.CancelReservation)
}

func (h *ReservationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "CompleteReservation", h.reservations.CompleteReservation)
}

func (h *ReservationHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op string,
	fn func(ctx context.Context, id string) (*domain.Reservation, error),
) {
	res, err := fn(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.errors, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body updateReservationBody
	if err := decodeAndValidate(r, &body); err != nil {
		writeError(w, h.errors, h.logger, "UpdateReservation", err)
		return
	}
	req, err := body.toRequest(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.errors, h.logger, "UpdateReservation", err)
		return
	}
	res, err := h.reservations.UpdateReservation(r.Context(), req)
	if err != nil {
		writeError(w, h.errors, h.logger, "UpdateReservation", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// Delete is an administrative hard delete.
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.reservations.DeleteReservation(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, h.errors, h.logger, "DeleteReservation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ============================================
// Queries
// ============================================

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.reservations.GetReservation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.errors, h.logger, "GetReservation", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, "ListReservations", func() ([]*domain.Reservation, error) {
		return h.reservations.ListReservations(r.Context())
	})
}

func (h *ReservationHandler) ListByGuest(w http.ResponseWriter, r *http.Request) {
	h.list(w, "ListByGuest", func() ([]*domain.Reservation, error) {
		return h.reservations.ListByGuest(r.Context(), mux.Vars(r)["guestId"])
	})
}

func (h *ReservationHandler) ListByUnit(w http.ResponseWriter, r *http.Request) {
	h.list(w, "ListByUnit", func() ([]*domain.Reservation, error) {
		return h.reservations.ListByUnit(r.Context(), mux.Vars(r)["unitId"])
	})
}

func (h *ReservationHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	h.list(w, "ListByStatus", func() ([]*domain.Reservation, error) {
		return h.reservations.ListByStatus(r.Context(), mux.Vars(r)["status"])
	})
}

func (h *ReservationHandler) list(w http.ResponseWriter, op string, fetch func() ([]*domain.Reservation, error)) {
	items, err := fetch()
	if err != nil {
		writeError(w, h.errors, h.logger, op, err)
		return
	}
	if items == nil {
		items = []*domain.Reservation{}
	}
	writeJSON(w, http.StatusOK, Ok(items))
}
