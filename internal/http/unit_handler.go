package httpapi

import (
	"net/http"
	"strings"

	"lodgfy-booking/internal/domain"
	"lodgfy-booking/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// UnitHandler chalet management and availability endpoints.
type UnitHandler struct {
	units  service.UnitService
	errors *ErrorMapper
	logger *zap.Logger
}

func NewUnitHandler(units service.UnitService, logger *zap.Logger) *UnitHandler {
	return &UnitHandler{
		units:  units,
		errors: NewBookingErrorMapper(),
		logger: logger,
	}
}

func (h *UnitHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.units.ListUnits(r.Context())
	if err != nil {
		writeError(w, h.errors, h.logger, "ListUnits", err)
		return
	}
	writeUnits(w, items)
}

func (h *UnitHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body unitBody
	if err := decodeAndValidate(r, &body); err != nil {
		writeError(w, h.errors, h.logger, "CreateUnit", err)
		return
	}
	u, err := h.units.CreateUnit(r.Context(), body.toRequest())
	if err != nil {
		writeError(w, h.errors, h.logger, "CreateUnit", err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(u))
}

func (h *UnitHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.units.GetUnit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.errors, h.logger, "GetUnit", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(u))
}

func (h *UnitHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body unitBody
	if err := decodeAndValidate(r, &body); err != nil {
		writeError(w, h.errors, h.logger, "UpdateUnit", err)
		return
	}
	u, err := h.units.UpdateUnit(r.Context(), mux.Vars(r)["id"], body.toRequest())
	if err != nil {
		writeError(w, h.errors, h.logger, "UpdateUnit", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(u))
}

func (h *UnitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.units.DeleteUnit(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, h.errors, h.logger, "DeleteUnit", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search GET /api/units/search?max_rate=300.00&q=pinheiro
func (h *UnitHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := service.SearchUnitsRequest{Query: strings.TrimSpace(q.Get("q"))}
	if raw := q.Get("max_rate"); raw != "" {
		rate, err := domain.ParseMoney(raw)
		if err != nil {
			writeError(w, h.errors, h.logger, "SearchUnits", invalidInput("max_rate: "+err.Error()))
			return
		}
		req.MaxRate = &rate
	}
	items, err := h.units.SearchUnits(r.Context(), req)
	if err != nil {
		writeError(w, h.errors, h.logger, "SearchUnits", err)
		return
	}
	writeUnits(w, items)
}

func (h *UnitHandler) FindAvailable(w http.ResponseWriter, r *http.Request) {
	var body findAvailableBody
	if err := decodeAndValidate(r, &body); err != nil {
		writeError(w, h.errors, h.logger, "FindAvailableUnits", err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeError(w, h.errors, h.logger, "FindAvailableUnits", err)
		return
	}
	items, err := h.units.FindAvailableUnits(r.Context(), req)
	if err != nil {
		writeError(w, h.errors, h.logger, "FindAvailableUnits", err)
		return
	}
	writeUnits(w, items)
}

// Availability GET /api/units/{id}/availability?check_in=2025-02-10&check_out=2025-02-14
func (h *UnitHandler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in, err := parseDay("check_in", q.Get("check_in"))
	if err != nil {
		writeError(w, h.errors, h.logger, "CheckAvailability", err)
		return
	}
	out, err := parseDay("check_out", q.Get("check_out"))
	if err != nil {
		writeError(w, h.errors, h.logger, "CheckAvailability", err)
		return
	}
	resp, err := h.units.CheckAvailability(r.Context(), mux.Vars(r)["id"], in, out)
	if err != nil {
		writeError(w, h.errors, h.logger, "CheckAvailability", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// Release ends turnover: CLEANING -> AVAILABLE.
func (h *UnitHandler) Release(w http.ResponseWriter, r *http.Request) {
	u, err := h.units.ReleaseCleaning(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.errors, h.logger, "ReleaseCleaning", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(u))
}

func writeUnits(w http.ResponseWriter, items []*domain.Unit) {
	if items == nil {
		items = []*domain.Unit{}
	}
	writeJSON(w, http.StatusOK, Ok(items))
}
