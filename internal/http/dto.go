package httpapi

import (
	"lodgfy-booking/internal/domain"
	"lodgfy-booking/internal/service"
)

// ============================================
// Reservation payloads
// ============================================

type createReservationBody struct {
	UnitID   string `json:"unit_id" validate:"required"`
	GuestID  string `json:"guest_id" validate:"required"`
	CheckIn  string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" validate:"required,datetime=2006-01-02"`
}

func (b createReservationBody) toRequest() (service.CreateReservationRequest, error) {
	in, err := parseDay("check_in", b.CheckIn)
	if err != nil {
		return service.CreateReservationRequest{}, err
	}
	out, err := parseDay("check_out", b.CheckOut)
	if err != nil {
		return service.CreateReservationRequest{}, err
	}
	return service.CreateReservationRequest{
		UnitID:   b.UnitID,
		GuestID:  b.GuestID,
		CheckIn:  in,
		CheckOut: out,
	}, nil
}

// updateReservationBody unit_id and guest_id may be omitted to keep the current values.
type updateReservationBody struct {
	UnitID   string `json:"unit_id"`
	GuestID  string `json:"guest_id"`
	CheckIn  string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" validate:"required,datetime=2006-01-02"`
}

func (b updateReservationBody) toRequest(id string) (service.UpdateReservationRequest, error) {
	in, err := parseDay("check_in", b.CheckIn)
	if err != nil {
		return service.UpdateReservationRequest{}, err
	}
	out, err := parseDay("check_out", b.CheckOut)
	if err != nil {
		return service.UpdateReservationRequest{}, err
	}
	return service.UpdateReservationRequest{
		ReservationID: id,
		UnitID:        b.UnitID,
		GuestID:       b.GuestID,
		CheckIn:       in,
		CheckOut:      out,
	}, nil
}

// ============================================
// Unit payloads
// ============================================

type unitBody struct {
	Name        string       `json:"name" validate:"required,max=120"`
	Code        string       `json:"code" validate:"required,max=32"`
	Kind        string       `json:"kind" validate:"omitempty,oneof=Standard Luxury Family Suite"`
	Description string       `json:"description" validate:"max=2000"`
	NightlyRate domain.Money `json:"nightly_rate" validate:"gte=0"`
	Capacity    int          `json:"capacity" validate:"gt=0"`
}

func (b unitBody) toRequest() service.UnitRequest {
	return service.UnitRequest{
		Name:        b.Name,
		Code:        b.Code,
		Kind:        b.Kind,
		Description: b.Description,
		NightlyRate: b.NightlyRate,
		Capacity:    b.Capacity,
	}
}

type findAvailableBody struct {
	Guests   int    `json:"guests" validate:"gt=0"`
	CheckIn  string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" validate:"required,datetime=2006-01-02"`
}

func (b findAvailableBody) toRequest() (service.FindAvailableUnitsRequest, error) {
	in, err := parseDay("check_in", b.CheckIn)
	if err != nil {
		return service.FindAvailableUnitsRequest{}, err
	}
	out, err := parseDay("check_out", b.CheckOut)
	if err != nil {
		return service.FindAvailableUnitsRequest{}, err
	}
	return service.FindAvailableUnitsRequest{Guests: b.Guests, CheckIn: in, CheckOut: out}, nil
}
