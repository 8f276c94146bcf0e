package domain

// Guest as resolved from the guest directory. Only existence matters to bookings.
type Guest struct {
	GuestID string `db:"guest_id" json:"guest_id"`
	Name    string `db:"name" json:"name,omitempty"`
	Email   string `db:"email" json:"email,omitempty"`
}
