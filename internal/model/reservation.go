package model

import "time"

// Reservation status values.  A reservation starts PENDING and ends in
// exactly one of the three terminal states.  REFUSED and CANCELED
// release the held seats back to the event; CONFIRMED makes the hold
// permanent.
const (
	ReservationStatusPending   = "PENDING"
	ReservationStatusConfirmed = "CONFIRMED"
	ReservationStatusRefused   = "REFUSED"
	ReservationStatusCanceled  = "CANCELED"
)

// Reservation records one user's claim on a quantity of seats for a
// single event.  Seats are counted against the event's booked count
// from the moment the reservation is created in PENDING state.
//
// Fields:
//  ID          – opaque unique identifier (UUID string).
//  TicketCode  – human-presentable unique code, independent of ID.
//  EventID     – event being reserved.
//  UserID      – user who made the reservation.
//  Quantity    – number of seats claimed, positive.
//  Status      – PENDING, CONFIRMED, REFUSED or CANCELED.
//  ConfirmedAt – set when the reservation is confirmed (nullable).
//  CanceledAt  – set when the reservation is canceled (nullable).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Reservation struct {
	ID          string     `json:"id"`          // reservations.id
	TicketCode  string     `json:"ticket_code"` // reservations.ticket_code
	EventID     string     `json:"event_id"`    // reservations.event_id
	UserID      uint64     `json:"user_id"`     // reservations.user_id
	Quantity    uint32     `json:"quantity"`    // reservations.quantity
	Status      string     `json:"status"`      // reservations.status
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CanceledAt  *time.Time `json:"canceled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"` // reservations.created_at
	UpdatedAt   time.Time  `json:"updated_at"` // reservations.updated_at
}

// IsActive reports whether the reservation still holds seats against
// its event, i.e. its status is PENDING or CONFIRMED.
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationStatusPending || r.Status == ReservationStatusConfirmed
}

// IsTerminal reports whether the reservation has reached a final state
// from which no further transition is permitted.
func (r *Reservation) IsTerminal() bool {
	switch r.Status {
	case ReservationStatusConfirmed, ReservationStatusRefused, ReservationStatusCanceled:
		return true
	}
	return false
}
