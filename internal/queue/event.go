// Package queue defines message payloads exchanged over the message
// broker and the background consumers that process them.
package queue

// Queue names. Both queues are declared durable so messages survive
// broker restarts.
const (
	ReservationConfirmedQueue = "reservation.confirmed"
	CapacityDriftQueue        = "capacity.drift"
)

// ReservationConfirmedEvent is published when a pending reservation is
// confirmed by the event's organizer. Consumers use it for audit
// logging; no delivery or payment side effects hang off this message.
type ReservationConfirmedEvent struct {
	ReservationID string `json:"reservation_id"`
	TicketCode    string `json:"ticket_code"`
	EventID       string `json:"event_id"`
	EventTitle    string `json:"event_title"`
	UserID        uint64 `json:"user_id"`
	Quantity      uint32 `json:"quantity"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// CapacityDriftEvent is published when a reservation transition was
// persisted but its paired booked-count update could not be completed,
// or when the reconciler detects that an event's counter disagrees with
// the sum of its active reservation quantities. It exists so drift is
// surfaced for repair instead of silently corrupting capacity state.
type CapacityDriftEvent struct {
	EventID       string `json:"event_id"`
	ReservationID string `json:"reservation_id,omitempty"`
	Quantity      uint32 `json:"quantity,omitempty"`
	Reason        string `json:"reason"`
	DetectedAt    string `json:"detected_at"`
}
