package model

import "time"

// Event status values.  Only PUBLISHED events accept reservations.
// DRAFT events are visible to their organizer alone; CANCELED events
// are frozen and reject new reservations while leaving existing ones
// untouched.
const (
	EventStatusDraft     = "DRAFT"
	EventStatusPublished = "PUBLISHED"
	EventStatusCanceled  = "CANCELED"
)

// Event represents a publishable activity with a fixed seat capacity.
// BookedCount tracks the seats currently held by PENDING or CONFIRMED
// reservations; it is mutated only through the conditional counter
// updates in the event repository, never by direct assignment, so the
// invariant 0 <= BookedCount <= Capacity holds even under concurrent
// reservation attempts.
//
// Fields:
//  ID          – opaque unique identifier (UUID string).
//  OrganizerID – user who owns the event.
//  Title       – display title.
//  Description – optional description.
//  Capacity    – total number of seats, positive.
//  BookedCount – seats currently held, 0..Capacity.
//  Status      – DRAFT, PUBLISHED or CANCELED.
//  StartsAt    – when the event takes place.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
	ID          string    `json:"id"`           // events.id
	OrganizerID uint64    `json:"organizer_id"` // events.organizer_id
	Title       string    `json:"title"`        // events.title
	Description *string   `json:"description,omitempty"`
	Capacity    uint32    `json:"capacity"`     // events.capacity
	BookedCount uint32    `json:"booked_count"` // events.booked_count
	Status      string    `json:"status"`       // events.status
	StartsAt    time.Time `json:"starts_at"`    // events.starts_at
	CreatedAt   time.Time `json:"created_at"`   // events.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // events.updated_at
}

// AvailableSeats returns the number of seats still open for
// reservation.  It is derived from Capacity and BookedCount and is
// never stored independently.
func (e *Event) AvailableSeats() uint32 {
	if e.BookedCount >= e.Capacity {
		return 0
	}
	return e.Capacity - e.BookedCount
}

// IsPublished reports whether the event currently accepts reservations.
func (e *Event) IsPublished() bool { return e.Status == EventStatusPublished }
