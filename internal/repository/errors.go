// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation service and handlers to distinguish between different
// failure scenarios without inspecting driver errors. For example,
// ErrEventFull signals that a conditional capacity update affected no
// rows, while ErrForbidden indicates that the current user is not
// authorized to act on a resource owned by someone else.
package repository

import "errors"

// ErrEventNotFound indicates that no event exists with the given id.
// Handlers should translate this into an HTTP 404 response.
var ErrEventNotFound = errors.New("event not found")

// ErrReservationNotFound indicates that no reservation exists with the
// given id. Handlers should translate this into an HTTP 404 response.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidState is returned when an operation is not valid for the
// current status of an event or reservation, such as reserving against
// an unpublished event or confirming a reservation that is no longer
// pending. Handlers should translate this into an HTTP 409 response.
var ErrInvalidState = errors.New("invalid state")

// ErrEventFull is returned when the conditional booked-count increment
// would exceed the event's capacity. The increment is the authoritative
// capacity guard; any earlier availability check is advisory only.
var ErrEventFull = errors.New("event is full")

// ErrDuplicateReservation is returned when a user who already holds an
// active (pending or confirmed) reservation for an event attempts to
// create another one for the same event.
var ErrDuplicateReservation = errors.New("user already has an active reservation for this event")

// ErrDuplicateTicketCode is returned when an insert collides on the
// unique ticket_code column. Callers regenerate the code and retry.
var ErrDuplicateTicketCode = errors.New("ticket code already exists")
