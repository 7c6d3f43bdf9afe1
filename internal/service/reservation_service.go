// Package service implements the business logic between HTTP handlers
// and the repository layer. Its centrepiece is the reservation
// lifecycle engine: the orchestration of capacity checks, reservation
// creation and status transitions that keeps an event's booked count
// consistent with its active reservations under concurrent callers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

// EventStore is the persistence gateway the engine needs for events.
// IncrementBookedCount must be atomic with respect to concurrent
// callers on the same event and must enforce the capacity ceiling
// itself; DecrementBookedCount must floor at zero. *repository.EventRepo
// satisfies this interface.
type EventStore interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
	IncrementBookedCount(ctx context.Context, id string, quantity uint32) error
	DecrementBookedCount(ctx context.Context, id string, quantity uint32) error
}

// ReservationStore is the persistence gateway the engine needs for
// reservations. TransitionStatus must be a conditional write keyed on
// the current status so racing transitions cannot both apply.
// *repository.ReservationRepo satisfies this interface.
type ReservationStore interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
	TransitionStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
}

// Publisher emits domain events for audit consumers. Publish failures
// never fail the reservation operation itself; they are logged and the
// operation's result stands.
type Publisher interface {
	PublishReservationConfirmed(ctx context.Context, event queue.ReservationConfirmedEvent) error
	PublishCapacityDrift(ctx context.Context, event queue.CapacityDriftEvent) error
}

// ErrInvalidQuantity is returned when a reservation is requested for
// zero seats.
var ErrInvalidQuantity = errors.New("quantity must be a positive integer")

// DriftError reports a partial failure: a reservation write was
// persisted but the paired booked-count update (or its compensating
// rollback) could not be completed. The reservation and event ids are
// carried so the reconciler can find and repair the divergence; the
// error is surfaced distinctly instead of being masked as a generic
// storage failure.
type DriftError struct {
	EventID       string
	ReservationID string
	Quantity      uint32
	Err           error
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("booked count drift on event %s (reservation %s, quantity %d): %v",
		e.EventID, e.ReservationID, e.Quantity, e.Err)
}

func (e *DriftError) Unwrap() error { return e.Err }

// ReservationService is the reservation lifecycle engine. It holds no
// locks across store calls: every capacity decision is delegated to
// the store's conditional writes, so the engine is safe to invoke from
// any number of concurrent request handlers.
type ReservationService struct {
	events       EventStore
	reservations ReservationStore
	publisher    Publisher
	now          func() time.Time
	newCode      func() (string, error)
}

// NewReservationService constructs the engine. publisher may be nil
// when no broker is configured; audit events are then skipped.
func NewReservationService(events EventStore, reservations ReservationStore, publisher Publisher) *ReservationService {
	if events == nil || reservations == nil {
		panic("nil store passed to NewReservationService")
	}
	return &ReservationService{
		events:       events,
		reservations: reservations,
		publisher:    publisher,
		now:          func() time.Time { return time.Now().UTC() },
		newCode:      utils.NewTicketCode,
	}
}

// ticketCodeAttempts bounds the regenerate-and-retry loop on a
// ticket_code collision.
const ticketCodeAttempts = 3

// CreateReservation reserves quantity seats on an event for a user and
// returns the new PENDING reservation.
//
// The availability comparison against AvailableSeats is a fast path
// only: between that read and the counter update another caller may
// take the remaining seats. The authoritative guard is the conditional
// increment, which the store rejects when it would exceed capacity.
// The reservation row is persisted first and the counter updated last;
// when the increment is refused, the row is deleted again so no
// uncounted active reservation survives.
func (s *ReservationService) CreateReservation(ctx context.Context, eventID string, userID uint64, quantity uint32) (*model.Reservation, error) {
	if quantity == 0 {
		return nil, ErrInvalidQuantity
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsPublished() {
		return nil, fmt.Errorf("event is not published: %w", repository.ErrInvalidState)
	}
	if quantity > event.AvailableSeats() {
		return nil, repository.ErrEventFull
	}

	// One active reservation per user per event.
	existing, err := s.reservations.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	for i := range existing {
		if existing[i].EventID == eventID && existing[i].IsActive() {
			return nil, repository.ErrDuplicateReservation
		}
	}

	res := &model.Reservation{
		EventID:  eventID,
		UserID:   userID,
		Quantity: quantity,
		Status:   model.ReservationStatusPending,
	}
	if err := s.createWithFreshCode(ctx, res); err != nil {
		return nil, err
	}

	if err := s.events.IncrementBookedCount(ctx, eventID, quantity); err != nil {
		return nil, s.rollbackCreate(ctx, res, err)
	}
	return res, nil
}

// createWithFreshCode persists the reservation, regenerating the ticket
// code on the rare unique-column collision.
func (s *ReservationService) createWithFreshCode(ctx context.Context, res *model.Reservation) error {
	for attempt := 0; attempt < ticketCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return err
		}
		res.TicketCode = code
		err = s.reservations.Create(ctx, res)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateTicketCode) {
			return fmt.Errorf("create reservation: %w", err)
		}
	}
	return fmt.Errorf("create reservation: %w", repository.ErrDuplicateTicketCode)
}

// rollbackCreate deletes the just-created PENDING reservation after the
// counter increment was refused or failed. If the delete itself fails
// the row survives without counted seats, which is exactly the drift
// the reconciler repairs, so a DriftError is returned and published.
func (s *ReservationService) rollbackCreate(ctx context.Context, res *model.Reservation, cause error) error {
	if delErr := s.reservations.Delete(ctx, res.ID); delErr != nil {
		drift := &DriftError{EventID: res.EventID, ReservationID: res.ID, Quantity: res.Quantity,
			Err: fmt.Errorf("rollback after increment failure (%v): %w", cause, delErr)}
		s.reportDrift(ctx, drift, "pending reservation persisted but not counted")
		return drift
	}
	switch {
	case errors.Is(cause, repository.ErrEventFull),
		errors.Is(cause, repository.ErrInvalidState),
		errors.Is(cause, repository.ErrEventNotFound):
		return cause
	}
	return fmt.Errorf("increment booked count: %w", cause)
}

// ConfirmReservation moves a PENDING reservation to CONFIRMED. Seats
// were already counted at creation time, so the booked count does not
// change.
func (s *ReservationService) ConfirmReservation(ctx context.Context, reservationID string) (*model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status != model.ReservationStatusPending {
		return nil, fmt.Errorf("only pending reservations can be confirmed: %w", repository.ErrInvalidState)
	}
	now := s.now()
	applied, err := s.reservations.TransitionStatus(ctx, res.ID,
		model.ReservationStatusPending, model.ReservationStatusConfirmed, now)
	if err != nil {
		return nil, fmt.Errorf("confirm reservation: %w", err)
	}
	if !applied {
		// Lost the race to a concurrent transition.
		return nil, fmt.Errorf("only pending reservations can be confirmed: %w", repository.ErrInvalidState)
	}
	res.Status = model.ReservationStatusConfirmed
	res.ConfirmedAt = &now

	s.publishConfirmed(ctx, res)
	return res, nil
}

// RefuseReservation moves a PENDING reservation to REFUSED and releases
// its held seats back to the event.
func (s *ReservationService) RefuseReservation(ctx context.Context, reservationID string) (*model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.Status != model.ReservationStatusPending {
		return nil, fmt.Errorf("only pending reservations can be refused: %w", repository.ErrInvalidState)
	}
	applied, err := s.reservations.TransitionStatus(ctx, res.ID,
		model.ReservationStatusPending, model.ReservationStatusRefused, s.now())
	if err != nil {
		return nil, fmt.Errorf("refuse reservation: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("only pending reservations can be refused: %w", repository.ErrInvalidState)
	}
	res.Status = model.ReservationStatusRefused

	if err := s.releaseSeats(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// CancelReservation cancels a reservation on behalf of its owner. The
// requesting user must own the reservation; administrative callers use
// CancelReservationAdmin instead.
func (s *ReservationService) CancelReservation(ctx context.Context, reservationID string, requestingUserID uint64) (*model.Reservation, error) {
	return s.cancel(ctx, reservationID, &requestingUserID)
}

// CancelReservationAdmin cancels a reservation without an ownership
// check. It backs privileged paths such as organizer moderation.
func (s *ReservationService) CancelReservationAdmin(ctx context.Context, reservationID string) (*model.Reservation, error) {
	return s.cancel(ctx, reservationID, nil)
}

func (s *ReservationService) cancel(ctx context.Context, reservationID string, requestingUserID *uint64) (*model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if requestingUserID != nil && res.UserID != *requestingUserID {
		return nil, fmt.Errorf("reservation does not belong to user: %w", repository.ErrForbidden)
	}
	if !res.IsActive() {
		// Already REFUSED or CANCELED; a second release would double-free
		// the seats.
		return nil, fmt.Errorf("reservation is already %s: %w", res.Status, repository.ErrInvalidState)
	}
	now := s.now()
	applied, err := s.reservations.TransitionStatus(ctx, res.ID,
		res.Status, model.ReservationStatusCanceled, now)
	if err != nil {
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}
	if !applied {
		return nil, fmt.Errorf("reservation is no longer %s: %w", res.Status, repository.ErrInvalidState)
	}
	res.Status = model.ReservationStatusCanceled
	res.CanceledAt = &now

	if err := s.releaseSeats(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetMyReservations returns all reservations made by the user, newest
// first. Pure read, no state change.
func (s *ReservationService) GetMyReservations(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return s.reservations.ListByUser(ctx, userID)
}

// GetReservation returns a reservation if it belongs to the requesting
// user.
func (s *ReservationService) GetReservation(ctx context.Context, reservationID string, requestingUserID uint64) (*model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != requestingUserID {
		return nil, fmt.Errorf("reservation does not belong to user: %w", repository.ErrForbidden)
	}
	return res, nil
}

// releaseSeats returns a terminal reservation's seats to its event.
// The terminal status is already persisted at this point; a failed
// decrement therefore leaves the counter too high and is surfaced as a
// DriftError rather than undone, letting the reconciler repair it.
func (s *ReservationService) releaseSeats(ctx context.Context, res *model.Reservation) error {
	if err := s.events.DecrementBookedCount(ctx, res.EventID, res.Quantity); err != nil {
		drift := &DriftError{EventID: res.EventID, ReservationID: res.ID, Quantity: res.Quantity,
			Err: fmt.Errorf("release seats: %w", err)}
		s.reportDrift(ctx, drift, "terminal reservation persisted but seats not released")
		return drift
	}
	return nil
}

func (s *ReservationService) publishConfirmed(ctx context.Context, res *model.Reservation) {
	if s.publisher == nil {
		return
	}
	title := ""
	if event, err := s.events.GetByID(ctx, res.EventID); err == nil {
		title = event.Title
	}
	ev := queue.ReservationConfirmedEvent{
		ReservationID: res.ID,
		TicketCode:    res.TicketCode,
		EventID:       res.EventID,
		EventTitle:    title,
		UserID:        res.UserID,
		Quantity:      res.Quantity,
		ConfirmedAt:   res.ConfirmedAt.Format(time.RFC3339),
	}
	if err := s.publisher.PublishReservationConfirmed(ctx, ev); err != nil {
		log.Printf("reservation-service: publish confirmed event failed: %v", err)
	}
}

func (s *ReservationService) reportDrift(ctx context.Context, drift *DriftError, reason string) {
	log.Printf("reservation-service: %s: %v", reason, drift)
	if s.publisher == nil {
		return
	}
	ev := queue.CapacityDriftEvent{
		EventID:       drift.EventID,
		ReservationID: drift.ReservationID,
		Quantity:      drift.Quantity,
		Reason:        reason,
		DetectedAt:    s.now().Format(time.RFC3339),
	}
	if err := s.publisher.PublishCapacityDrift(ctx, ev); err != nil {
		log.Printf("reservation-service: publish drift event failed: %v", err)
	}
}
