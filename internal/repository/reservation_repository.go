package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ReservationRepo provides persistence for reservations. Every status
// transition is written as a conditional UPDATE keyed on the current
// status, which doubles as the optimistic-concurrency check: when two
// transition attempts race on the same reservation, only the one whose
// precondition still holds at write time affects a row.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, ticket_code, event_id, user_id, quantity, status, confirmed_at, canceled_at, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var res model.Reservation
	var confirmedAt, canceledAt sql.NullTime
	err := row.Scan(&res.ID, &res.TicketCode, &res.EventID, &res.UserID, &res.Quantity,
		&res.Status, &confirmedAt, &canceledAt, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		res.ConfirmedAt = &t
	}
	if canceledAt.Valid {
		t := canceledAt.Time
		res.CanceledAt = &t
	}
	return &res, nil
}

// Create inserts a new reservation in PENDING state. A UUID is
// generated when the caller did not supply an id; the ticket code must
// be set by the caller. A collision on the unique ticket_code column is
// reported as ErrDuplicateTicketCode so the caller can regenerate the
// code and retry.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	const q = `INSERT INTO reservations (id, ticket_code, event_id, user_id, quantity, status)
	           VALUES (?, ?, ?, ?, ?, 'PENDING')`
	if _, err := r.db.ExecContext(ctx, q, res.ID, res.TicketCode, res.EventID, res.UserID, res.Quantity); err != nil {
		if strings.Contains(err.Error(), "1062") && strings.Contains(err.Error(), "ticket_code") {
			return ErrDuplicateTicketCode
		}
		return err
	}
	created, err := r.GetByID(ctx, res.ID)
	if err != nil {
		return err
	}
	*res = *created
	return nil
}

// GetByID returns a single reservation or ErrReservationNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// ListByUser returns all reservations made by the given user, newest
// first. Callers filter by event and status to enforce the
// one-active-reservation-per-event rule.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = ? ORDER BY created_at DESC`
	return r.queryReservations(ctx, q, userID)
}

// ListByEvent returns all reservations for the given event, newest
// first. Used by organizer endpoints to review pending requests.
func (r *ReservationRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE event_id = ? ORDER BY created_at DESC`
	return r.queryReservations(ctx, q, eventID)
}

func (r *ReservationRepo) queryReservations(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	reservations := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *res)
	}
	return reservations, rows.Err()
}

// TransitionStatus applies a status transition as a single conditional
// write: the row changes only if it still holds the expected source
// status. The timestamp column matching the target status is set from
// at (confirmed_at for CONFIRMED, canceled_at for CANCELED). It reports
// whether the transition applied; false means the reservation either
// does not exist or lost the race to another transition.
func (r *ReservationRepo) TransitionStatus(ctx context.Context, id, from, to string, at time.Time) (bool, error) {
	var q string
	args := []any{to}
	switch to {
	case model.ReservationStatusConfirmed:
		q = `UPDATE reservations SET status = ?, confirmed_at = ? WHERE id = ? AND status = ?`
		args = append(args, at.UTC())
	case model.ReservationStatusCanceled:
		q = `UPDATE reservations SET status = ?, canceled_at = ? WHERE id = ? AND status = ?`
		args = append(args, at.UTC())
	default:
		q = `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`
	}
	args = append(args, id, from)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete removes a reservation row. It exists solely to roll back a
// freshly created PENDING reservation whose paired counter increment
// was rejected; committed reservations are never deleted, they are
// transitioned to a terminal status instead.
func (r *ReservationRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM reservations WHERE id = ? AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}
