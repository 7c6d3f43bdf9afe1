package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// EventRepo provides persistence for events. The booked_count column is
// the one piece of shared mutable state in the system; it is only ever
// changed through the conditional UPDATE statements in
// IncrementBookedCount and DecrementBookedCount so that two concurrent
// reservation attempts can never oversell an event. Application code
// must not load-mutate-save the counter.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, organizer_id, title, description, capacity, booked_count, status, starts_at, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var desc sql.NullString
	err := row.Scan(&e.ID, &e.OrganizerID, &e.Title, &desc, &e.Capacity,
		&e.BookedCount, &e.Status, &e.StartsAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		e.Description = &d
	}
	return &e, nil
}

// Create inserts a new event in DRAFT state with a zero booked count.
// A UUID is generated when the caller did not supply an id. Timestamps
// and status default in the database and are read back after insert.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	const q = `INSERT INTO events (id, organizer_id, title, description, capacity, starts_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, e.ID, e.OrganizerID, e.Title, e.Description, e.Capacity, e.StartsAt.UTC()); err != nil {
		return err
	}
	created, err := r.GetByID(ctx, e.ID)
	if err != nil {
		return err
	}
	*e = *created
	return nil
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	e, err := scanEvent(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return e, err
}

// ListByOrganizer returns all events owned by the given organizer,
// newest first.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE organizer_id = ? ORDER BY created_at DESC`
	return r.queryEvents(ctx, q, organizerID)
}

// ListPublished returns all PUBLISHED events ordered by start time.
func (r *EventRepo) ListPublished(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE status = 'PUBLISHED' ORDER BY starts_at ASC`
	return r.queryEvents(ctx, q)
}

// Search returns PUBLISHED events whose title matches the query and
// whose start time falls inside the optional [from, to] window. An
// empty query matches every title.
func (r *EventRepo) Search(ctx context.Context, query string, from, to *time.Time) ([]model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE status = 'PUBLISHED'`
	args := make([]any, 0, 3)
	if query != "" {
		q += ` AND title LIKE ?`
		args = append(args, "%"+query+"%")
	}
	if from != nil {
		q += ` AND starts_at >= ?`
		args = append(args, from.UTC())
	}
	if to != nil {
		q += ` AND starts_at <= ?`
		args = append(args, to.UTC())
	}
	q += ` ORDER BY starts_at ASC`
	return r.queryEvents(ctx, q, args...)
}

func (r *EventRepo) queryEvents(ctx context.Context, q string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// UpdateInfo updates title, description and capacity for an event owned
// by the given organizer. The capacity change is conditional on the new
// capacity still covering the current booked count, so shrinking an
// event below its held seats fails with ErrInvalidState.
func (r *EventRepo) UpdateInfo(ctx context.Context, id string, organizerID uint64, title string, description *string, capacity uint32) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.OrganizerID != organizerID {
		return ErrForbidden
	}
	const q = `UPDATE events SET title = ?, description = ?, capacity = ?
	           WHERE id = ? AND booked_count <= ?`
	res, err := r.db.ExecContext(ctx, q, title, description, capacity, id, capacity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidState
	}
	return nil
}

// TransitionStatus moves an event from one status to another with a
// conditional write. It returns ErrForbidden when the event is not
// owned by organizerID, ErrInvalidState when the event is no longer in
// the expected source status, and ErrEventNotFound when it is absent.
func (r *EventRepo) TransitionStatus(ctx context.Context, id string, organizerID uint64, from, to string) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.OrganizerID != organizerID {
		return ErrForbidden
	}
	const q = `UPDATE events SET status = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Lost a race with a concurrent transition; the guard on the
		// source status makes the write a no-op instead of a lost update.
		return ErrInvalidState
	}
	return nil
}

// IncrementBookedCount atomically adds quantity seats to the event's
// booked count. The UPDATE carries the capacity ceiling and the
// PUBLISHED requirement in its WHERE clause, so the database decides
// the race: of two concurrent attempts for the last seats exactly one
// can match the condition. When no row is affected the event is
// re-read to report the precise reason (absent, not published, full).
func (r *EventRepo) IncrementBookedCount(ctx context.Context, id string, quantity uint32) error {
	const q = `UPDATE events SET booked_count = booked_count + ?
	           WHERE id = ? AND status = 'PUBLISHED' AND booked_count + ? <= capacity`
	res, err := r.db.ExecContext(ctx, q, quantity, id, quantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !e.IsPublished() {
		return ErrInvalidState
	}
	return ErrEventFull
}

// DecrementBookedCount atomically releases quantity seats back to the
// event. The LEAST guard floors the counter at zero; a correct caller
// never triggers the floor, but the operation must be safe if it does.
func (r *EventRepo) DecrementBookedCount(ctx context.Context, id string, quantity uint32) error {
	const q = `UPDATE events SET booked_count = booked_count - LEAST(booked_count, ?) WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, quantity, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// CounterDrift describes an event whose booked count disagrees with the
// sum of quantities over its active reservations. It is produced by
// ListCounterDrift and consumed by the reconciler.
type CounterDrift struct {
	EventID     string
	BookedCount uint32
	ActiveSum   uint32
}

// ListCounterDrift compares every event's booked count against the
// summed quantity of its PENDING and CONFIRMED reservations and returns
// the events where the two disagree.
func (r *EventRepo) ListCounterDrift(ctx context.Context) ([]CounterDrift, error) {
	const q = `SELECT e.id, e.booked_count, COALESCE(SUM(res.quantity), 0) AS active_sum
	           FROM events e
	           LEFT JOIN reservations res
	             ON res.event_id = e.id AND res.status IN ('PENDING', 'CONFIRMED')
	           GROUP BY e.id, e.booked_count
	           HAVING e.booked_count <> active_sum`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var drifts []CounterDrift
	for rows.Next() {
		var d CounterDrift
		if err := rows.Scan(&d.EventID, &d.BookedCount, &d.ActiveSum); err != nil {
			return nil, err
		}
		drifts = append(drifts, d)
	}
	return drifts, rows.Err()
}

// RepairBookedCount sets the booked count to the reconciled value, but
// only if the counter still holds the value observed by the drift scan.
// The compare-and-set guard keeps the repair from clobbering counter
// updates that landed after the scan. It reports whether a row changed.
func (r *EventRepo) RepairBookedCount(ctx context.Context, id string, observed, reconciled uint32) (bool, error) {
	const q = `UPDATE events SET booked_count = ? WHERE id = ? AND booked_count = ?`
	res, err := r.db.ExecContext(ctx, q, reconciled, id, observed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
