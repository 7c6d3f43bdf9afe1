package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// fakeEventStore mimics the conditional counter semantics of the MySQL
// event repository: the increment enforces the capacity ceiling and
// the published status, the decrement floors at zero. All methods are
// safe for concurrent use so tests can race reservation attempts.
type fakeEventStore struct {
	mu           sync.Mutex
	events       map[string]*model.Event
	incrementErr error
	decrementErr error
}

func newFakeEventStore(events ...*model.Event) *fakeEventStore {
	s := &fakeEventStore{events: make(map[string]*model.Event)}
	for _, e := range events {
		cp := *e
		s.events[e.ID] = &cp
	}
	return s
}

func (s *fakeEventStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *fakeEventStore) IncrementBookedCount(_ context.Context, id string, quantity uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incrementErr != nil {
		return s.incrementErr
	}
	e, ok := s.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	if e.Status != model.EventStatusPublished {
		return repository.ErrInvalidState
	}
	if e.BookedCount+quantity > e.Capacity {
		return repository.ErrEventFull
	}
	e.BookedCount += quantity
	return nil
}

func (s *fakeEventStore) DecrementBookedCount(_ context.Context, id string, quantity uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decrementErr != nil {
		return s.decrementErr
	}
	e, ok := s.events[id]
	if !ok {
		return repository.ErrEventNotFound
	}
	if quantity > e.BookedCount {
		quantity = e.BookedCount
	}
	e.BookedCount -= quantity
	return nil
}

func (s *fakeEventStore) bookedCount(id string) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id].BookedCount
}

// fakeReservationStore keeps reservations in a map and mirrors the
// repository's conditional transition and PENDING-only delete.
type fakeReservationStore struct {
	mu           sync.Mutex
	reservations map[string]*model.Reservation
	seq          int
	createErr    error
	deleteErr    error
	// takenCodes simulates pre-existing ticket_code rows for
	// collision tests.
	takenCodes map[string]bool
}

func newFakeReservationStore() *fakeReservationStore {
	return &fakeReservationStore{
		reservations: make(map[string]*model.Reservation),
		takenCodes:   make(map[string]bool),
	}
}

func (s *fakeReservationStore) Create(_ context.Context, res *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if s.takenCodes[res.TicketCode] {
		return repository.ErrDuplicateTicketCode
	}
	for _, r := range s.reservations {
		if r.TicketCode == res.TicketCode {
			return repository.ErrDuplicateTicketCode
		}
	}
	if res.ID == "" {
		s.seq++
		res.ID = fmt.Sprintf("res-%d", s.seq)
	}
	res.CreatedAt = time.Now().UTC()
	res.UpdatedAt = res.CreatedAt
	cp := *res
	s.reservations[res.ID] = &cp
	return nil
}

func (s *fakeReservationStore) GetByID(_ context.Context, id string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeReservationStore) ListByUser(_ context.Context, userID uint64) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reservation
	for _, r := range s.reservations {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeReservationStore) TransitionStatus(_ context.Context, id, from, to string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = at
	switch to {
	case model.ReservationStatusConfirmed:
		r.ConfirmedAt = &at
	case model.ReservationStatusCanceled:
		r.CanceledAt = &at
	}
	return true, nil
}

func (s *fakeReservationStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	r, ok := s.reservations[id]
	if !ok {
		return repository.ErrReservationNotFound
	}
	if r.Status != model.ReservationStatusPending {
		return repository.ErrInvalidState
	}
	delete(s.reservations, id)
	return nil
}

func (s *fakeReservationStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reservations)
}

// fakePublisher records published events in memory.
type fakePublisher struct {
	mu        sync.Mutex
	confirmed []queue.ReservationConfirmedEvent
	drifts    []queue.CapacityDriftEvent
	err       error
}

func (p *fakePublisher) PublishReservationConfirmed(_ context.Context, ev queue.ReservationConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.confirmed = append(p.confirmed, ev)
	return nil
}

func (p *fakePublisher) PublishCapacityDrift(_ context.Context, ev queue.CapacityDriftEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.drifts = append(p.drifts, ev)
	return nil
}

func publishedEvent(capacity, booked uint32) *model.Event {
	return &model.Event{
		ID:          "evt-1",
		OrganizerID: 1,
		Title:       "Go Meetup",
		Capacity:    capacity,
		BookedCount: booked,
		Status:      model.EventStatusPublished,
		StartsAt:    time.Now().UTC().Add(24 * time.Hour),
	}
}

func newTestEngine(t *testing.T, events *fakeEventStore, reservations *fakeReservationStore, pub *fakePublisher) *ReservationService {
	t.Helper()
	var p Publisher
	if pub != nil {
		p = pub
	}
	return NewReservationService(events, reservations, p)
}

func TestCreateReservation(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	res, err := svc.CreateReservation(context.Background(), "evt-1", 42, 3)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusPending, res.Status)
	assert.Equal(t, uint32(3), res.Quantity)
	assert.NotEmpty(t, res.ID)
	assert.Regexp(t, `^TKT-[23456789A-HJ-NP-Z]{10}$`, res.TicketCode)
	assert.Equal(t, uint32(3), events.bookedCount("evt-1"))
}

func TestCreateReservationZeroQuantity(t *testing.T) {
	svc := newTestEngine(t, newFakeEventStore(publishedEvent(10, 0)), newFakeReservationStore(), nil)

	_, err := svc.CreateReservation(context.Background(), "evt-1", 42, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCreateReservationEventNotFound(t *testing.T) {
	svc := newTestEngine(t, newFakeEventStore(), newFakeReservationStore(), nil)

	_, err := svc.CreateReservation(context.Background(), "nope", 42, 1)
	assert.ErrorIs(t, err, repository.ErrEventNotFound)
}

func TestCreateReservationUnpublishedEvent(t *testing.T) {
	for _, status := range []string{model.EventStatusDraft, model.EventStatusCanceled} {
		t.Run(status, func(t *testing.T) {
			event := publishedEvent(10, 0)
			event.Status = status
			svc := newTestEngine(t, newFakeEventStore(event), newFakeReservationStore(), nil)

			_, err := svc.CreateReservation(context.Background(), "evt-1", 42, 1)
			assert.ErrorIs(t, err, repository.ErrInvalidState)
		})
	}
}

func TestCreateReservationExceedsCapacity(t *testing.T) {
	events := newFakeEventStore(publishedEvent(5, 3))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	_, err := svc.CreateReservation(context.Background(), "evt-1", 42, 3)
	assert.ErrorIs(t, err, repository.ErrEventFull)
	assert.Equal(t, uint32(3), events.bookedCount("evt-1"))
	assert.Zero(t, reservations.count())
}

func TestCreateReservationDuplicateActive(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	_, err := svc.CreateReservation(context.Background(), "evt-1", 42, 1)
	require.NoError(t, err)

	_, err = svc.CreateReservation(context.Background(), "evt-1", 42, 1)
	assert.ErrorIs(t, err, repository.ErrDuplicateReservation)
	assert.Equal(t, uint32(1), events.bookedCount("evt-1"))
}

func TestCreateReservationAfterCancelAllowed(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	first, err := svc.CreateReservation(context.Background(), "evt-1", 42, 2)
	require.NoError(t, err)
	_, err = svc.CancelReservation(context.Background(), first.ID, 42)
	require.NoError(t, err)

	// The old reservation is terminal, so a new one is permitted.
	second, err := svc.CreateReservation(context.Background(), "evt-1", 42, 2)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, uint32(2), events.bookedCount("evt-1"))
}

// Two concurrent attempts race for the last seat; exactly one may win.
func TestCreateReservationConcurrentLastSeat(t *testing.T) {
	events := newFakeEventStore(publishedEvent(1, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateReservation(context.Background(), "evt-1", uint64(100+i), 1)
		}(i)
	}
	wg.Wait()

	var won, full int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, repository.ErrEventFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, full)
	assert.Equal(t, uint32(1), events.bookedCount("evt-1"))
	assert.Equal(t, 1, reservations.count())
}

func TestCreateReservationRetriesTicketCodeCollision(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	codes := []string{"TKT-AAAAAAAAAA", "TKT-AAAAAAAAAA", "TKT-BBBBBBBBBB"}
	svc.newCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}
	reservations.takenCodes["TKT-AAAAAAAAAA"] = true

	res, err := svc.CreateReservation(context.Background(), "evt-1", 42, 1)
	require.NoError(t, err)
	assert.Equal(t, "TKT-BBBBBBBBBB", res.TicketCode)
}

func TestCreateReservationRollsBackWhenIncrementRefused(t *testing.T) {
	// Available seats pass the advisory check but the store refuses
	// the increment, as happens when a concurrent booking lands in
	// between.
	events := newFakeEventStore(publishedEvent(10, 0))
	events.incrementErr = repository.ErrEventFull
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	_, err := svc.CreateReservation(context.Background(), "evt-1", 42, 1)
	assert.ErrorIs(t, err, repository.ErrEventFull)
	assert.Zero(t, reservations.count(), "refused reservation must be rolled back")
}

func TestCreateReservationDriftWhenRollbackFails(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	events.incrementErr = errors.New("connection reset")
	reservations := newFakeReservationStore()
	reservations.deleteErr = errors.New("connection reset")
	pub := &fakePublisher{}
	svc := newTestEngine(t, events, reservations, pub)

	_, err := svc.CreateReservation(context.Background(), "evt-1", 42, 2)
	var drift *DriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, "evt-1", drift.EventID)
	assert.Equal(t, uint32(2), drift.Quantity)
	require.Len(t, pub.drifts, 1)
	assert.Equal(t, drift.ReservationID, pub.drifts[0].ReservationID)
}

func TestConfirmReservation(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	pub := &fakePublisher{}
	svc := newTestEngine(t, events, reservations, pub)

	res, err := svc.CreateReservation(context.Background(), "evt-1", 42, 2)
	require.NoError(t, err)

	confirmed, err := svc.ConfirmReservation(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	// Seats were counted at creation; confirmation does not recount.
	assert.Equal(t, uint32(2), events.bookedCount("evt-1"))

	require.Len(t, pub.confirmed, 1)
	assert.Equal(t, res.TicketCode, pub.confirmed[0].TicketCode)
	assert.Equal(t, "Go Meetup", pub.confirmed[0].EventTitle)
}

func TestConfirmReservationNotPending(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	res, err := svc.CreateReservation(context.Background(), "evt-1", 42, 1)
	require.NoError(t, err)
	_, err = svc.ConfirmReservation(context.Background(), res.ID)
	require.NoError(t, err)

	_, err = svc.ConfirmReservation(context.Background(), res.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidState)
}

func TestConfirmReservationNotFound(t *testing.T) {
	svc := newTestEngine(t, newFakeEventStore(), newFakeReservationStore(), nil)

	_, err := svc.ConfirmReservation(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)
}

func TestRefuseReservationReleasesSeats(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	res, err := svc.CreateReservation(context.Background(), "evt-1", 42, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), events.bookedCount("evt-1"))

	refused, err := svc.RefuseReservation(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusRefused, refused.Status)
	assert.Zero(t, events.bookedCount("evt-1"))
}

func TestRefuseReservationNotPending(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	res, err := svc.CreateReservation(context.Background(), "evt-1", 42, 1)
	require.NoError(t, err)
	_, err = svc.RefuseReservation(context.Background(), res.ID)
	require.NoError(t, err)

	// A second refusal must not release the seats again.
	_, err = svc.RefuseReservation(context.Background(), res.ID)
	assert.ErrorIs(t, err, repository.ErrInvalidState)
	assert.Zero(t, events.bookedCount("evt-1"))
}

func TestCancelReservationByOwner(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	res, err := svc.CreateReservation(context.Background(), "evt-1", 42, 3)
	require.NoError(t, err)

	canceled, err := svc.CancelReservation(context.Background(), res.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusCanceled, canceled.Status)
	require.NotNil(t, canceled.CanceledAt)
	assert.Zero(t, events.bookedCount("evt-1"))
}

func TestCancelReservationWrongOwner(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	res, err := svc.CreateReservation(context.Background(), "evt-1", 42, 1)
	require.NoError(t, err)

	_, err = svc.CancelReservation(context.Background(), res.ID, 99)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.Equal(t, uint32(1), events.bookedCount("evt-1"))
}

func TestCancelReservationAdminSkipsOwnership(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	res, err := svc.CreateReservation(context.Background(), "evt-1", 42, 1)
	require.NoError(t, err)

	canceled, err := svc.CancelReservationAdmin(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusCanceled, canceled.Status)
	assert.Zero(t, events.bookedCount("evt-1"))
}

func TestCancelConfirmedReservation(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	res, err := svc.CreateReservation(context.Background(), "evt-1", 42, 2)
	require.NoError(t, err)
	_, err = svc.ConfirmReservation(context.Background(), res.ID)
	require.NoError(t, err)

	canceled, err := svc.CancelReservation(context.Background(), res.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusCanceled, canceled.Status)
	assert.Zero(t, events.bookedCount("evt-1"))
}

func TestCancelReservationTwice(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	res, err := svc.CreateReservation(context.Background(), "evt-1", 42, 2)
	require.NoError(t, err)
	_, err = svc.CancelReservation(context.Background(), res.ID, 42)
	require.NoError(t, err)

	_, err = svc.CancelReservation(context.Background(), res.ID, 42)
	assert.ErrorIs(t, err, repository.ErrInvalidState)
	// The seats must not be released a second time.
	assert.Zero(t, events.bookedCount("evt-1"))
}

func TestCancelReservationDriftWhenReleaseFails(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	pub := &fakePublisher{}
	svc := newTestEngine(t, events, reservations, pub)

	res, err := svc.CreateReservation(context.Background(), "evt-1", 42, 2)
	require.NoError(t, err)

	events.decrementErr = errors.New("connection reset")
	_, err = svc.CancelReservation(context.Background(), res.ID, 42)
	var drift *DriftError
	require.ErrorAs(t, err, &drift)
	assert.Equal(t, "evt-1", drift.EventID)

	// The cancellation itself stuck; only the release is pending.
	stored, err := reservations.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusCanceled, stored.Status)
	require.Len(t, pub.drifts, 1)
}

func TestGetMyReservations(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	_, err := svc.CreateReservation(context.Background(), "evt-1", 42, 1)
	require.NoError(t, err)

	mine, err := svc.GetMyReservations(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	other, err := svc.GetMyReservations(context.Background(), 99)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestGetReservationOwnership(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	svc := newTestEngine(t, events, reservations, nil)

	res, err := svc.CreateReservation(context.Background(), "evt-1", 42, 1)
	require.NoError(t, err)

	got, err := svc.GetReservation(context.Background(), res.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)

	_, err = svc.GetReservation(context.Background(), res.ID, 99)
	assert.ErrorIs(t, err, repository.ErrForbidden)
}

func TestPublishFailureDoesNotFailConfirm(t *testing.T) {
	events := newFakeEventStore(publishedEvent(10, 0))
	reservations := newFakeReservationStore()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newTestEngine(t, events, reservations, pub)

	res, err := svc.CreateReservation(context.Background(), "evt-1", 42, 1)
	require.NoError(t, err)

	confirmed, err := svc.ConfirmReservation(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatusConfirmed, confirmed.Status)
}
