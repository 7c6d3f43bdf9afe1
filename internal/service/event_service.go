package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// maxCapacity bounds event capacity to keep obviously bogus values out
// of the counter arithmetic.
const maxCapacity = 100_000

// EventService orchestrates organizer-facing event operations: drafting,
// publishing, canceling and browsing events. Capacity accounting is not
// handled here; only the reservation engine touches booked counts.
type EventService struct {
	events *repository.EventRepo
}

// NewEventService constructs an EventService with its repository.
func NewEventService(events *repository.EventRepo) *EventService {
	if events == nil {
		panic("nil repository passed to NewEventService")
	}
	return &EventService{events: events}
}

// CreateEvent validates the request and creates a DRAFT event owned by
// the organizer.
func (s *EventService) CreateEvent(ctx context.Context, organizerID uint64, title string, description *string, capacity uint32, startsAt time.Time) (*model.Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("event title is required: %w", repository.ErrInvalidState)
	}
	if capacity == 0 {
		return nil, fmt.Errorf("capacity must be a positive integer: %w", repository.ErrInvalidState)
	}
	if capacity > maxCapacity {
		return nil, fmt.Errorf("capacity cannot exceed %d: %w", maxCapacity, repository.ErrInvalidState)
	}
	event := &model.Event{
		OrganizerID: organizerID,
		Title:       title,
		Description: description,
		Capacity:    capacity,
		StartsAt:    startsAt,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// UpdateEvent changes title, description and capacity of an event owned
// by the organizer. Shrinking capacity below the current booked count
// is rejected by the repository's conditional write.
func (s *EventService) UpdateEvent(ctx context.Context, id string, organizerID uint64, title string, description *string, capacity uint32) (*model.Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("event title is required: %w", repository.ErrInvalidState)
	}
	if capacity == 0 || capacity > maxCapacity {
		return nil, fmt.Errorf("capacity must be between 1 and %d: %w", maxCapacity, repository.ErrInvalidState)
	}
	if err := s.events.UpdateInfo(ctx, id, organizerID, title, description, capacity); err != nil {
		return nil, err
	}
	return s.events.GetByID(ctx, id)
}

// PublishEvent moves a DRAFT event to PUBLISHED, opening it for
// reservations.
func (s *EventService) PublishEvent(ctx context.Context, id string, organizerID uint64) (*model.Event, error) {
	err := s.events.TransitionStatus(ctx, id, organizerID, model.EventStatusDraft, model.EventStatusPublished)
	if err != nil {
		return nil, err
	}
	return s.events.GetByID(ctx, id)
}

// CancelEvent moves a PUBLISHED event to CANCELED. The event stops
// accepting reservations; existing reservations are unaffected by this
// transition alone.
func (s *EventService) CancelEvent(ctx context.Context, id string, organizerID uint64) (*model.Event, error) {
	err := s.events.TransitionStatus(ctx, id, organizerID, model.EventStatusPublished, model.EventStatusCanceled)
	if err != nil {
		return nil, err
	}
	return s.events.GetByID(ctx, id)
}

// GetEvent returns a single event by id.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return s.events.GetByID(ctx, id)
}

// ListMyEvents returns all events owned by the organizer.
func (s *EventService) ListMyEvents(ctx context.Context, organizerID uint64) ([]model.Event, error) {
	return s.events.ListByOrganizer(ctx, organizerID)
}

// ListPublishedEvents returns every event currently open for
// reservations.
func (s *EventService) ListPublishedEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.ListPublished(ctx)
}

// SearchEvents returns published events matching a title query and an
// optional start-time window.
func (s *EventService) SearchEvents(ctx context.Context, query string, from, to *time.Time) ([]model.Event, error) {
	return s.events.Search(ctx, strings.TrimSpace(query), from, to)
}
