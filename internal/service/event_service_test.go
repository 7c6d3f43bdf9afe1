package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/event-ticketing/internal/repository"
)

// Validation happens before any repository call, so a repo over a nil
// connection is safe for these cases.
func newValidationOnlyEventService() *EventService {
	return NewEventService(repository.NewEventRepo(nil))
}

func TestCreateEventRejectsEmptyTitle(t *testing.T) {
	svc := newValidationOnlyEventService()

	_, err := svc.CreateEvent(context.Background(), 1, "   ", nil, 10, time.Now())
	assert.ErrorIs(t, err, repository.ErrInvalidState)
}

func TestCreateEventRejectsZeroCapacity(t *testing.T) {
	svc := newValidationOnlyEventService()

	_, err := svc.CreateEvent(context.Background(), 1, "Go Meetup", nil, 0, time.Now())
	assert.ErrorIs(t, err, repository.ErrInvalidState)
}

func TestCreateEventRejectsExcessiveCapacity(t *testing.T) {
	svc := newValidationOnlyEventService()

	_, err := svc.CreateEvent(context.Background(), 1, "Go Meetup", nil, maxCapacity+1, time.Now())
	assert.ErrorIs(t, err, repository.ErrInvalidState)
}

func TestUpdateEventRejectsInvalidInput(t *testing.T) {
	svc := newValidationOnlyEventService()

	_, err := svc.UpdateEvent(context.Background(), "evt-1", 1, "", nil, 10)
	assert.ErrorIs(t, err, repository.ErrInvalidState)

	_, err = svc.UpdateEvent(context.Background(), "evt-1", 1, "Go Meetup", nil, 0)
	assert.ErrorIs(t, err, repository.ErrInvalidState)
}
