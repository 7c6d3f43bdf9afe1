package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// PublicHandler exposes unauthenticated browsing of published events.
// Responses are sanitized: organizer ids and exact booked counts are
// not leaked, only derived availability.
type PublicHandler struct {
	Events *service.EventService
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(events *service.EventService) *PublicHandler {
	if events == nil {
		panic("nil service passed to NewPublicHandler")
	}
	return &PublicHandler{Events: events}
}

// PublicEvent is an event as exposed via the public API.
type PublicEvent struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    *string   `json:"description,omitempty"`
	Capacity       uint32    `json:"capacity"`
	AvailableSeats uint32    `json:"available_seats"`
	StartsAt       time.Time `json:"starts_at"`
}

func toPublicEvent(e *model.Event) PublicEvent {
	return PublicEvent{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		Capacity:       e.Capacity,
		AvailableSeats: e.AvailableSeats(),
		StartsAt:       e.StartsAt,
	}
}

// ListEvents handles GET /v1/events and returns all published events.
func (h *PublicHandler) ListEvents(c echo.Context) error {
	events, err := h.Events.ListPublishedEvents(c.Request().Context())
	if err != nil {
		return writeDomainError(c, err)
	}
	out := make([]PublicEvent, 0, len(events))
	for i := range events {
		out = append(out, toPublicEvent(&events[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetEvent handles GET /v1/events/:id. Unpublished events are not
// exposed to guests.
func (h *PublicHandler) GetEvent(c echo.Context) error {
	event, err := h.Events.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	if !event.IsPublished() {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	return c.JSON(http.StatusOK, toPublicEvent(event))
}

// SearchEvents handles GET /v1/search/events. Supported query
// parameters: q (title substring), from and to (RFC3339 bounds on the
// event start time).
func (h *PublicHandler) SearchEvents(c echo.Context) error {
	var from, to *time.Time
	if s := c.QueryParam("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from parameter"})
		}
		from = &t
	}
	if s := c.QueryParam("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to parameter"})
		}
		to = &t
	}
	events, err := h.Events.SearchEvents(c.Request().Context(), c.QueryParam("q"), from, to)
	if err != nil {
		return writeDomainError(c, err)
	}
	out := make([]PublicEvent, 0, len(events))
	for i := range events {
		out = append(out, toPublicEvent(&events[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
