package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// OrganizerHandler exposes event management and reservation moderation
// for organizers. All routes assume JWT authentication and the
// ORGANIZER role have been enforced by middleware. Moderation endpoints
// additionally verify that the reservation's event belongs to the
// calling organizer before invoking the lifecycle engine.
type OrganizerHandler struct {
	Events       *service.EventService
	Reservations *service.ReservationService
	EventRepo    *repository.EventRepo
	ResRepo      *repository.ReservationRepo
}

// NewOrganizerHandler constructs an OrganizerHandler. All dependencies
// must be non-nil.
func NewOrganizerHandler(events *service.EventService, reservations *service.ReservationService, eventRepo *repository.EventRepo, resRepo *repository.ReservationRepo) *OrganizerHandler {
	if events == nil || reservations == nil || eventRepo == nil || resRepo == nil {
		panic("nil dependency passed to NewOrganizerHandler")
	}
	return &OrganizerHandler{Events: events, Reservations: reservations, EventRepo: eventRepo, ResRepo: resRepo}
}

type eventReq struct {
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Capacity    uint32    `json:"capacity"`
	StartsAt    time.Time `json:"starts_at"`
}

// CreateEvent handles POST /v1/organizer/events. Events start in DRAFT
// and must be published before accepting reservations.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	event, err := h.Events.CreateEvent(c.Request().Context(), uid, req.Title, req.Description, req.Capacity, req.StartsAt)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, event)
}

// UpdateEvent handles PATCH /v1/organizer/events/:id.
func (h *OrganizerHandler) UpdateEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	event, err := h.Events.UpdateEvent(c.Request().Context(), c.Param("id"), uid, req.Title, req.Description, req.Capacity)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, event)
}

// PublishEvent handles POST /v1/organizer/events/:id/publish.
func (h *OrganizerHandler) PublishEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	event, err := h.Events.PublishEvent(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, event)
}

// CancelEvent handles POST /v1/organizer/events/:id/cancel. The event
// stops accepting reservations; existing reservations stay as they are
// and are moderated individually.
func (h *OrganizerHandler) CancelEvent(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	event, err := h.Events.CancelEvent(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, event)
}

// ListMyEvents handles GET /v1/organizer/events.
func (h *OrganizerHandler) ListMyEvents(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	events, err := h.Events.ListMyEvents(c.Request().Context(), uid)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// ListEventReservations handles GET /v1/organizer/events/:id/reservations.
func (h *OrganizerHandler) ListEventReservations(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	event, err := h.EventRepo.GetByID(ctx, c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	if event.OrganizerID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	reservations, err := h.ResRepo.ListByEvent(ctx, event.ID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": reservations})
}

// ConfirmReservation handles POST /v1/organizer/reservations/:id/confirm.
func (h *OrganizerHandler) ConfirmReservation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	if err := h.authorizeModeration(ctx, c.Param("id"), uid); err != nil {
		return writeDomainError(c, err)
	}
	res, err := h.Reservations.ConfirmReservation(ctx, c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// RefuseReservation handles POST /v1/organizer/reservations/:id/refuse.
// Refusing releases the held seats back to the event.
func (h *OrganizerHandler) RefuseReservation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	if err := h.authorizeModeration(ctx, c.Param("id"), uid); err != nil {
		return writeDomainError(c, err)
	}
	res, err := h.Reservations.RefuseReservation(ctx, c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CancelReservation handles POST /v1/organizer/reservations/:id/cancel.
// This is the privileged cancel path: it is gated on the organizer
// owning the event, not on reservation ownership.
func (h *OrganizerHandler) CancelReservation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	if err := h.authorizeModeration(ctx, c.Param("id"), uid); err != nil {
		return writeDomainError(c, err)
	}
	res, err := h.Reservations.CancelReservationAdmin(ctx, c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// authorizeModeration verifies that the reservation belongs to an
// event owned by the calling organizer. It returns a domain error for
// the caller to translate; nil means moderation is allowed.
func (h *OrganizerHandler) authorizeModeration(ctx context.Context, reservationID string, organizerID uint64) error {
	res, err := h.ResRepo.GetByID(ctx, reservationID)
	if err != nil {
		return err
	}
	event, err := h.EventRepo.GetByID(ctx, res.EventID)
	if err != nil {
		return err
	}
	if event.OrganizerID != organizerID {
		return repository.ErrForbidden
	}
	return nil
}
