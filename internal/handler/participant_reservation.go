package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/service"
)

// ParticipantHandler exposes reservation endpoints for participants.
// All routes assume JWT authentication and the PARTICIPANT role have
// been enforced by middleware; the ownership check on cancellation is
// performed by the lifecycle engine itself.
type ParticipantHandler struct {
	Reservations *service.ReservationService
}

// NewParticipantHandler constructs a ParticipantHandler.
func NewParticipantHandler(reservations *service.ReservationService) *ParticipantHandler {
	if reservations == nil {
		panic("nil service passed to NewParticipantHandler")
	}
	return &ParticipantHandler{Reservations: reservations}
}

// CreateReservation handles POST /v1/events/:id/reservations. It
// reserves the requested quantity of seats and returns the new PENDING
// reservation with its ticket code.
func (h *ParticipantHandler) CreateReservation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Quantity uint32 `json:"quantity"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res, err := h.Reservations.CreateReservation(c.Request().Context(), c.Param("id"), uid, body.Quantity)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// ListMyReservations handles GET /v1/reservations.
func (h *ParticipantHandler) ListMyReservations(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reservations, err := h.Reservations.GetMyReservations(c.Request().Context(), uid)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": reservations})
}

// GetMyReservation handles GET /v1/reservations/:id.
func (h *ParticipantHandler) GetMyReservation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Reservations.GetReservation(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CancelMyReservation handles POST /v1/reservations/:id/cancel. The
// engine enforces that the reservation belongs to the caller and is
// still active before releasing its seats.
func (h *ParticipantHandler) CancelMyReservation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Reservations.CancelReservation(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
