package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// RegisterParticipant registers participant-scoped endpoints under /v1.
// All routes require a valid JWT and the PARTICIPANT role. Participants
// reserve seats on published events, list and inspect their own
// reservations and cancel active ones.
func RegisterParticipant(e *echo.Echo, h *handler.ParticipantHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleParticipant),
	)
	g.POST("/events/:id/reservations", h.CreateReservation)
	g.GET("/reservations", h.ListMyReservations)
	g.GET("/reservations/:id", h.GetMyReservation)
	// Cancellation is a status transition, not a delete; the ticket
	// code stays on record.
	g.POST("/reservations/:id/cancel", h.CancelMyReservation)
}
