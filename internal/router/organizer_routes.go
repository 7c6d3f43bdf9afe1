package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// RegisterOrganizer registers ORGANIZER-scoped endpoints under
// /v1/organizer. All routes require a valid JWT and the ORGANIZER role.
// Ownership of the targeted event or reservation is enforced in the
// handler and engine layers, not here.
func RegisterOrganizer(e *echo.Echo, o *handler.OrganizerHandler, jwtSecret string) {
	g := e.Group(
		"/v1/organizer",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOrganizer),
	)

	// ---- Events ----
	g.POST("/events", o.CreateEvent)
	g.GET("/events", o.ListMyEvents)
	g.PATCH("/events/:id", o.UpdateEvent)
	g.PUT("/events/:id", o.UpdateEvent) // alias for clients that use PUT
	g.POST("/events/:id/publish", o.PublishEvent)
	g.POST("/events/:id/cancel", o.CancelEvent)
	g.GET("/events/:id/reservations", o.ListEventReservations)

	// ---- Reservation moderation ----
	g.POST("/reservations/:id/confirm", o.ConfirmReservation)
	g.POST("/reservations/:id/refuse", o.RefuseReservation)
	g.POST("/reservations/:id/cancel", o.CancelReservation)
}
