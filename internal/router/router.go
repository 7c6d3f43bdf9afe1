// Package router wires handlers onto the Echo instance. Route groups
// are split by audience: public browse, authentication, participant
// reservations and organizer event management.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	// Liveness probe for load balancers and monitoring.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers authentication routes. Token issuance lives
// under /v1/auth; /v1/me requires a valid access token from either
// role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token; the old one is revoked.
	g.POST("/refresh", a.Refresh)
	// Logout takes the refresh token in the body, so no JWT is needed.
	g.POST("/logout", a.Logout)

	auth := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOrganizer, model.RoleParticipant),
	)
	auth.GET("/me", a.Me)
}

// RegisterPublic registers unauthenticated browse endpoints. Responses
// are sanitized by the handler, so these routes are safe to cache.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/events", p.ListEvents, cache)
	e.GET("/v1/events/:id", p.GetEvent, cache)
	e.GET("/v1/search/events", p.SearchEvents, cache)
}
