// Package handler exposes HTTP handlers for authenticated and public
// endpoints. Handlers translate between the HTTP surface and the
// service layer; every domain failure maps to a stable error message so
// clients can branch on it.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// getUserID extracts the user_id placed in the context by the JWT
// middleware and converts it to uint64. JWT numeric claims arrive as
// float64, so several representations are accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// writeDomainError maps a service or repository error onto an HTTP
// response. Domain errors carry their own stable message; anything
// unrecognized is treated as a storage failure.
func writeDomainError(c echo.Context, err error) error {
	var drift *service.DriftError
	switch {
	case errors.Is(err, repository.ErrEventNotFound),
		errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrEventFull),
		errors.Is(err, repository.ErrDuplicateReservation),
		errors.Is(err, repository.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidQuantity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &drift):
		// Partial failure: the reservation write stands but seat
		// accounting diverged. Surfaced distinctly for reconciliation.
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "reservation recorded but seat accounting is being reconciled",
		})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
