package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/service"
)

func recordDomainError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, writeDomainError(c, err))
	return rec
}

func TestWriteDomainErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"event not found", repository.ErrEventNotFound, http.StatusNotFound},
		{"reservation not found", repository.ErrReservationNotFound, http.StatusNotFound},
		{"forbidden", repository.ErrForbidden, http.StatusForbidden},
		{"event full", repository.ErrEventFull, http.StatusConflict},
		{"duplicate reservation", repository.ErrDuplicateReservation, http.StatusConflict},
		{"invalid state", repository.ErrInvalidState, http.StatusConflict},
		{"wrapped invalid state", fmt.Errorf("only pending reservations can be confirmed: %w", repository.ErrInvalidState), http.StatusConflict},
		{"invalid quantity", service.ErrInvalidQuantity, http.StatusBadRequest},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := recordDomainError(t, tc.err)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestWriteDomainErrorDrift(t *testing.T) {
	drift := &service.DriftError{EventID: "evt-1", ReservationID: "res-1", Quantity: 2, Err: errors.New("connection reset")}
	rec := recordDomainError(t, drift)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Drift is reported distinctly from a generic storage failure.
	assert.Contains(t, rec.Body.String(), "seat accounting is being reconciled")
	assert.NotContains(t, rec.Body.String(), "database error")
}

func TestGetUserID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	// JWT numeric claims arrive as float64.
	c.Set("user_id", float64(42))
	uid, err := getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)

	c.Set("user_id", "17")
	uid, err = getUserID(c)
	require.NoError(t, err)
	assert.Equal(t, uint64(17), uid)

	c.Set("user_id", nil)
	_, err = getUserID(c)
	assert.Error(t, err)
}
