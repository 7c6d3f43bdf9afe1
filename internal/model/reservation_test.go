package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReservationIsActive(t *testing.T) {
	active := map[string]bool{
		ReservationStatusPending:   true,
		ReservationStatusConfirmed: true,
		ReservationStatusRefused:   false,
		ReservationStatusCanceled:  false,
	}
	for status, want := range active {
		r := Reservation{Status: status}
		assert.Equal(t, want, r.IsActive(), status)
	}
}

func TestReservationIsTerminal(t *testing.T) {
	terminal := map[string]bool{
		ReservationStatusPending:   false,
		ReservationStatusConfirmed: true,
		ReservationStatusRefused:   true,
		ReservationStatusCanceled:  true,
	}
	for status, want := range terminal {
		r := Reservation{Status: status}
		assert.Equal(t, want, r.IsTerminal(), status)
	}
}
