package utils

import (
	"crypto/rand"
	"fmt"
)

// ticketAlphabet deliberately omits 0/O and 1/I so codes survive being
// read aloud or retyped from a printed ticket.
const ticketAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const ticketCodeLength = 10

// NewTicketCode returns a human-presentable ticket code such as
// "TKT-7GQ2MNXW4P". The code is independent of the reservation id and
// backed by crypto/rand; uniqueness is enforced by a unique column at
// the storage layer, with the caller retrying on collision.
func NewTicketCode() (string, error) {
	buf := make([]byte, ticketCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate ticket code: %w", err)
	}
	for i, b := range buf {
		buf[i] = ticketAlphabet[int(b)%len(ticketAlphabet)]
	}
	return "TKT-" + string(buf), nil
}
