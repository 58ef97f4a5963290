package entity

import (
	"errors"
	"fmt"
)

var (
	// Ledger conflict, detected inside the atomic reserve.
	ErrSlotTaken = errors.New("slot taken")

	// Lookup errors
	ErrBookingNotFound     = errors.New("booking not found")
	ErrBlockNotFound       = errors.New("block not found")
	ErrTestBookingNotFound = errors.New("test booking not found")

	// State machine
	ErrIllegalTransition = errors.New("illegal status transition")

	// Payment gateway
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrInvalidSignature   = errors.New("invalid callback signature")

	// Boundary
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

// SlotBlockedError carries the admin block that makes a slot unavailable,
// so callers can distinguish "full" from "blocked for maintenance".
type SlotBlockedError struct {
	Block *AdminBlock
}

func (e *SlotBlockedError) Error() string {
	return fmt.Sprintf("slot blocked: %s", e.Block.Reason)
}

// IsSlotBlocked unwraps a SlotBlockedError if present.
func IsSlotBlocked(err error) (*SlotBlockedError, bool) {
	var blocked *SlotBlockedError
	if errors.As(err, &blocked) {
		return blocked, true
	}
	return nil, false
}
