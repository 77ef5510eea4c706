package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers of the booking manager.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNoSeatsAvailable = errors.New("no seats available")
	ErrNotFound         = errors.New("not found")
	ErrStorageFailure   = errors.New("storage failure")
)

var (
	ErrBookingNotFound   = fmt.Errorf("booking %w", ErrNotFound)
	ErrFlightNotFound    = fmt.Errorf("flight %w", ErrNotFound)
	ErrPassengerNotFound = fmt.Errorf("passenger %w", ErrNotFound)
)

var (
	ErrLockTimeout = fmt.Errorf("%w: lock wait timed out", ErrStorageFailure)
	ErrDeadlock    = fmt.Errorf("%w: deadlock detected", ErrStorageFailure)
	ErrContention  = fmt.Errorf("%w: write conflict retries exhausted", ErrStorageFailure)
)

// ErrWriteConflict marks a lost compare-and-swap. It triggers a retry of the
// whole unit of work and is converted to ErrContention once retries run out.
var ErrWriteConflict = errors.New("concurrent write conflict")

// NoSeatsError tells the caller which leg of a reservation had no capacity.
type NoSeatsError struct {
	Leg      Leg
	FlightID int64
}

func (e *NoSeatsError) Error() string {
	return fmt.Sprintf("no seats available for %s flight %d", e.Leg, e.FlightID)
}

func (e *NoSeatsError) Unwrap() error {
	return ErrNoSeatsAvailable
}

type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindNoSeatsAvailable Kind = "no_seats_available"
	KindNotFound         Kind = "not_found"
	KindStorageFailure   Kind = "storage_failure"
)

// KindOf classifies err. Anything unrecognised is a storage failure.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNoSeatsAvailable):
		return KindNoSeatsAvailable
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindStorageFailure
	}
}
