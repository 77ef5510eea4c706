package booking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Domenick1991/seatbook/internal/domain"
)

// ParseID converts an identifier typed into a form. Only plain decimal digits
// are accepted; signs, spaces inside the value and zero are rejected.
func ParseID(field, raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, field)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %s must be a number, got %q", domain.ErrInvalidInput, field, raw)
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is out of range", domain.ErrInvalidInput, field)
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, field)
	}
	return id, nil
}

// ParseCreateInput builds a reservation request from form values. The return
// flight is read only for a round trip.
func ParseCreateInput(passengerID, flightID string, roundTrip bool, returnFlightID string) (CreateBookingInput, error) {
	var (
		in  = CreateBookingInput{RoundTrip: roundTrip}
		err error
	)
	if in.PassengerID, err = ParseID("passenger_id", passengerID); err != nil {
		return CreateBookingInput{}, err
	}
	if in.FlightID, err = ParseID("flight_id", flightID); err != nil {
		return CreateBookingInput{}, err
	}
	if roundTrip {
		if in.ReturnFlightID, err = ParseID("return_flight_id", returnFlightID); err != nil {
			return CreateBookingInput{}, err
		}
	}
	return in, nil
}
