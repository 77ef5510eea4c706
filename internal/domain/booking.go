package domain

import "time"

// Leg names the position of a booking row within a reservation.
// It is not persisted: a round trip is two unlinked rows.
type Leg string

const (
	LegOutbound Leg = "outbound"
	LegReturn   Leg = "return"
)

type Booking struct {
	ID          int64     `json:"id"`
	PassengerID int64     `json:"passenger_id"`
	FlightID    int64     `json:"flight_id"`
	CreatedAt   time.Time `json:"created_at"`
}
