package domain

import "time"

type Flight struct {
	ID             int64     `json:"id"`
	FromAirport    string    `json:"from_airport"`
	ToAirport      string    `json:"to_airport"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	PriceCents     int64     `json:"price_cents"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SeatCount is the snapshot of a flight's seat counter read inside a unit of work.
// Version is bumped on every counter mutation.
type SeatCount struct {
	FlightID int64
	Seats    int
	Version  int64
}

// SeatDrift reports a flight whose counter disagrees with its active bookings.
type SeatDrift struct {
	FlightID       int64 `json:"flight_id"`
	TotalSeats     int   `json:"total_seats"`
	AvailableSeats int   `json:"available_seats"`
	ActiveBookings int   `json:"active_bookings"`
}

func (d SeatDrift) Expected() int {
	return d.TotalSeats - d.ActiveBookings
}
