package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/seatbook/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	// ReadSeats reads the counter without locking the row.
	ReadSeats(ctx context.Context, flightID int64) (domain.SeatCount, error)
	// LockSeats reads the counter and holds a row lock until the unit of work ends.
	LockSeats(ctx context.Context, flightID int64) (domain.SeatCount, error)
	// DecrementSeats takes one seat if the counter still has the version of seen.
	DecrementSeats(ctx context.Context, seen domain.SeatCount) error
	IncrementSeats(ctx context.Context, flightID int64) error
	Audit(ctx context.Context) ([]domain.SeatDrift, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, from_airport, to_airport, departure_time, arrival_time, total_seats, available_seats, price_cents, version, created_at, updated_at`

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time, id`)
	if err != nil {
		return nil, mapError(fmt.Errorf("list flights: %w", err))
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := scanFlight(conn(ctx, r.db).QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, mapError(fmt.Errorf("get flight: %w", err))
	}
	return &f, nil
}

func (r *PGFlightRepository) ReadSeats(ctx context.Context, flightID int64) (domain.SeatCount, error) {
	return r.readSeats(ctx, `SELECT id, available_seats, version FROM flights WHERE id=$1`, flightID)
}

func (r *PGFlightRepository) LockSeats(ctx context.Context, flightID int64) (domain.SeatCount, error) {
	return r.readSeats(ctx, `SELECT id, available_seats, version FROM flights WHERE id=$1 FOR NO KEY UPDATE`, flightID)
}

func (r *PGFlightRepository) readSeats(ctx context.Context, query string, flightID int64) (domain.SeatCount, error) {
	var sc domain.SeatCount
	if err := conn(ctx, r.db).QueryRow(ctx, query, flightID).Scan(&sc.FlightID, &sc.Seats, &sc.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SeatCount{}, domain.ErrFlightNotFound
		}
		return domain.SeatCount{}, mapError(fmt.Errorf("read seats: %w", err))
	}
	return sc, nil
}

func (r *PGFlightRepository) DecrementSeats(ctx context.Context, seen domain.SeatCount) error {
	res, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE flights
		SET available_seats = available_seats - 1,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND version = $2 AND available_seats > 0`, seen.FlightID, seen.Version)
	if err != nil {
		return mapError(fmt.Errorf("decrement seats: %w", err))
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("decrement seats of flight %d at version %d: %w", seen.FlightID, seen.Version, domain.ErrWriteConflict)
	}
	return nil
}

func (r *PGFlightRepository) IncrementSeats(ctx context.Context, flightID int64) error {
	res, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE flights
		SET available_seats = available_seats + 1,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1`, flightID)
	if err != nil {
		return mapError(fmt.Errorf("increment seats: %w", err))
	}
	if res.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

func (r *PGFlightRepository) Audit(ctx context.Context) ([]domain.SeatDrift, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT f.id, f.total_seats, f.available_seats, COUNT(b.id)
		FROM flights f
		LEFT JOIN bookings b ON b.flight_id = f.id
		GROUP BY f.id
		HAVING f.available_seats <> f.total_seats - COUNT(b.id)
		ORDER BY f.id`)
	if err != nil {
		return nil, mapError(fmt.Errorf("audit seats: %w", err))
	}
	defer rows.Close()

	drift := make([]domain.SeatDrift, 0)
	for rows.Next() {
		var d domain.SeatDrift
		if err := rows.Scan(&d.FlightID, &d.TotalSeats, &d.AvailableSeats, &d.ActiveBookings); err != nil {
			return nil, fmt.Errorf("scan seat drift: %w", err)
		}
		drift = append(drift, d)
	}
	return drift, rows.Err()
}

func scanFlight(row pgx.Row) (domain.Flight, error) {
	var f domain.Flight
	err := row.Scan(&f.ID, &f.FromAirport, &f.ToAirport, &f.DepartureTime, &f.ArrivalTime, &f.TotalSeats, &f.AvailableSeats, &f.PriceCents, &f.Version, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

var _ FlightRepository = (*PGFlightRepository)(nil)
