package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/seatbook/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Insert(ctx context.Context, passengerID, flightID int64) (domain.Booking, error)
	// Delete removes the row and returns it, so the caller knows which flight gets the seat back.
	Delete(ctx context.Context, bookingID int64) (domain.Booking, error)
	List(ctx context.Context) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) Insert(ctx context.Context, passengerID, flightID int64) (domain.Booking, error) {
	var b domain.Booking
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO bookings (passenger_id, flight_id)
		VALUES ($1, $2)
		RETURNING id, passenger_id, flight_id, created_at`, passengerID, flightID).
		Scan(&b.ID, &b.PassengerID, &b.FlightID, &b.CreatedAt)
	if err != nil {
		if constraint, ok := isForeignKeyViolation(err); ok {
			if constraint == "bookings_flight_id_fkey" {
				return domain.Booking{}, domain.ErrFlightNotFound
			}
			return domain.Booking{}, domain.ErrPassengerNotFound
		}
		return domain.Booking{}, mapError(fmt.Errorf("insert booking: %w", err))
	}
	return b, nil
}

func (r *PGBookingRepository) Delete(ctx context.Context, bookingID int64) (domain.Booking, error) {
	var b domain.Booking
	err := conn(ctx, r.db).QueryRow(ctx, `
		DELETE FROM bookings
		WHERE id = $1
		RETURNING id, passenger_id, flight_id, created_at`, bookingID).
		Scan(&b.ID, &b.PassengerID, &b.FlightID, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, mapError(fmt.Errorf("delete booking: %w", err))
	}
	return b, nil
}

func (r *PGBookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT id, passenger_id, flight_id, created_at FROM bookings ORDER BY id DESC`)
	if err != nil {
		return nil, mapError(fmt.Errorf("list bookings: %w", err))
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.PassengerID, &b.FlightID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
