package flights

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Domenick1991/seatbook/internal/domain"
	"github.com/Domenick1991/seatbook/internal/repository"
	"github.com/sirupsen/logrus"
)

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	// Audit reports flights whose seat counter disagrees with their booking rows.
	Audit(ctx context.Context) ([]domain.SeatDrift, error)
}

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
}

type FlightService struct {
	repo  repository.FlightRepository
	cache FlightCache
	log   logrus.FieldLogger
}

// NewFlightService builds the read side of the catalogue. cache may be nil.
func NewFlightService(repo repository.FlightRepository, cache FlightCache, log logrus.FieldLogger) *FlightService {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &FlightService{repo: repo, cache: cache, log: log}
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx)
		if err != nil {
			s.log.WithError(err).Warn("failed to read flights cache")
		} else if cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, storageFailure(err)
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.log.WithError(err).Warn("failed to fill flights cache")
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: flight id must be a positive integer", domain.ErrInvalidInput)
	}
	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrFlightNotFound) {
			return nil, err
		}
		return nil, storageFailure(err)
	}
	return flight, nil
}

func (s *FlightService) Audit(ctx context.Context) ([]domain.SeatDrift, error) {
	drift, err := s.repo.Audit(ctx)
	if err != nil {
		return nil, storageFailure(err)
	}
	for _, d := range drift {
		s.log.WithFields(logrus.Fields{
			"flight_id":       d.FlightID,
			"total_seats":     d.TotalSeats,
			"available_seats": d.AvailableSeats,
			"active_bookings": d.ActiveBookings,
			"expected_seats":  d.Expected(),
		}).Error("seat counter drift detected")
	}
	return drift, nil
}

func storageFailure(err error) error {
	if errors.Is(err, domain.ErrStorageFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
}

var _ FlightUseCase = (*FlightService)(nil)
