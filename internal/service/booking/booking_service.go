package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/Domenick1991/seatbook/internal/domain"
	"github.com/Domenick1991/seatbook/internal/kafka"
	"github.com/Domenick1991/seatbook/internal/repository"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error)
	CancelBooking(ctx context.Context, bookingID int64) (*domain.Booking, error)
	ListBookings(ctx context.Context) ([]domain.Booking, error)
}

// Cache is the part of the flight cache that goes stale when seats move.
type Cache interface {
	InvalidateFlights(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Locking selects how a seat counter is protected between its read and its decrement.
type Locking string

const (
	// LockingPessimistic holds row locks on every flight of the request, taken in id order.
	LockingPessimistic Locking = "pessimistic"
	// LockingOptimistic reads without locks and retries the unit of work when the
	// version compare on the decrement fails.
	LockingOptimistic Locking = "optimistic"
)

const (
	defaultMaxAttempts = 5
	defaultRetryBase   = 20 * time.Millisecond
)

type BookingService struct {
	tx                 repository.TxManager
	bookings           repository.BookingRepository
	flights            repository.FlightRepository
	cache              Cache
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	locking            Locking
	maxAttempts        int
	retryBase          time.Duration
	log                logrus.FieldLogger
	now                func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithCache(cache Cache) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = cache
	}
}

func WithProducer(producer Producer, eventsTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.eventsTopic = eventsTopic
	}
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithLocking(locking Locking) BookingServiceOption {
	return func(s *BookingService) {
		if locking == LockingPessimistic || locking == LockingOptimistic {
			s.locking = locking
		}
	}
}

// WithRetry bounds how many times a unit of work runs when it loses a write conflict.
func WithRetry(maxAttempts int, base time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		if base > 0 {
			s.retryBase = base
		}
	}
}

func WithLogger(log logrus.FieldLogger) BookingServiceOption {
	return func(s *BookingService) {
		s.log = log
	}
}

func NewBookingService(
	tx repository.TxManager,
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	opts ...BookingServiceOption,
) *BookingService {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	service := &BookingService{
		tx:          tx,
		bookings:    bookings,
		flights:     flights,
		locking:     LockingPessimistic,
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
		log:         discard,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

type CreateBookingInput struct {
	PassengerID    int64
	FlightID       int64
	RoundTrip      bool
	ReturnFlightID int64
}

func (in CreateBookingInput) Validate() error {
	if in.PassengerID <= 0 {
		return fmt.Errorf("%w: passenger id must be a positive integer", domain.ErrInvalidInput)
	}
	if in.FlightID <= 0 {
		return fmt.Errorf("%w: outbound flight id must be a positive integer", domain.ErrInvalidInput)
	}
	if in.RoundTrip && in.ReturnFlightID <= 0 {
		return fmt.Errorf("%w: return flight id is required for a round trip", domain.ErrInvalidInput)
	}
	return nil
}

type leg struct {
	kind     domain.Leg
	flightID int64
}

func (in CreateBookingInput) legs() []leg {
	legs := []leg{{kind: domain.LegOutbound, flightID: in.FlightID}}
	if in.RoundTrip {
		legs = append(legs, leg{kind: domain.LegReturn, flightID: in.ReturnFlightID})
	}
	return legs
}

// CreateBookingResult holds one row per booked leg. The rows are not linked in storage.
type CreateBookingResult struct {
	Outbound domain.Booking
	Return   *domain.Booking
}

func (r *CreateBookingResult) Bookings() []domain.Booking {
	if r.Return == nil {
		return []domain.Booking{r.Outbound}
	}
	return []domain.Booking{r.Outbound, *r.Return}
}

// CreateBooking books every leg of the reservation in a single unit of work.
// A leg without capacity fails the whole reservation with a *domain.NoSeatsError.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*CreateBookingResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	legs := input.legs()
	fields := logrus.Fields{
		"passenger_id": input.PassengerID,
		"flight_id":    input.FlightID,
		"round_trip":   input.RoundTrip,
	}
	if input.RoundTrip {
		fields["return_flight_id"] = input.ReturnFlightID
	}

	var booked []domain.Booking
	err := s.atomically(ctx, func(txCtx context.Context) error {
		booked = booked[:0]
		if s.locking == LockingPessimistic {
			if err := s.lockFlights(txCtx, legs); err != nil {
				return err
			}
		}
		for _, l := range legs {
			b, err := s.bookLeg(txCtx, input.PassengerID, l)
			if err != nil {
				return err
			}
			booked = append(booked, b)
		}
		return nil
	})
	if err != nil {
		s.logFailure(fields, "create booking failed", err)
		return nil, err
	}

	result := &CreateBookingResult{Outbound: booked[0]}
	if len(booked) > 1 {
		ret := booked[1]
		result.Return = &ret
	}

	s.invalidateFlights(ctx)
	for i, b := range booked {
		s.publish(ctx, kafka.NewBookingEvent(kafka.EventBookingCreated, b, legs[i].kind, s.now()))
	}

	fields["booking_ids"] = bookingIDs(booked)
	s.log.WithFields(fields).Info("booking created")
	return result, nil
}

// CancelBooking deletes one booking row and gives its seat back in the same unit of work.
// The companion leg of a round trip is not touched.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	if bookingID <= 0 {
		return nil, fmt.Errorf("%w: booking id must be a positive integer", domain.ErrInvalidInput)
	}
	fields := logrus.Fields{"booking_id": bookingID}

	var cancelled domain.Booking
	err := s.atomically(ctx, func(txCtx context.Context) error {
		b, err := s.bookings.Delete(txCtx, bookingID)
		if err != nil {
			return err
		}
		if err := s.flights.IncrementSeats(txCtx, b.FlightID); err != nil {
			return err
		}
		cancelled = b
		return nil
	})
	if err != nil {
		s.logFailure(fields, "cancel booking failed", err)
		return nil, err
	}

	s.invalidateFlights(ctx)
	s.publish(ctx, kafka.NewBookingEvent(kafka.EventBookingCancelled, cancelled, "", s.now()))

	fields["flight_id"] = cancelled.FlightID
	fields["passenger_id"] = cancelled.PassengerID
	s.log.WithFields(fields).Info("booking cancelled")
	return &cancelled, nil
}

func (s *BookingService) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	bookings, err := s.bookings.List(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return bookings, nil
}

// lockFlights takes the row locks of all flights in the request in ascending id
// order, so two reservations over the same flights never wait on each other in a cycle.
// Missing flights are reported by bookLeg.
func (s *BookingService) lockFlights(ctx context.Context, legs []leg) error {
	ids := make([]int64, 0, len(legs))
	for _, l := range legs {
		if !slices.Contains(ids, l.flightID) {
			ids = append(ids, l.flightID)
		}
	}
	slices.Sort(ids)

	for _, id := range ids {
		if _, err := s.flights.LockSeats(ctx, id); err != nil && !errors.Is(err, domain.ErrFlightNotFound) {
			return err
		}
	}
	return nil
}

func (s *BookingService) bookLeg(ctx context.Context, passengerID int64, l leg) (domain.Booking, error) {
	seats, err := s.flights.ReadSeats(ctx, l.flightID)
	if errors.Is(err, domain.ErrFlightNotFound) || (err == nil && seats.Seats < 1) {
		return domain.Booking{}, &domain.NoSeatsError{Leg: l.kind, FlightID: l.flightID}
	}
	if err != nil {
		return domain.Booking{}, err
	}

	b, err := s.bookings.Insert(ctx, passengerID, l.flightID)
	if err != nil {
		return domain.Booking{}, err
	}
	if err := s.flights.DecrementSeats(ctx, seats); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

// atomically runs fn in a unit of work. Only a lost write conflict is retried;
// every other failure, business or storage, ends the operation at once.
func (s *BookingService) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryBase
	policy.MaxInterval = 20 * s.retryBase
	policy.MaxElapsedTime = 0

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := s.tx.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrWriteConflict) {
			s.log.WithField("attempt", attempts).WithError(err).Debug("write conflict, retrying unit of work")
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.maxAttempts-1)), ctx))

	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrWriteConflict) {
		return fmt.Errorf("%w after %d attempts: %v", domain.ErrContention, attempts, err)
	}
	return classify(err)
}

// classify makes sure every error leaving the service carries one of the four kinds.
func classify(err error) error {
	if domain.KindOf(err) != domain.KindStorageFailure || errors.Is(err, domain.ErrStorageFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
}

func (s *BookingService) logFailure(fields logrus.Fields, msg string, err error) {
	entry := s.log.WithFields(fields).WithField("kind", domain.KindOf(err)).WithError(err)
	if domain.KindOf(err) == domain.KindStorageFailure {
		entry.Error(msg)
		return
	}
	entry.Info(msg)
}

func (s *BookingService) invalidateFlights(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(context.WithoutCancel(ctx)); err != nil {
		s.log.WithError(err).Warn("failed to invalidate flights cache")
	}
}

func (s *BookingService) publish(ctx context.Context, event kafka.BookingEvent) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	fields := logrus.Fields{"event_type": event.Type, "booking_id": event.BookingID}

	if err := s.producer.Publish(ctx, s.eventsTopic, event.Key(), event); err != nil {
		s.log.WithFields(fields).WithError(err).Warn("failed to publish booking event")
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, event.Key(), event); err != nil {
			s.log.WithFields(fields).WithError(err).Warn("failed to publish booking notification")
		}
	}
}

func bookingIDs(bookings []domain.Booking) []int64 {
	ids := make([]int64, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	return ids
}

var _ BookingUseCase = (*BookingService)(nil)
