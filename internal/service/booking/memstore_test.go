package booking

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Domenick1991/seatbook/internal/domain"
)

// memStore is a transactional in-memory store. A unit of work holds the store
// mutex from start to end and its writes are undone when fn fails.
type memStore struct {
	mu         sync.Mutex
	flights    map[int64]memFlight
	bookings   map[int64]domain.Booking
	passengers map[int64]bool
	nextID     int64

	// conflicts makes the next n decrements lose their version compare.
	conflicts int
	// failInsert, when set, is consulted before every booking insert.
	failInsert func(flightID int64) error
}

type memFlight struct {
	capacity int
	seats    int
	version  int64
}

type inTxKey struct{}

func newMemStore() *memStore {
	return &memStore{
		flights:    make(map[int64]memFlight),
		bookings:   make(map[int64]domain.Booking),
		passengers: make(map[int64]bool),
	}
}

func (s *memStore) addFlight(id int64, capacity int) {
	s.flights[id] = memFlight{capacity: capacity, seats: capacity, version: 1}
}

func (s *memStore) addPassenger(id int64) {
	s.passengers[id] = true
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	flights := maps.Clone(s.flights)
	bookings := maps.Clone(s.bookings)
	nextID := s.nextID

	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		s.flights, s.bookings, s.nextID = flights, bookings, nextID
		return err
	}
	return nil
}

// guard takes the store mutex for calls made outside a unit of work.
func (s *memStore) guard(ctx context.Context) func() {
	if ctx.Value(inTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) seats(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flights[id].seats
}

func (s *memStore) bookingsFor(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.bookings {
		if b.FlightID == id {
			n++
		}
	}
	return n
}

// drift lists flights whose counter disagrees with capacity minus bookings.
func (s *memStore) drift() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[int64]int)
	for _, b := range s.bookings {
		counts[b.FlightID]++
	}
	var ids []int64
	for id, f := range s.flights {
		if f.seats != f.capacity-counts[id] || f.seats < 0 || f.seats > f.capacity {
			ids = append(ids, id)
		}
	}
	return ids
}

type memFlights struct{ *memStore }

func (r memFlights) List(ctx context.Context) ([]domain.Flight, error) {
	defer r.guard(ctx)()
	ids := slices.Sorted(maps.Keys(r.flights))
	flights := make([]domain.Flight, 0, len(ids))
	for _, id := range ids {
		flights = append(flights, r.toFlight(id))
	}
	return flights, nil
}

func (r memFlights) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	defer r.guard(ctx)()
	if _, ok := r.flights[id]; !ok {
		return nil, domain.ErrFlightNotFound
	}
	f := r.toFlight(id)
	return &f, nil
}

func (r memFlights) toFlight(id int64) domain.Flight {
	f := r.flights[id]
	return domain.Flight{ID: id, TotalSeats: f.capacity, AvailableSeats: f.seats, Version: f.version}
}

func (r memFlights) ReadSeats(ctx context.Context, id int64) (domain.SeatCount, error) {
	defer r.guard(ctx)()
	f, ok := r.flights[id]
	if !ok {
		return domain.SeatCount{}, domain.ErrFlightNotFound
	}
	return domain.SeatCount{FlightID: id, Seats: f.seats, Version: f.version}, nil
}

func (r memFlights) LockSeats(ctx context.Context, id int64) (domain.SeatCount, error) {
	return r.ReadSeats(ctx, id)
}

func (r memFlights) DecrementSeats(ctx context.Context, seen domain.SeatCount) error {
	defer r.guard(ctx)()
	if r.conflicts > 0 {
		r.conflicts--
		return domain.ErrWriteConflict
	}
	f, ok := r.flights[seen.FlightID]
	if !ok || f.version != seen.Version || f.seats < 1 {
		return domain.ErrWriteConflict
	}
	f.seats--
	f.version++
	r.flights[seen.FlightID] = f
	return nil
}

func (r memFlights) IncrementSeats(ctx context.Context, id int64) error {
	defer r.guard(ctx)()
	f, ok := r.flights[id]
	if !ok {
		return domain.ErrFlightNotFound
	}
	f.seats++
	f.version++
	r.flights[id] = f
	return nil
}

func (r memFlights) Audit(ctx context.Context) ([]domain.SeatDrift, error) {
	return nil, nil
}

type memBookings struct{ *memStore }

func (r memBookings) Insert(ctx context.Context, passengerID, flightID int64) (domain.Booking, error) {
	defer r.guard(ctx)()
	if r.failInsert != nil {
		if err := r.failInsert(flightID); err != nil {
			return domain.Booking{}, err
		}
	}
	if !r.passengers[passengerID] {
		return domain.Booking{}, domain.ErrPassengerNotFound
	}
	if _, ok := r.flights[flightID]; !ok {
		return domain.Booking{}, domain.ErrFlightNotFound
	}
	r.nextID++
	b := domain.Booking{ID: r.nextID, PassengerID: passengerID, FlightID: flightID, CreatedAt: time.Now()}
	r.bookings[b.ID] = b
	return b, nil
}

func (r memBookings) Delete(ctx context.Context, id int64) (domain.Booking, error) {
	defer r.guard(ctx)()
	b, ok := r.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	delete(r.bookings, id)
	return b, nil
}

func (r memBookings) List(ctx context.Context) ([]domain.Booking, error) {
	defer r.guard(ctx)()
	ids := slices.Sorted(maps.Keys(r.bookings))
	slices.Reverse(ids)
	bookings := make([]domain.Booking, 0, len(ids))
	for _, id := range ids {
		bookings = append(bookings, r.bookings[id])
	}
	return bookings, nil
}

func newMemService(store *memStore, opts ...BookingServiceOption) *BookingService {
	opts = append([]BookingServiceOption{WithRetry(5, time.Millisecond)}, opts...)
	return NewBookingService(store, memBookings{store}, memFlights{store}, opts...)
}
