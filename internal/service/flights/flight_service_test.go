package flights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/seatbook/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) ReadSeats(ctx context.Context, flightID int64) (domain.SeatCount, error) {
	args := m.Called(ctx, flightID)
	return args.Get(0).(domain.SeatCount), args.Error(1)
}

func (m *MockFlightRepository) LockSeats(ctx context.Context, flightID int64) (domain.SeatCount, error) {
	args := m.Called(ctx, flightID)
	return args.Get(0).(domain.SeatCount), args.Error(1)
}

func (m *MockFlightRepository) DecrementSeats(ctx context.Context, seen domain.SeatCount) error {
	args := m.Called(ctx, seen)
	return args.Error(0)
}

func (m *MockFlightRepository) IncrementSeats(ctx context.Context, flightID int64) error {
	args := m.Called(ctx, flightID)
	return args.Error(0)
}

func (m *MockFlightRepository) Audit(ctx context.Context) ([]domain.SeatDrift, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatDrift), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFlights(ctx context.Context) ([]domain.Flight, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockCache) SetFlights(ctx context.Context, flights []domain.Flight) error {
	args := m.Called(ctx, flights)
	return args.Error(0)
}

func sampleFlights() []domain.Flight {
	departure := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	return []domain.Flight{
		{ID: 4, FromAirport: "SVO", ToAirport: "LED", DepartureTime: departure, ArrivalTime: departure.Add(90 * time.Minute), TotalSeats: 150, AvailableSeats: 120},
		{ID: 5, FromAirport: "LED", ToAirport: "SVO", DepartureTime: departure.Add(6 * time.Hour), ArrivalTime: departure.Add(450 * time.Minute), TotalSeats: 150, AvailableSeats: 0},
	}
}

func TestFlightService_List_CacheMiss(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, nil)
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(nil, nil).Once()
	mockRepo.On("List", ctx).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, flights).Return(nil).Once()

	got, err := service.List(ctx)

	require.NoError(t, err)
	assert.Equal(t, flights, got)
	mockRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_List_CacheHit(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	service := NewFlightService(mockRepo, mockCache, nil)
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(flights, nil).Once()

	got, err := service.List(ctx)

	require.NoError(t, err)
	assert.Equal(t, flights, got)
	mockRepo.AssertNotCalled(t, "List", mock.Anything)
	mockCache.AssertExpectations(t)
}

func TestFlightService_List_CacheErrorFallsBackToStore(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	mockCache := &MockCache{}
	logger, hook := test.NewNullLogger()
	service := NewFlightService(mockRepo, mockCache, logger)
	ctx := context.Background()
	flights := sampleFlights()

	mockCache.On("GetFlights", ctx).Return(nil, errors.New("redis down")).Once()
	mockRepo.On("List", ctx).Return(flights, nil).Once()
	mockCache.On("SetFlights", ctx, flights).Return(errors.New("redis down")).Once()

	got, err := service.List(ctx)

	require.NoError(t, err)
	assert.Equal(t, flights, got)
	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestFlightService_List_NoCache(t *testing.T) {
	mockRepo := &MockFlightRepository{}
	service := NewFlightService(mockRepo, nil, nil)
	ctx := context.Background()

	mockRepo.On("List", ctx).Return(nil, errors.New("connection refused")).Once()

	_, err := service.List(ctx)

	assert.ErrorIs(t, err, domain.ErrStorageFailure)
}

func TestFlightService_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mockRepo := &MockFlightRepository{}
		service := NewFlightService(mockRepo, nil, nil)
		flight := sampleFlights()[0]
		mockRepo.On("GetByID", ctx, int64(4)).Return(&flight, nil).Once()

		got, err := service.GetByID(ctx, 4)

		require.NoError(t, err)
		assert.Equal(t, &flight, got)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo := &MockFlightRepository{}
		service := NewFlightService(mockRepo, nil, nil)
		mockRepo.On("GetByID", ctx, int64(999)).Return(nil, domain.ErrFlightNotFound).Once()

		_, err := service.GetByID(ctx, 999)

		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NotErrorIs(t, err, domain.ErrStorageFailure)
	})

	t.Run("invalid id", func(t *testing.T) {
		mockRepo := &MockFlightRepository{}
		service := NewFlightService(mockRepo, nil, nil)

		_, err := service.GetByID(ctx, 0)

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestFlightService_Audit(t *testing.T) {
	ctx := context.Background()

	t.Run("drift is logged", func(t *testing.T) {
		mockRepo := &MockFlightRepository{}
		logger, hook := test.NewNullLogger()
		service := NewFlightService(mockRepo, nil, logger)
		drift := []domain.SeatDrift{{FlightID: 4, TotalSeats: 10, AvailableSeats: 7, ActiveBookings: 2}}
		mockRepo.On("Audit", ctx).Return(drift, nil).Once()

		got, err := service.Audit(ctx)

		require.NoError(t, err)
		assert.Equal(t, drift, got)
		require.Len(t, hook.AllEntries(), 1)
		entry := hook.LastEntry()
		assert.Equal(t, logrus.ErrorLevel, entry.Level)
		assert.Equal(t, int64(4), entry.Data["flight_id"])
		assert.Equal(t, 8, entry.Data["expected_seats"])
	})

	t.Run("clean", func(t *testing.T) {
		mockRepo := &MockFlightRepository{}
		logger, hook := test.NewNullLogger()
		service := NewFlightService(mockRepo, nil, logger)
		mockRepo.On("Audit", ctx).Return([]domain.SeatDrift{}, nil).Once()

		got, err := service.Audit(ctx)

		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Empty(t, hook.AllEntries())
	})
}
