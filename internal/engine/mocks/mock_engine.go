package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/punchamoorthee/flightops/internal/ledger"
	"github.com/punchamoorthee/flightops/internal/models"
)

// MockCatalog is a mock implementation of engine.Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) CreateUser(ctx context.Context, username, password string, initAmount int64) error {
	args := m.Called(ctx, username, password, initAmount)
	return args.Error(0)
}

func (m *MockCatalog) CheckCredentials(ctx context.Context, username, password string) (bool, error) {
	args := m.Called(ctx, username, password)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalog) SearchOneHop(ctx context.Context, origin, dest string, day, limit int) ([]models.Itinerary, error) {
	args := m.Called(ctx, origin, dest, day, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Itinerary), args.Error(1)
}

func (m *MockCatalog) SearchTwoHop(ctx context.Context, origin, dest string, day, limit int) ([]models.Itinerary, error) {
	args := m.Called(ctx, origin, dest, day, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Itinerary), args.Error(1)
}

func (m *MockCatalog) UserReservations(ctx context.Context, username string) ([]models.ReservationView, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReservationView), args.Error(1)
}

func (m *MockCatalog) ResetAll(ctx context.Context, entries []ledger.Entry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

// MockBooker is a mock implementation of engine.Booker
type MockBooker struct {
	mock.Mock
}

func (m *MockBooker) Book(ctx context.Context, username string, it models.Itinerary) (int64, error) {
	args := m.Called(ctx, username, it)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBooker) Cancel(ctx context.Context, username string, reservationID int64) error {
	args := m.Called(ctx, username, reservationID)
	return args.Error(0)
}

func (m *MockBooker) Pay(ctx context.Context, username string, reservationID int64) (int64, error) {
	args := m.Called(ctx, username, reservationID)
	return args.Get(0).(int64), args.Error(1)
}
