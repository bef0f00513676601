package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/flightops/internal/engine"
	"github.com/punchamoorthee/flightops/internal/engine/mocks"
	"github.com/punchamoorthee/flightops/internal/ledger"
	"github.com/punchamoorthee/flightops/internal/models"
	"github.com/punchamoorthee/flightops/internal/service"
	"github.com/punchamoorthee/flightops/internal/session"
	"github.com/punchamoorthee/flightops/internal/store"
)

func newEngine() (*engine.Engine, *mocks.MockCatalog, *mocks.MockBooker, *ledger.CapacityLedger) {
	catalog := new(mocks.MockCatalog)
	booker := new(mocks.MockBooker)
	l := ledger.New()
	return engine.New(catalog, booker, l), catalog, booker, l
}

func loggedIn(t *testing.T, username string) *session.Session {
	t.Helper()
	sess := session.New()
	require.NoError(t, sess.Bind(username))
	return sess
}

func oneHop(fid int64, day, duration int, price int64) models.Itinerary {
	return models.Itinerary{Legs: []models.Flight{{
		FlightID: fid, DayOfMonth: day, CarrierID: "AA", FlightNum: 1,
		OriginCity: "Seattle WA", DestCity: "Boston MA",
		Duration: duration, Capacity: 10, Price: price,
	}}}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name        string
		credsOK     bool
		credsErr    error
		preLoggedIn bool
		want        string
	}{
		{name: "success", credsOK: true, want: "Logged in as alice"},
		{name: "bad credentials", credsOK: false, want: "Login failed"},
		{name: "store failure", credsErr: errors.New("conn reset"), want: "Login failed"},
		{name: "already logged in", preLoggedIn: true, want: "User already logged in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, catalog, _, _ := newEngine()
			sess := session.New()
			if tt.preLoggedIn {
				require.NoError(t, sess.Bind("alice"))
			} else {
				catalog.On("CheckCredentials", mock.Anything, "alice", "pw").Return(tt.credsOK, tt.credsErr)
			}

			got := eng.Login(context.Background(), sess, "alice", "pw")
			assert.Equal(t, tt.want, got)
			catalog.AssertExpectations(t)
		})
	}
}

func TestLoginBindsIdentityAndClearsResults(t *testing.T) {
	eng, catalog, _, _ := newEngine()
	catalog.On("CheckCredentials", mock.Anything, "alice", "pw").Return(true, nil)

	sess := session.New()
	sess.SetResults([]models.Itinerary{oneHop(1, 1, 100, 50)})

	eng.Login(context.Background(), sess, "alice", "pw")

	username, err := sess.Username()
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
	assert.Equal(t, 0, sess.ResultCount())
}

func TestCreateCustomer(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		eng, catalog, _, _ := newEngine()
		catalog.On("CreateUser", mock.Anything, "bob", "pw", int64(500)).Return(nil)
		assert.Equal(t, "Created user bob", eng.CreateCustomer(context.Background(), "bob", "pw", 500))
	})

	t.Run("negative deposit rejected before store call", func(t *testing.T) {
		eng, catalog, _, _ := newEngine()
		assert.Equal(t, "Failed to create user", eng.CreateCustomer(context.Background(), "bob", "pw", -1))
		catalog.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate username", func(t *testing.T) {
		eng, catalog, _, _ := newEngine()
		catalog.On("CreateUser", mock.Anything, "bob", "pw", int64(0)).Return(store.ErrUserExists)
		assert.Equal(t, "Failed to create user", eng.CreateCustomer(context.Background(), "bob", "pw", 0))
	})
}

func TestSearchDirectOnly(t *testing.T) {
	eng, catalog, _, _ := newEngine()
	catalog.On("SearchOneHop", mock.Anything, "Seattle WA", "Boston MA", 1, 2).
		Return([]models.Itinerary{oneHop(1, 1, 100, 50)}, nil)

	sess := session.New()
	got := eng.Search(context.Background(), sess, "Seattle WA", "Boston MA", true, 1, 2)

	assert.Contains(t, got, "Itinerary 0: 1 flight(s), 100 minutes")
	assert.Equal(t, 1, sess.ResultCount())
	catalog.AssertNotCalled(t, "SearchTwoHop", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchFillsWithTwoHop(t *testing.T) {
	eng, catalog, _, _ := newEngine()
	catalog.On("SearchOneHop", mock.Anything, "Seattle WA", "Boston MA", 1, 3).
		Return([]models.Itinerary{oneHop(1, 1, 100, 50)}, nil)
	catalog.On("SearchTwoHop", mock.Anything, "Seattle WA", "Boston MA", 1, 2).
		Return([]models.Itinerary{{Legs: []models.Flight{
			{FlightID: 2, DayOfMonth: 1, Duration: 60, Price: 30},
			{FlightID: 3, DayOfMonth: 1, Duration: 70, Price: 40},
		}}}, nil)

	sess := session.New()
	got := eng.Search(context.Background(), sess, "Seattle WA", "Boston MA", false, 1, 3)

	assert.Contains(t, got, "Itinerary 0: 1 flight(s)")
	assert.Contains(t, got, "Itinerary 1: 2 flight(s), 130 minutes")
	assert.Equal(t, 2, sess.ResultCount())
}

func TestSearchSkipsTwoHopWhenDirectBlockFull(t *testing.T) {
	eng, catalog, _, _ := newEngine()
	catalog.On("SearchOneHop", mock.Anything, "Seattle WA", "Boston MA", 1, 1).
		Return([]models.Itinerary{oneHop(1, 1, 100, 50)}, nil)

	sess := session.New()
	eng.Search(context.Background(), sess, "Seattle WA", "Boston MA", false, 1, 1)
	catalog.AssertNotCalled(t, "SearchTwoHop", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchEmptyAndErrors(t *testing.T) {
	t.Run("no matches", func(t *testing.T) {
		eng, catalog, _, _ := newEngine()
		catalog.On("SearchOneHop", mock.Anything, "A", "B", 1, 5).Return(nil, nil)
		catalog.On("SearchTwoHop", mock.Anything, "A", "B", 1, 5).Return(nil, nil)
		sess := session.New()
		assert.Equal(t, "No flights match your selection",
			eng.Search(context.Background(), sess, "A", "B", false, 1, 5))
		assert.Equal(t, 0, sess.ResultCount(), "empty search must not install results")
	})

	t.Run("store failure", func(t *testing.T) {
		eng, catalog, _, _ := newEngine()
		catalog.On("SearchOneHop", mock.Anything, "A", "B", 1, 5).Return(nil, errors.New("boom"))
		assert.Equal(t, "Failed to search",
			eng.Search(context.Background(), session.New(), "A", "B", true, 1, 5))
	})

	t.Run("non-positive count", func(t *testing.T) {
		eng, _, _, _ := newEngine()
		assert.Equal(t, "Failed to search",
			eng.Search(context.Background(), session.New(), "A", "B", true, 1, 0))
	})
}

func TestBook(t *testing.T) {
	it := oneHop(7, 12, 100, 50)

	t.Run("success", func(t *testing.T) {
		eng, _, booker, _ := newEngine()
		sess := loggedIn(t, "alice")
		sess.SetResults([]models.Itinerary{it})
		booker.On("Book", mock.Anything, "alice", mock.AnythingOfType("models.Itinerary")).Return(int64(1), nil)

		assert.Equal(t, "Booked flight(s), reservation ID: 1", eng.Book(context.Background(), sess, 0))
	})

	t.Run("not logged in", func(t *testing.T) {
		eng, _, booker, _ := newEngine()
		assert.Equal(t, "Cannot book reservations, not logged in", eng.Book(context.Background(), session.New(), 0))
		booker.AssertNotCalled(t, "Book", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("index out of range never opens a transaction", func(t *testing.T) {
		eng, _, booker, _ := newEngine()
		sess := loggedIn(t, "alice")
		sess.SetResults([]models.Itinerary{it, it})

		assert.Equal(t, "No such itinerary 5", eng.Book(context.Background(), sess, 5))
		booker.AssertNotCalled(t, "Book", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("same-day conflict has its own message", func(t *testing.T) {
		eng, _, booker, _ := newEngine()
		sess := loggedIn(t, "alice")
		sess.SetResults([]models.Itinerary{it})
		booker.On("Book", mock.Anything, "alice", mock.Anything).Return(int64(0), service.ErrSameDayConflict)

		assert.Equal(t, "You cannot book two flights in the same day", eng.Book(context.Background(), sess, 0))
	})

	t.Run("capacity exhaustion collapses to generic failure", func(t *testing.T) {
		eng, _, booker, _ := newEngine()
		sess := loggedIn(t, "alice")
		sess.SetResults([]models.Itinerary{it})
		booker.On("Book", mock.Anything, "alice", mock.Anything).Return(int64(0), service.ErrNoCapacity)

		assert.Equal(t, "Booking failed", eng.Book(context.Background(), sess, 0))
	})

	t.Run("store conflict collapses to generic failure", func(t *testing.T) {
		eng, _, booker, _ := newEngine()
		sess := loggedIn(t, "alice")
		sess.SetResults([]models.Itinerary{it})
		booker.On("Book", mock.Anything, "alice", mock.Anything).Return(int64(0), errors.New("SQLSTATE 40001"))

		assert.Equal(t, "Booking failed", eng.Book(context.Background(), sess, 0))
	})
}

func TestReservations(t *testing.T) {
	t.Run("not logged in", func(t *testing.T) {
		eng, _, _, _ := newEngine()
		assert.Equal(t, "Cannot view reservations, not logged in",
			eng.Reservations(context.Background(), session.New()))
	})

	t.Run("empty", func(t *testing.T) {
		eng, catalog, _, _ := newEngine()
		catalog.On("UserReservations", mock.Anything, "alice").Return(nil, nil)
		assert.Equal(t, "No reservations found",
			eng.Reservations(context.Background(), loggedIn(t, "alice")))
	})

	t.Run("store failure", func(t *testing.T) {
		eng, catalog, _, _ := newEngine()
		catalog.On("UserReservations", mock.Anything, "alice").Return(nil, errors.New("boom"))
		assert.Equal(t, "Failed to retrieve reservations",
			eng.Reservations(context.Background(), loggedIn(t, "alice")))
	})

	t.Run("lists reservations", func(t *testing.T) {
		eng, catalog, _, _ := newEngine()
		catalog.On("UserReservations", mock.Anything, "alice").Return([]models.ReservationView{
			{ReservationID: 3, Paid: true, Legs: oneHop(1, 1, 100, 50).Legs},
		}, nil)

		got := eng.Reservations(context.Background(), loggedIn(t, "alice"))
		assert.Contains(t, got, "Reservation 3 paid: true:")
	})
}

func TestCancel(t *testing.T) {
	t.Run("not logged in", func(t *testing.T) {
		eng, _, _, _ := newEngine()
		assert.Equal(t, "Cannot cancel reservations, not logged in",
			eng.Cancel(context.Background(), session.New(), 9))
	})

	t.Run("success", func(t *testing.T) {
		eng, _, booker, _ := newEngine()
		booker.On("Cancel", mock.Anything, "alice", int64(9)).Return(nil)
		assert.Equal(t, "Canceled reservation 9",
			eng.Cancel(context.Background(), loggedIn(t, "alice"), 9))
	})

	t.Run("unknown or already canceled", func(t *testing.T) {
		eng, _, booker, _ := newEngine()
		booker.On("Cancel", mock.Anything, "alice", int64(9)).Return(service.ErrReservationNotFound)
		assert.Equal(t, "Failed to cancel reservation 9",
			eng.Cancel(context.Background(), loggedIn(t, "alice"), 9))
	})
}

func TestPay(t *testing.T) {
	t.Run("not logged in", func(t *testing.T) {
		eng, _, _, _ := newEngine()
		assert.Equal(t, "Cannot pay, not logged in", eng.Pay(context.Background(), session.New(), 4))
	})

	t.Run("success", func(t *testing.T) {
		eng, _, booker, _ := newEngine()
		booker.On("Pay", mock.Anything, "alice", int64(4)).Return(int64(250), nil)
		assert.Equal(t, "Paid reservation: 4 remaining balance: 250",
			eng.Pay(context.Background(), loggedIn(t, "alice"), 4))
	})

	t.Run("no unpaid reservation", func(t *testing.T) {
		eng, _, booker, _ := newEngine()
		booker.On("Pay", mock.Anything, "alice", int64(4)).Return(int64(0), service.ErrReservationNotFound)
		assert.Equal(t, "Cannot find unpaid reservation 4 under user: alice",
			eng.Pay(context.Background(), loggedIn(t, "alice"), 4))
	})

	t.Run("insufficient balance names both amounts", func(t *testing.T) {
		eng, _, booker, _ := newEngine()
		booker.On("Pay", mock.Anything, "alice", int64(4)).
			Return(int64(0), &service.InsufficientBalanceError{Balance: 100, Cost: 150})
		assert.Equal(t, "User has only 100 in account but itinerary costs 150",
			eng.Pay(context.Background(), loggedIn(t, "alice"), 4))
	})

	t.Run("store failure", func(t *testing.T) {
		eng, _, booker, _ := newEngine()
		booker.On("Pay", mock.Anything, "alice", int64(4)).Return(int64(0), errors.New("boom"))
		assert.Equal(t, "Failed to pay for reservation 4",
			eng.Pay(context.Background(), loggedIn(t, "alice"), 4))
	})
}

func TestResetPassesLedgerAndClears(t *testing.T) {
	eng, catalog, _, l := newEngine()
	l.Record(5, 10)

	catalog.On("ResetAll", mock.Anything, mock.MatchedBy(func(entries []ledger.Entry) bool {
		return len(entries) == 1 && entries[0].FlightID == 5 && entries[0].Capacity == 10
	})).Return(nil)

	require.NoError(t, eng.Reset(context.Background()))
	assert.Equal(t, 0, l.Len(), "ledger cleared after successful reset")
	catalog.AssertExpectations(t)
}

func TestResetFailureKeepsLedger(t *testing.T) {
	eng, catalog, _, l := newEngine()
	l.Record(5, 10)
	catalog.On("ResetAll", mock.Anything, mock.Anything).Return(errors.New("boom"))

	assert.Error(t, eng.Reset(context.Background()))
	assert.Equal(t, 1, l.Len(), "failed reset must not drop snapshots")
}
