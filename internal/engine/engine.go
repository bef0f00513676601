// Package engine composes the catalog, the transactional booking service,
// and per-session state into the user-facing operation surface. Every
// operation returns the exact status string the shell and the HTTP API
// expose; the wording is a compatibility contract.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/punchamoorthee/flightops/internal/ledger"
	"github.com/punchamoorthee/flightops/internal/models"
	"github.com/punchamoorthee/flightops/internal/service"
	"github.com/punchamoorthee/flightops/internal/session"
	"github.com/punchamoorthee/flightops/internal/store"
)

// Catalog is the non-transactional store surface the engine reads through.
type Catalog interface {
	CreateUser(ctx context.Context, username, password string, initAmount int64) error
	CheckCredentials(ctx context.Context, username, password string) (bool, error)
	SearchOneHop(ctx context.Context, origin, dest string, day, limit int) ([]models.Itinerary, error)
	SearchTwoHop(ctx context.Context, origin, dest string, day, limit int) ([]models.Itinerary, error)
	UserReservations(ctx context.Context, username string) ([]models.ReservationView, error)
	ResetAll(ctx context.Context, entries []ledger.Entry) error
}

// Booker is the transactional surface: each call opens, commits, or rolls
// back exactly one store transaction.
type Booker interface {
	Book(ctx context.Context, username string, it models.Itinerary) (int64, error)
	Cancel(ctx context.Context, username string, reservationID int64) error
	Pay(ctx context.Context, username string, reservationID int64) (int64, error)
}

// Engine is shared by all sessions of a run; per-session state arrives as an
// explicit *session.Session argument on every call.
type Engine struct {
	store   Catalog
	booking Booker
	ledger  *ledger.CapacityLedger
}

func New(store Catalog, booking Booker, l *ledger.CapacityLedger) *Engine {
	return &Engine{store: store, booking: booking, ledger: l}
}

// Login authenticates the session against stored credentials. A session that
// is already bound rejects the attempt outright.
func (e *Engine) Login(ctx context.Context, sess *session.Session, username, password string) string {
	if sess.LoggedIn() {
		return "User already logged in"
	}
	ok, err := e.store.CheckCredentials(ctx, username, password)
	if err != nil {
		log.Printf("login: credential check: %v", err)
		return "Login failed"
	}
	if !ok {
		return "Login failed"
	}
	if err := sess.Bind(username); err != nil {
		return "User already logged in"
	}
	return "Logged in as " + username
}

// CreateCustomer makes a new account. The initial deposit must be
// non-negative; usernames are unique system-wide.
func (e *Engine) CreateCustomer(ctx context.Context, username, password string, initAmount int64) string {
	if initAmount < 0 {
		return "Failed to create user"
	}
	if err := e.store.CreateUser(ctx, username, password, initAmount); err != nil {
		if !errors.Is(err, store.ErrUserExists) {
			log.Printf("create user: %v", err)
		}
		return "Failed to create user"
	}
	return "Created user " + username
}

// Search fills up to n itineraries: the direct block first, then two-hop
// itineraries if direct-only is off and slots remain. The result replaces the
// session's previous search and is what later Book calls index into.
func (e *Engine) Search(ctx context.Context, sess *session.Session, origin, dest string, directOnly bool, day, n int) string {
	if n <= 0 {
		return "Failed to search"
	}
	oneHop, err := e.store.SearchOneHop(ctx, origin, dest, day, n)
	if err != nil {
		log.Printf("search: one-hop: %v", err)
		return "Failed to search"
	}
	var twoHop []models.Itinerary
	if !directOnly && len(oneHop) < n {
		twoHop, err = e.store.SearchTwoHop(ctx, origin, dest, day, n-len(oneHop))
		if err != nil {
			log.Printf("search: two-hop: %v", err)
			return "Failed to search"
		}
	}
	its := models.AssembleItineraries(oneHop, twoHop, n)
	if len(its) == 0 {
		return "No flights match your selection"
	}
	sess.SetResults(its)
	return models.FormatItineraries(its)
}

// Book reserves the itinerary at index from the session's most recent
// search. Session and index validation happen before any transaction opens;
// the same-day rule and capacity checks happen inside it.
func (e *Engine) Book(ctx context.Context, sess *session.Session, index int) string {
	username, err := sess.Username()
	if err != nil {
		return "Cannot book reservations, not logged in"
	}
	it, err := sess.Itinerary(index)
	if err != nil {
		return fmt.Sprintf("No such itinerary %d", index)
	}

	reservationID, err := e.booking.Book(ctx, username, it)
	if err != nil {
		if errors.Is(err, service.ErrSameDayConflict) {
			return "You cannot book two flights in the same day"
		}
		if !errors.Is(err, service.ErrNoCapacity) {
			log.Printf("book: %v", err)
		}
		return "Booking failed"
	}
	return fmt.Sprintf("Booked flight(s), reservation ID: %d", reservationID)
}

// Reservations lists the caller's non-canceled reservations with the flight
// attributes of each leg.
func (e *Engine) Reservations(ctx context.Context, sess *session.Session) string {
	username, err := sess.Username()
	if err != nil {
		return "Cannot view reservations, not logged in"
	}
	views, err := e.store.UserReservations(ctx, username)
	if err != nil {
		log.Printf("reservations: %v", err)
		return "Failed to retrieve reservations"
	}
	if len(views) == 0 {
		return "No reservations found"
	}
	return models.FormatReservations(views)
}

// Cancel voids the caller's reservation, restoring seats and refunding a
// paid reservation in one transaction.
func (e *Engine) Cancel(ctx context.Context, sess *session.Session, reservationID int64) string {
	username, err := sess.Username()
	if err != nil {
		return "Cannot cancel reservations, not logged in"
	}
	if err := e.booking.Cancel(ctx, username, reservationID); err != nil {
		if !errors.Is(err, service.ErrReservationNotFound) {
			log.Printf("cancel: %v", err)
		}
		return fmt.Sprintf("Failed to cancel reservation %d", reservationID)
	}
	return fmt.Sprintf("Canceled reservation %d", reservationID)
}

// Pay settles an unpaid reservation owned by the caller.
func (e *Engine) Pay(ctx context.Context, sess *session.Session, reservationID int64) string {
	username, err := sess.Username()
	if err != nil {
		return "Cannot pay, not logged in"
	}
	balance, err := e.booking.Pay(ctx, username, reservationID)
	if err != nil {
		if errors.Is(err, service.ErrReservationNotFound) {
			return fmt.Sprintf("Cannot find unpaid reservation %d under user: %s", reservationID, username)
		}
		var insufficient *service.InsufficientBalanceError
		if errors.As(err, &insufficient) {
			return fmt.Sprintf("User has only %d in account but itinerary costs %d", insufficient.Balance, insufficient.Cost)
		}
		log.Printf("pay: %v", err)
		return fmt.Sprintf("Failed to pay for reservation %d", reservationID)
	}
	return fmt.Sprintf("Paid reservation: %d remaining balance: %d", reservationID, balance)
}

// Reset restores every ledgered capacity to its snapshot, clears accounts
// and reservations, restarts the reservation id sequence, and empties the
// ledger. Administrative only; assumes no bookings in flight.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.store.ResetAll(ctx, e.ledger.Entries()); err != nil {
		return err
	}
	e.ledger.Clear()
	return nil
}
