package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/flightops/internal/ledger"
	"github.com/punchamoorthee/flightops/internal/models"
)

var (
	ErrSameDayConflict     = errors.New("user already holds a reservation on that day")
	ErrNoCapacity          = errors.New("flight has no remaining capacity")
	ErrReservationNotFound = errors.New("reservation not found")
)

// InsufficientBalanceError carries the operands the payment failure message
// needs.
type InsufficientBalanceError struct {
	Balance int64
	Cost    int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("balance %d is below cost %d", e.Balance, e.Cost)
}

var (
	txTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flightops_transactions_total",
		Help: "Transactional operations by kind and outcome",
	}, []string{"op", "outcome"})

	txDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flightops_transaction_duration_seconds",
		Help:    "Latency distribution of transactional operations",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"op"})
)

// BookingService executes the three state-changing operations. Every
// precondition on shared state (same-day rule, seat capacity, balance,
// reservation status) is re-checked inside an open serializable transaction;
// nothing is checked outside it.
type BookingService struct {
	db     *pgxpool.Pool
	ledger *ledger.CapacityLedger
}

func NewBookingService(db *pgxpool.Pool, l *ledger.CapacityLedger) *BookingService {
	return &BookingService{db: db, ledger: l}
}

// Book reserves every leg of the itinerary for username and returns the
// allocated reservation id. The caller has already validated the session and
// the itinerary index; everything that reads shared state happens here,
// inside the transaction.
func (s *BookingService) Book(ctx context.Context, username string, it models.Itinerary) (int64, error) {
	timer := prometheus.NewTimer(txDuration.WithLabelValues("book"))
	defer timer.ObserveDuration()

	id, err := s.book(ctx, username, it)
	txTotal.WithLabelValues("book", outcome(err)).Inc()
	return id, err
}

func (s *BookingService) book(ctx context.Context, username string, it models.Itinerary) (int64, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Same-day rule. One non-canceled reservation per user per day.
	var sameDay int
	err = tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM reservations WHERE username = $1 AND day_of_month = $2 AND canceled = FALSE",
		username, it.DayOfMonth()).Scan(&sameDay)
	if err != nil {
		return 0, fmt.Errorf("same-day check failed: %w", err)
	}
	if sameDay >= 1 {
		return 0, ErrSameDayConflict
	}

	// 2. Lock capacity rows in fid order so two bookings sharing a leg
	// cannot deadlock, then re-check every leg.
	legs := lockOrder(it.Legs)
	capacities := make(map[int64]int, len(legs))
	for _, leg := range legs {
		var capacity int
		err = tx.QueryRow(ctx,
			"SELECT capacity FROM capacities WHERE fid = $1 FOR UPDATE",
			leg.FlightID).Scan(&capacity)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, ErrNoCapacity
			}
			return 0, fmt.Errorf("capacity lock failed: %w", err)
		}
		if capacity < 1 {
			return 0, ErrNoCapacity
		}
		capacities[leg.FlightID] = capacity
	}

	// 3. First-touch snapshot for the reset ledger, then decrement.
	for _, leg := range legs {
		s.ledger.Record(leg.FlightID, capacities[leg.FlightID])
		if _, err = tx.Exec(ctx,
			"UPDATE capacities SET capacity = capacity - 1 WHERE fid = $1", leg.FlightID); err != nil {
			return 0, fmt.Errorf("capacity decrement failed: %w", err)
		}
	}

	// 4. Insert the reservation. The id comes from the sequence inside this
	// transaction, so committed bookings get distinct, increasing ids.
	var fid2 *int64
	if len(it.Legs) == 2 {
		fid2 = &it.Legs[1].FlightID
	}
	var reservationID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO reservations (day_of_month, username, flight_id, flight_id2, price, paid, canceled)
		 VALUES ($1, $2, $3, $4, $5, FALSE, FALSE)
		 RETURNING reservation_id`,
		it.DayOfMonth(), username, it.Legs[0].FlightID, fid2, it.TotalPrice()).Scan(&reservationID)
	if err != nil {
		return 0, fmt.Errorf("reservation insert failed: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("tx commit failed: %w", err)
	}
	return reservationID, nil
}

// Cancel marks the caller's reservation canceled, restores one seat per leg,
// and refunds the account if the reservation had been paid. All of it commits
// or none of it does.
func (s *BookingService) Cancel(ctx context.Context, username string, reservationID int64) error {
	timer := prometheus.NewTimer(txDuration.WithLabelValues("cancel"))
	defer timer.ObserveDuration()

	err := s.cancel(ctx, username, reservationID)
	txTotal.WithLabelValues("cancel", outcome(err)).Inc()
	return err
}

func (s *BookingService) cancel(ctx context.Context, username string, reservationID int64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var r models.Reservation
	err = tx.QueryRow(ctx,
		`SELECT reservation_id, day_of_month, username, flight_id, flight_id2, price, paid, canceled
		 FROM reservations WHERE reservation_id = $1 AND username = $2 FOR UPDATE`,
		reservationID, username).Scan(&r.ReservationID, &r.DayOfMonth, &r.Username,
		&r.FlightID, &r.FlightID2, &r.Price, &r.Paid, &r.Canceled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrReservationNotFound
		}
		return fmt.Errorf("reservation lookup failed: %w", err)
	}
	if r.Canceled {
		return ErrReservationNotFound
	}

	fids := []int64{r.FlightID}
	if r.FlightID2 != nil {
		fids = append(fids, *r.FlightID2)
	}
	if len(fids) == 2 && fids[0] > fids[1] {
		fids[0], fids[1] = fids[1], fids[0]
	}
	for _, fid := range fids {
		if _, err = tx.Exec(ctx,
			"UPDATE capacities SET capacity = capacity + 1 WHERE fid = $1", fid); err != nil {
			return fmt.Errorf("capacity restore failed: %w", err)
		}
	}

	if _, err = tx.Exec(ctx,
		"UPDATE reservations SET canceled = TRUE, paid = FALSE WHERE reservation_id = $1",
		reservationID); err != nil {
		return fmt.Errorf("reservation update failed: %w", err)
	}

	// Refund exactly once: a canceled reservation can never be canceled
	// again, so this credit cannot repeat.
	if r.Paid {
		if _, err = tx.Exec(ctx,
			"UPDATE users SET balance = balance + $1 WHERE username = $2",
			r.Price, username); err != nil {
			return fmt.Errorf("refund failed: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

// Pay debits the caller's account for an unpaid reservation and marks it
// paid, returning the new balance.
func (s *BookingService) Pay(ctx context.Context, username string, reservationID int64) (int64, error) {
	timer := prometheus.NewTimer(txDuration.WithLabelValues("pay"))
	defer timer.ObserveDuration()

	balance, err := s.pay(ctx, username, reservationID)
	txTotal.WithLabelValues("pay", outcome(err)).Inc()
	return balance, err
}

func (s *BookingService) pay(ctx context.Context, username string, reservationID int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var price int64
	var paid, canceled bool
	err = tx.QueryRow(ctx,
		`SELECT price, paid, canceled FROM reservations
		 WHERE reservation_id = $1 AND username = $2 FOR UPDATE`,
		reservationID, username).Scan(&price, &paid, &canceled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrReservationNotFound
		}
		return 0, fmt.Errorf("reservation lookup failed: %w", err)
	}
	if paid || canceled {
		return 0, ErrReservationNotFound
	}

	var balance int64
	err = tx.QueryRow(ctx,
		"SELECT balance FROM users WHERE username = $1 FOR UPDATE", username).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("balance lookup failed: %w", err)
	}
	if balance < price {
		return 0, &InsufficientBalanceError{Balance: balance, Cost: price}
	}

	newBalance := balance - price
	if _, err = tx.Exec(ctx,
		"UPDATE users SET balance = $1 WHERE username = $2", newBalance, username); err != nil {
		return 0, fmt.Errorf("debit failed: %w", err)
	}
	if _, err = tx.Exec(ctx,
		"UPDATE reservations SET paid = TRUE WHERE reservation_id = $1", reservationID); err != nil {
		return 0, fmt.Errorf("reservation update failed: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("tx commit failed: %w", err)
	}
	return newBalance, nil
}

// IsSerializationFailure reports whether err is a store-side serialization
// conflict (SQLSTATE 40001). Conflicted operations roll back and surface the
// generic per-operation failure; there is no automatic retry.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func lockOrder(legs []models.Flight) []models.Flight {
	out := make([]models.Flight, len(legs))
	copy(out, legs)
	if len(out) == 2 && out[0].FlightID > out[1].FlightID {
		out[0], out[1] = out[1], out[0]
	}
	return out
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsSerializationFailure(err):
		return "conflict"
	default:
		return "rejected"
	}
}
