package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/flightops/internal/ledger"
	"github.com/punchamoorthee/flightops/internal/models"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("username already taken")
)

// Store wraps the connection pool and owns every non-transactional query:
// catalog reads, itinerary search, credential checks, the reservations view,
// and the administrative reset. The transactional book/cancel/pay path lives
// in the service package.
type Store struct {
	Db *pgxpool.Pool
}

func NewStore(connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Db: pool}, nil
}

func (s *Store) Close() {
	s.Db.Close()
}

// CreateUser inserts a new account row. Usernames are unique; a duplicate
// insert maps to ErrUserExists.
func (s *Store) CreateUser(ctx context.Context, username, password string, initAmount int64) error {
	_, err := s.Db.Exec(ctx,
		"INSERT INTO users (username, password, balance) VALUES ($1, $2, $3)",
		username, password, initAmount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUserExists
		}
		return fmt.Errorf("user insert failed: %w", err)
	}
	return nil
}

// CheckCredentials reports whether a username/password pair matches a stored
// account.
func (s *Store) CheckCredentials(ctx context.Context, username, password string) (bool, error) {
	var count int
	err := s.Db.QueryRow(ctx,
		"SELECT COUNT(*) FROM users WHERE username = $1 AND password = $2",
		username, password).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("credential check failed: %w", err)
	}
	return count == 1, nil
}

// GetFlight returns schedule attributes for a single flight.
func (s *Store) GetFlight(ctx context.Context, fid int64) (*models.Flight, error) {
	var f models.Flight
	err := s.Db.QueryRow(ctx,
		`SELECT fid, day_of_month, carrier_id, flight_num, origin_city, dest_city, actual_time, capacity, price
		 FROM flights WHERE fid = $1`,
		fid).Scan(&f.FlightID, &f.DayOfMonth, &f.CarrierID, &f.FlightNum,
		&f.OriginCity, &f.DestCity, &f.Duration, &f.Capacity, &f.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("flight lookup failed: %w", err)
	}
	return &f, nil
}

// FlightCapacity reads the live seat count for a flight.
func (s *Store) FlightCapacity(ctx context.Context, fid int64) (int, error) {
	var capacity int
	err := s.Db.QueryRow(ctx, "SELECT capacity FROM capacities WHERE fid = $1", fid).Scan(&capacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("capacity lookup failed: %w", err)
	}
	return capacity, nil
}

// SearchOneHop returns up to limit direct itineraries for the route and day,
// ordered by duration then flight id. Flights without an actual time or
// marked canceled never appear.
func (s *Store) SearchOneHop(ctx context.Context, origin, dest string, day, limit int) ([]models.Itinerary, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT fid, day_of_month, carrier_id, flight_num, origin_city, dest_city, actual_time, capacity, price
		 FROM flights
		 WHERE origin_city = $1 AND dest_city = $2 AND day_of_month = $3
		   AND actual_time IS NOT NULL AND canceled = FALSE
		 ORDER BY actual_time ASC, fid ASC
		 LIMIT $4`,
		origin, dest, day, limit)
	if err != nil {
		return nil, fmt.Errorf("one-hop search failed: %w", err)
	}
	defer rows.Close()

	var its []models.Itinerary
	for rows.Next() {
		var f models.Flight
		if err := rows.Scan(&f.FlightID, &f.DayOfMonth, &f.CarrierID, &f.FlightNum,
			&f.OriginCity, &f.DestCity, &f.Duration, &f.Capacity, &f.Price); err != nil {
			return nil, fmt.Errorf("one-hop scan failed: %w", err)
		}
		its = append(its, models.Itinerary{Legs: []models.Flight{f}})
	}
	return its, rows.Err()
}

// SearchTwoHop returns up to limit two-leg itineraries where leg A lands in
// leg B's origin on the same day, ordered by combined duration then leg-A id.
func (s *Store) SearchTwoHop(ctx context.Context, origin, dest string, day, limit int) ([]models.Itinerary, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT f1.fid, f1.day_of_month, f1.carrier_id, f1.flight_num, f1.origin_city, f1.dest_city, f1.actual_time, f1.capacity, f1.price,
		        f2.fid, f2.day_of_month, f2.carrier_id, f2.flight_num, f2.origin_city, f2.dest_city, f2.actual_time, f2.capacity, f2.price
		 FROM flights f1
		 JOIN flights f2 ON f1.dest_city = f2.origin_city AND f1.day_of_month = f2.day_of_month
		 WHERE f1.origin_city = $1 AND f2.dest_city = $2 AND f1.day_of_month = $3
		   AND f1.actual_time IS NOT NULL AND f1.canceled = FALSE
		   AND f2.actual_time IS NOT NULL AND f2.canceled = FALSE
		 ORDER BY f1.actual_time + f2.actual_time ASC, f1.fid ASC
		 LIMIT $4`,
		origin, dest, day, limit)
	if err != nil {
		return nil, fmt.Errorf("two-hop search failed: %w", err)
	}
	defer rows.Close()

	var its []models.Itinerary
	for rows.Next() {
		var a, b models.Flight
		if err := rows.Scan(&a.FlightID, &a.DayOfMonth, &a.CarrierID, &a.FlightNum,
			&a.OriginCity, &a.DestCity, &a.Duration, &a.Capacity, &a.Price,
			&b.FlightID, &b.DayOfMonth, &b.CarrierID, &b.FlightNum,
			&b.OriginCity, &b.DestCity, &b.Duration, &b.Capacity, &b.Price); err != nil {
			return nil, fmt.Errorf("two-hop scan failed: %w", err)
		}
		its = append(its, models.Itinerary{Legs: []models.Flight{a, b}})
	}
	return its, rows.Err()
}

// UserReservations returns the non-canceled reservations for username joined
// with the flight attributes of each leg.
func (s *Store) UserReservations(ctx context.Context, username string) ([]models.ReservationView, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT r.reservation_id, r.paid,
		        f1.fid, f1.day_of_month, f1.carrier_id, f1.flight_num, f1.origin_city, f1.dest_city, f1.actual_time, f1.capacity, f1.price,
		        f2.fid, f2.day_of_month, f2.carrier_id, f2.flight_num, f2.origin_city, f2.dest_city, f2.actual_time, f2.capacity, f2.price
		 FROM reservations r
		 JOIN flights f1 ON r.flight_id = f1.fid
		 LEFT JOIN flights f2 ON r.flight_id2 = f2.fid
		 WHERE r.username = $1 AND r.canceled = FALSE
		 ORDER BY r.reservation_id ASC`,
		username)
	if err != nil {
		return nil, fmt.Errorf("reservations query failed: %w", err)
	}
	defer rows.Close()

	var views []models.ReservationView
	for rows.Next() {
		var rv models.ReservationView
		var a models.Flight
		var fid2 *int64
		var day2, num2, time2, cap2 *int
		var carrier2, origin2, dest2 *string
		var price2 *int64
		if err := rows.Scan(&rv.ReservationID, &rv.Paid,
			&a.FlightID, &a.DayOfMonth, &a.CarrierID, &a.FlightNum,
			&a.OriginCity, &a.DestCity, &a.Duration, &a.Capacity, &a.Price,
			&fid2, &day2, &carrier2, &num2, &origin2, &dest2, &time2, &cap2, &price2); err != nil {
			return nil, fmt.Errorf("reservation scan failed: %w", err)
		}
		rv.Legs = []models.Flight{a}
		if fid2 != nil {
			rv.Legs = append(rv.Legs, models.Flight{
				FlightID:   *fid2,
				DayOfMonth: *day2,
				CarrierID:  *carrier2,
				FlightNum:  *num2,
				OriginCity: *origin2,
				DestCity:   *dest2,
				Duration:   *time2,
				Capacity:   *cap2,
				Price:      *price2,
			})
		}
		views = append(views, rv)
	}
	return views, rows.Err()
}

// ResetAll restores every ledgered capacity to its snapshot, clears
// reservations and accounts, and restarts the reservation id sequence at 1.
// Flight schedule rows are never touched. The caller guarantees no bookings
// are in flight.
func (s *Store) ResetAll(ctx context.Context, entries []ledger.Entry) error {
	tx, err := s.Db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			"UPDATE capacities SET capacity = $1 WHERE fid = $2", e.Capacity, e.FlightID); err != nil {
			return fmt.Errorf("capacity restore failed: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, "DELETE FROM reservations"); err != nil {
		return fmt.Errorf("reservation clear failed: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM users"); err != nil {
		return fmt.Errorf("user clear failed: %w", err)
	}
	if _, err := tx.Exec(ctx, "ALTER SEQUENCE reservations_reservation_id_seq RESTART WITH 1"); err != nil {
		return fmt.Errorf("sequence restart failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}
