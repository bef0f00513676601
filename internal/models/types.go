package models

import (
	"fmt"
	"strings"
)

// Flight is an immutable snapshot of one scheduled flight leg. Capacity here
// is the schedule capacity read at search time; the live seat count lives in
// the capacities relation and is owned by the store.
type Flight struct {
	FlightID   int64  `json:"fid"`
	DayOfMonth int    `json:"day_of_month"`
	CarrierID  string `json:"carrier_id"`
	FlightNum  int    `json:"flight_num"`
	OriginCity string `json:"origin_city"`
	DestCity   string `json:"dest_city"`
	Duration   int    `json:"duration"`
	Capacity   int    `json:"capacity"`
	Price      int64  `json:"price"`
}

// String renders the flight in the line format the shell and the reservation
// listing both rely on. The trailing newline is part of the contract.
func (f Flight) String() string {
	return fmt.Sprintf("ID: %d Day: %d Carrier: %s Number: %d Origin: %s Dest: %s Duration: %d Capacity: %d Price: %d\n",
		f.FlightID, f.DayOfMonth, f.CarrierID, f.FlightNum, f.OriginCity, f.DestCity, f.Duration, f.Capacity, f.Price)
}

// Itinerary is one bookable unit of 1 or 2 same-day legs. Itineraries are
// session-scoped: Index is only meaningful against the search that produced
// it, and any new search invalidates the whole slice.
type Itinerary struct {
	Index int      `json:"index"`
	Legs  []Flight `json:"legs"`
}

// TotalDuration is the summed duration of all legs in minutes.
func (it Itinerary) TotalDuration() int {
	total := 0
	for _, leg := range it.Legs {
		total += leg.Duration
	}
	return total
}

// TotalPrice is the summed price of all legs.
func (it Itinerary) TotalPrice() int64 {
	var total int64
	for _, leg := range it.Legs {
		total += leg.Price
	}
	return total
}

// DayOfMonth is the travel day shared by every leg.
func (it Itinerary) DayOfMonth() int {
	if len(it.Legs) == 0 {
		return 0
	}
	return it.Legs[0].DayOfMonth
}

// String renders "Itinerary N: M flight(s), D minutes" followed by one line
// per leg.
func (it Itinerary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Itinerary %d: %d flight(s), %d minutes\n", it.Index, len(it.Legs), it.TotalDuration())
	for _, leg := range it.Legs {
		sb.WriteString(leg.String())
	}
	return sb.String()
}

// FormatItineraries renders a full search result block in index order.
func FormatItineraries(its []Itinerary) string {
	var sb strings.Builder
	for _, it := range its {
		sb.WriteString(it.String())
	}
	return sb.String()
}

// Reservation is the persisted booking record. Ids come from a store-side
// sequence and are never reused, even after cancellation.
type Reservation struct {
	ReservationID int64  `json:"reservation_id"`
	Username      string `json:"username"`
	DayOfMonth    int    `json:"day_of_month"`
	FlightID      int64  `json:"flight_id"`
	FlightID2     *int64 `json:"flight_id2,omitempty"`
	Price         int64  `json:"price"`
	Paid          bool   `json:"paid"`
	Canceled      bool   `json:"canceled"`
}

// ReservationView joins a reservation with the flight attributes of its legs
// for the user-facing listing.
type ReservationView struct {
	ReservationID int64    `json:"reservation_id"`
	Paid          bool     `json:"paid"`
	Legs          []Flight `json:"legs"`
}

// String renders "Reservation N paid: true/false:" followed by one line per
// leg, matching the listing contract.
func (rv ReservationView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Reservation %d paid: %t:\n", rv.ReservationID, rv.Paid)
	for _, leg := range rv.Legs {
		sb.WriteString(leg.String())
	}
	return sb.String()
}

// FormatReservations renders the full listing for a user.
func FormatReservations(views []ReservationView) string {
	var sb strings.Builder
	for _, rv := range views {
		sb.WriteString(rv.String())
	}
	return sb.String()
}

// User is an account row. Balance never goes negative: payment only debits
// after checking balance inside the same transaction.
type User struct {
	Username string `json:"username"`
	Password string `json:"-"`
	Balance  int64  `json:"balance"`
}

// AssembleItineraries merges a one-hop block and a two-hop block into the
// final search result: one-hop itineraries first, two-hop after, capped at n,
// with indices assigned 0..count-1 in that order. Each block is expected to
// arrive already sorted by total duration then first-leg id, which is how the
// store queries order them.
func AssembleItineraries(oneHop []Itinerary, twoHop []Itinerary, n int) []Itinerary {
	if n <= 0 {
		return nil
	}
	merged := make([]Itinerary, 0, n)
	merged = append(merged, oneHop...)
	if len(merged) > n {
		merged = merged[:n]
	}
	for _, it := range twoHop {
		if len(merged) >= n {
			break
		}
		merged = append(merged, it)
	}
	for i := range merged {
		merged[i].Index = i
	}
	return merged
}
