// Package ledger records the original seat capacity of every flight touched
// by a booking during the lifetime of a run. It exists only so the
// administrative reset can restore the catalog to its pre-run state; normal
// cancellation never reads it and instead re-reads the live count.
package ledger

import "sync"

// Entry maps a flight id to its capacity before the first decrement.
type Entry struct {
	FlightID int64
	Capacity int
}

// CapacityLedger is an append-only, first-touch snapshot of original
// capacities. The HTTP server shares one ledger across all sessions, so
// access is mutex-guarded.
type CapacityLedger struct {
	mu        sync.Mutex
	snapshots map[int64]int
}

func New() *CapacityLedger {
	return &CapacityLedger{snapshots: make(map[int64]int)}
}

// Record stores capacity for fid unless a snapshot already exists. Repeated
// bookings of the same flight never overwrite the first snapshot. Returns
// true when a new snapshot was taken.
func (l *CapacityLedger) Record(fid int64, capacity int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.snapshots[fid]; ok {
		return false
	}
	l.snapshots[fid] = capacity
	return true
}

// Contains reports whether fid has been snapshotted.
func (l *CapacityLedger) Contains(fid int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.snapshots[fid]
	return ok
}

// Entries returns a copy of all snapshots.
func (l *CapacityLedger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make([]Entry, 0, len(l.snapshots))
	for fid, capacity := range l.snapshots {
		entries = append(entries, Entry{FlightID: fid, Capacity: capacity})
	}
	return entries
}

// Len returns the number of snapshotted flights.
func (l *CapacityLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.snapshots)
}

// Clear discards all snapshots. Called by the reset path after capacities
// have been restored.
func (l *CapacityLedger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapshots = make(map[int64]int)
}
