// Package session holds per-connection state: the authenticated user and the
// itinerary list returned by that connection's most recent search. One
// Session is created per shell run or per HTTP session token; sessions share
// nothing with each other.
package session

import (
	"errors"
	"sync"

	"github.com/punchamoorthee/flightops/internal/models"
)

var (
	// ErrAlreadyLoggedIn is returned by Login when the session is already
	// bound to a user. Re-authentication on a live session is rejected
	// rather than attempted.
	ErrAlreadyLoggedIn = errors.New("user already logged in")

	// ErrNotLoggedIn gates every mutating operation.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrNoSuchItinerary is returned for an index outside the most recent
	// search result.
	ErrNoSuchItinerary = errors.New("no such itinerary")
)

// Session is safe for concurrent use; the HTTP layer may serve requests for
// the same token in parallel.
type Session struct {
	mu          sync.Mutex
	username    string
	loggedIn    bool
	itineraries []models.Itinerary
}

func New() *Session {
	return &Session{}
}

// Bind marks the session as authenticated for username and drops any search
// results carried over from before login. It fails if the session already
// has an identity; credential checking happens in the store before Bind is
// called.
func (s *Session) Bind(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggedIn {
		return ErrAlreadyLoggedIn
	}
	s.loggedIn = true
	s.username = username
	s.itineraries = nil
	return nil
}

// Username returns the bound identity, or ErrNotLoggedIn.
func (s *Session) Username() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loggedIn {
		return "", ErrNotLoggedIn
	}
	return s.username, nil
}

// LoggedIn reports whether the session is authenticated.
func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// SetResults replaces the session's search results. Any previously returned
// itinerary indices are invalid from this point on.
func (s *Session) SetResults(its []models.Itinerary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itineraries = its
}

// ResultCount returns the size of the most recent search result.
func (s *Session) ResultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.itineraries)
}

// Itinerary returns the itinerary at index against the most recent search
// result, or ErrNoSuchItinerary for a stale or out-of-range index.
func (s *Session) Itinerary(index int) (models.Itinerary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.itineraries) {
		return models.Itinerary{}, ErrNoSuchItinerary
	}
	return s.itineraries[index], nil
}
