// Package api exposes every engine operation over HTTP. Authentication is a
// session token issued at login; each token maps to one session object, so
// concurrent clients never share identity or search results.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/punchamoorthee/flightops/internal/session"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flightops_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flightops_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

// Operations is the engine surface the handlers dispatch to.
type Operations interface {
	Login(ctx context.Context, sess *session.Session, username, password string) string
	CreateCustomer(ctx context.Context, username, password string, initAmount int64) string
	Search(ctx context.Context, sess *session.Session, origin, dest string, directOnly bool, day, n int) string
	Book(ctx context.Context, sess *session.Session, index int) string
	Reservations(ctx context.Context, sess *session.Session) string
	Cancel(ctx context.Context, sess *session.Session, reservationID int64) string
	Pay(ctx context.Context, sess *session.Session, reservationID int64) string
	Reset(ctx context.Context) error
}

type Handler struct {
	engine Operations

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewHandler(engine Operations) *Handler {
	return &Handler{
		engine:   engine,
		sessions: make(map[string]*session.Session),
	}
}

type createUserRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	InitAmount int64  `json:"init_amount"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type bookRequest struct {
	Itinerary int `json:"itinerary"`
}

// CreateUser handles POST /users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/users"))
	defer timer.ObserveDuration()

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/users")
		return
	}
	msg := h.engine.CreateCustomer(r.Context(), req.Username, req.Password, req.InitAmount)
	h.respondMessage(w, msg, "POST", "/users")
}

// CreateSession handles POST /sessions: it creates a fresh session, attempts
// login, and returns a token only when authentication succeeded.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/sessions"))
	defer timer.ObserveDuration()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/sessions")
		return
	}

	sess := session.New()
	msg := h.engine.Login(r.Context(), sess, req.Username, req.Password)
	if !sess.LoggedIn() {
		h.respondJSON(w, http.StatusUnauthorized, map[string]string{"message": msg}, "POST", "/sessions")
		return
	}

	token := uuid.NewString()
	h.mu.Lock()
	h.sessions[token] = sess
	h.mu.Unlock()

	h.respondJSON(w, http.StatusCreated, map[string]string{"token": token, "message": msg}, "POST", "/sessions")
}

// Search handles GET /flights/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", "/flights/search"))
	defer timer.ObserveDuration()

	sess, ok := h.sessionFor(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unknown session token", "GET", "/flights/search")
		return
	}

	q := r.URL.Query()
	day, err := strconv.Atoi(q.Get("day"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid day", "GET", "/flights/search")
		return
	}
	count, err := strconv.Atoi(q.Get("count"))
	if err != nil || count <= 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid result count", "GET", "/flights/search")
		return
	}
	direct := q.Get("direct") == "true"

	msg := h.engine.Search(r.Context(), sess, q.Get("origin"), q.Get("dest"), direct, day, count)
	h.respondMessage(w, msg, "GET", "/flights/search")
}

// Book handles POST /bookings.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/bookings"))
	defer timer.ObserveDuration()

	sess, ok := h.sessionFor(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unknown session token", "POST", "/bookings")
		return
	}
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", "/bookings")
		return
	}
	msg := h.engine.Book(r.Context(), sess, req.Itinerary)
	h.respondMessage(w, msg, "POST", "/bookings")
}

// Reservations handles GET /reservations.
func (h *Handler) Reservations(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", "/reservations"))
	defer timer.ObserveDuration()

	sess, ok := h.sessionFor(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unknown session token", "GET", "/reservations")
		return
	}
	msg := h.engine.Reservations(r.Context(), sess)
	h.respondMessage(w, msg, "GET", "/reservations")
}

// Cancel handles DELETE /reservations/{id}.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("DELETE", "/reservations/{id}"))
	defer timer.ObserveDuration()

	sess, ok := h.sessionFor(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unknown session token", "DELETE", "/reservations/{id}")
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid reservation id", "DELETE", "/reservations/{id}")
		return
	}
	msg := h.engine.Cancel(r.Context(), sess, id)
	h.respondMessage(w, msg, "DELETE", "/reservations/{id}")
}

// Pay handles POST /reservations/{id}/payment.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/reservations/{id}/payment"))
	defer timer.ObserveDuration()

	sess, ok := h.sessionFor(r)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unknown session token", "POST", "/reservations/{id}/payment")
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid reservation id", "POST", "/reservations/{id}/payment")
		return
	}
	msg := h.engine.Pay(r.Context(), sess, id)
	h.respondMessage(w, msg, "POST", "/reservations/{id}/payment")
}

// Reset handles POST /admin/reset. It also drops every issued session token,
// since the accounts they were bound to no longer exist.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Reset(r.Context()); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Reset failed", "POST", "/admin/reset")
		return
	}
	h.mu.Lock()
	h.sessions = make(map[string]*session.Session)
	h.mu.Unlock()
	httpRequestsTotal.WithLabelValues("POST", "/admin/reset", "204").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionFor(r *http.Request) (*session.Session, bool) {
	token := r.Header.Get("X-Session-Token")
	if token == "" {
		return nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	sess, ok := h.sessions[token]
	return sess, ok
}

func (h *Handler) respondMessage(w http.ResponseWriter, msg, method, endpoint string) {
	h.respondJSON(w, http.StatusOK, map[string]string{"message": msg}, method, endpoint)
}

func (h *Handler) respondError(w http.ResponseWriter, code int, message, method, endpoint string) {
	h.respondJSON(w, code, map[string]string{"error": message}, method, endpoint)
}

func (h *Handler) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
