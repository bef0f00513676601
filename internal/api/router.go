package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires all endpoints. Shared between cmd/api and the handler
// tests so both exercise the same routes.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
	apiV1.HandleFunc("/sessions", h.CreateSession).Methods(http.MethodPost)
	apiV1.HandleFunc("/flights/search", h.Search).Methods(http.MethodGet)
	apiV1.HandleFunc("/bookings", h.Book).Methods(http.MethodPost)
	apiV1.HandleFunc("/reservations", h.Reservations).Methods(http.MethodGet)
	apiV1.HandleFunc("/reservations/{id}", h.Cancel).Methods(http.MethodDelete)
	apiV1.HandleFunc("/reservations/{id}/payment", h.Pay).Methods(http.MethodPost)
	apiV1.HandleFunc("/admin/reset", h.Reset).Methods(http.MethodPost)
	return r
}
