package main

import (
	"log"
	"net/http"

	"github.com/punchamoorthee/flightops/internal/api"
	"github.com/punchamoorthee/flightops/internal/config"
	"github.com/punchamoorthee/flightops/internal/engine"
	"github.com/punchamoorthee/flightops/internal/ledger"
	"github.com/punchamoorthee/flightops/internal/service"
	"github.com/punchamoorthee/flightops/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	st, err := store.NewStore(cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer st.Close()

	// Initialize Layers
	capacityLedger := ledger.New()
	booking := service.NewBookingService(st.Db, capacityLedger)
	eng := engine.New(st, booking, capacityLedger)
	handler := api.NewHandler(eng)

	r := api.NewRouter(handler)

	log.Printf("Server starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
