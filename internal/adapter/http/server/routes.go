package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Temutjin2k/ride-hail-driver/docs/session"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	// System Health
	a.mux.HandleFunc("GET /health", a.routes.health.HealthCheck)

	a.setupSessionRoutes()
	a.setupSwaggerRoutes()
	a.setupMetricsRoute()
}

func (a *API) setupSessionRoutes() {
	s := a.routes.session

	a.mux.HandleFunc("GET /session", s.GetSnapshot)                             // Current session snapshot
	a.mux.HandleFunc("POST /session/online", s.GoOnline)                        // Driver goes online
	a.mux.HandleFunc("POST /session/offline", s.GoOffline)                      // Driver goes offline
	a.mux.HandleFunc("POST /session/offline-after-ride", s.SetOfflineAfterRide) // Go offline once the ride ends
	a.mux.HandleFunc("POST /session/resync", s.Resync)                          // Ask the backend for its view of the session
	a.mux.HandleFunc("POST /offers/{ride_id}/accept", s.AcceptOffer)            // Accept the held offer
	a.mux.HandleFunc("POST /offers/{ride_id}/decline", s.DeclineOffer)          // Decline the held offer
	a.mux.HandleFunc("POST /ride/arrived", s.ArrivedAtPickup)                   // Arrived at pickup
	a.mux.HandleFunc("POST /ride/start", s.StartRide)                           // Passenger on board
	a.mux.HandleFunc("POST /ride/complete", s.CompleteRide)                     // Ride finished
	a.mux.HandleFunc("POST /ride/cancel", s.CancelRide)                         // Driver cancels
	a.mux.HandleFunc("PUT /location", a.routes.location.UpdateLocation)         // Device location fix
	a.mux.HandleFunc("GET /events", a.routes.events.Stream)                     // Server-Sent Events
}

// setupSwaggerRoutes serves the swagger UI for the session instance.
func (a *API) setupSwaggerRoutes() {
	swaggerURL := httpSwagger.InstanceName(session.SwaggerInfo.InstanceName())
	a.mux.HandleFunc("/swagger/", httpSwagger.Handler(swaggerURL))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func (a *API) setupMetricsRoute() {
	a.mux.Handle("/metrics", promhttp.Handler())
}
