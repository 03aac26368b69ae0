package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/handlers"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/ws"
)

// SetupRouter creates and configures the HTTP router. hub may be nil to
// disable the availability WebSocket.
func SetupRouter(h *handlers.Handler, hub *ws.Hub) *mux.Router {
	r := mux.NewRouter()

	// CORS middleware
	r.Use(corsMiddleware)

	// API routes
	api := r.PathPrefix("/api").Subrouter()

	// Sessions
	api.HandleFunc("/login", h.Login).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/logout", h.Logout).Methods(http.MethodPost, http.MethodOptions)

	// Flights
	api.HandleFunc("/flights/{fid}", h.GetFlight).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/search", h.Search).Methods(http.MethodGet, http.MethodOptions)

	// Bookings
	api.HandleFunc("/bookings", h.Book).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/reservations", h.ListReservations).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/reservations/{index}", h.CancelReservation).Methods(http.MethodDelete, http.MethodOptions)

	// WebSocket for real-time availability
	if hub != nil {
		api.HandleFunc("/flights/{fid}/ws", ws.HandleWebSocket(hub))
	}

	// Health check
	r.HandleFunc("/health", healthCheck).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+handlers.SessionTokenHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
