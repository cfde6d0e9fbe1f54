package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		// Users
		r.Route("/users", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/me", s.HandleGetCurrentUser)
		})

		// Vehicles
		r.Route("/vehicles", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListVehicles)
			r.Route("/{vin}", func(r chi.Router) {
				r.Get("/", s.HandleGetVehicle)
				r.Get("/status", s.HandleGetVehicleStatus)
				r.Get("/position", s.HandleGetVehiclePosition)
				r.Get("/telemetry", s.HandleListVehicleTelemetry)

				// Command dispatch
				r.Post("/commands", s.HandleSendCommand)
				r.Get("/commands", s.HandleListVehicleCommands)
			})
		})

		// Commands
		r.Route("/commands", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListCommands)
			r.Get("/{id}", s.HandleGetCommand)
		})

		// Events
		r.Route("/events", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListEvents)
		})
	})
}
