package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/health", s.health)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.listSessions)
		r.Post("/", s.createSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Post("/message", s.sendMessage)
			r.Get("/summary", s.getSummary)

			r.Get("/preferences", s.getPreferences)
			r.Put("/preferences", s.updatePreference)

			r.Route("/reminder", func(r chi.Router) {
				r.Get("/", s.listReminders)
				r.Post("/", s.addReminder)
				r.Patch("/{identifier}", s.updateReminder)
				r.Post("/{identifier}/complete", s.completeReminder)
				r.Delete("/{identifier}", s.deleteReminder)
			})
		})
	})

	r.Get("/memory", s.recallMemory)
}
