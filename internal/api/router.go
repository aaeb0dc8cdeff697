package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/config", func(r chi.Router) {
			r.Get("/", s.handleConfigView)
			r.Get("/validation", s.handleConfigValidation)
		})

		r.Route("/tokens", func(r chi.Router) {
			r.Post("/", s.handleTokenEncode)
			r.Post("/decode", s.handleTokenDecode)
		})

		r.Get("/audit", s.handleAuditList)
	})

	return r
}
