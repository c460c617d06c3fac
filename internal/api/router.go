package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/medtrack/medtrack-server/internal/api/handlers"
	"github.com/medtrack/medtrack-server/internal/api/middleware"
	"github.com/medtrack/medtrack-server/internal/config"
	"github.com/medtrack/medtrack-server/internal/service"
)

func NewRouter(services *service.Services, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handlers.NewAuthHandler(services.Auth, cfg)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Public: credential endpoints. Logout stays public because it
			// must succeed for stale cookies too.
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Post("/demo", authHandler.Demo)

			// The session probe sits behind the validator so an unresolvable
			// cookie yields the contract's 401 shape.
			r.Group(func(r chi.Router) {
				r.Use(middleware.Session(services.Auth, cfg))
				r.Get("/session", authHandler.SessionStatus)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(services.Auth, cfg))

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", authHandler.Me)
			})
		})
	})

	return r
}
