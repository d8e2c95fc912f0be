package api

import (
	"net/http"

	"github.com/dom/quiz-engine/internal/api/handlers"
	"github.com/dom/quiz-engine/internal/api/middleware"
	"github.com/dom/quiz-engine/internal/service"
	"github.com/dom/quiz-engine/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(services *service.Services, hub *websocket.Hub) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	gameHandler := handlers.NewGameHandler(services.Games)
	packageHandler := handlers.NewPackageHandler(services.Packages)
	wsHandler := handlers.NewWebSocketHandler(hub, services.Tokens)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(services.Tokens))

			r.Route("/games", func(r chi.Router) {
				r.Post("/", gameHandler.Create)
				r.Get("/", gameHandler.List)
				r.Get("/history", gameHandler.History)
				r.Get("/{id}", gameHandler.Get)
			})

			r.Route("/packages", func(r chi.Router) {
				r.Post("/", packageHandler.Create)
				r.Get("/{id}", packageHandler.Get)
			})
		})

		// Token travels in the query string for the upgrade
		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
