package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kindredapp/companion/backend/internal/auth"
	companionHandler "github.com/kindredapp/companion/backend/internal/handler/companion"
	"github.com/kindredapp/companion/backend/internal/middleware"
	companionService "github.com/kindredapp/companion/backend/internal/service/companion"
	"github.com/kindredapp/companion/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(authenticator auth.Authenticator, companionSvc *companionService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		api.Group(func(authed chi.Router) {
			authed.Use(middleware.RequireSession(authenticator))
			companionHandler.New(companionSvc).RegisterRoutes(authed)
		})
	})

	return r
}
