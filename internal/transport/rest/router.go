package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/academy-portal/internal"
	"github.com/frahmantamala/academy-portal/internal/auth"
	"github.com/frahmantamala/academy-portal/internal/events"
	"github.com/frahmantamala/academy-portal/internal/guard"
	"github.com/frahmantamala/academy-portal/internal/session"
	"github.com/frahmantamala/academy-portal/internal/transport/middleware"
	"github.com/frahmantamala/academy-portal/internal/transport/swagger"
)

// PermissionDefineSession unlocks redefining the active period.
const PermissionDefineSession = "SESSION_DEFINE"

func RegisterAllRoutes(
	router *chi.Mux,
	cfg *internal.Config,
	storage Pinger,
	store *session.Store,
	authHandler *auth.Handler,
	sessionHandler *session.Handler,
	bus *events.EventBus,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(storage)
	navigationHandler := NewNavigationHandler(store)

	routes := guard.DefaultRoutes()
	publicGuard := guard.NewPublic(store, routes)
	protectedGuard := guard.NewProtected(store, "", routes, bus)
	defineSessionGuard := guard.NewProtected(store, PermissionDefineSession, routes, bus)

	// Apply global middleware
	router.Use(middleware.CORSWithOrigins(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match the OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Login is public-only: a signed-in operator is sent to the
		// dashboard instead of seeing the login flow again.
		r.Group(func(pr chi.Router) {
			pr.Use(guard.Middleware(publicGuard))
			pr.Post("/auth/login", authHandler.Login)
		})

		// Routes that require an authenticated operator
		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)
			pr.Use(guard.Middleware(protectedGuard))

			pr.Post("/auth/logout", authHandler.Logout)
			pr.Get("/users/me", authHandler.Me)
			pr.Get("/navigation", navigationHandler.GetNavigation)
			pr.Get("/session", sessionHandler.GetSession)

			// Redefining the period needs its own permission
			pr.Group(func(sr chi.Router) {
				sr.Use(guard.Middleware(defineSessionGuard))
				sr.Put("/session", sessionHandler.DefineSession)
				sr.Delete("/session", sessionHandler.ClearSession)
			})
		})
	})
}
