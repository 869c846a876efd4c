package routes

import (
	"log/slog"
	"net/http"

	"github.com/campuskit/registry/internal/auth"
	"github.com/campuskit/registry/internal/config"
	"github.com/campuskit/registry/internal/database"
	"github.com/campuskit/registry/internal/handlers"
	custommiddleware "github.com/campuskit/registry/internal/middleware"
	pkghttp "github.com/campuskit/registry/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers bundles the HTTP handlers wired into the router
type Handlers struct {
	Auth     *handlers.AuthHandler
	Reset    *handlers.ResetHandler
	Accounts *handlers.AccountHandler
}

// NewRouter builds the chi router. Health and metrics stay open; everything
// under /v1 requires a valid service token.
func NewRouter(cfg *config.Config, db *database.DB, h Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.SecureLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(custommiddleware.SecurityHeaders())
	r.Use(custommiddleware.CORS(custommiddleware.DefaultCORSConfig(cfg.Server.AllowedOrigins)))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := db.HealthCheck(req.Context()); err != nil {
			pkghttp.WriteError(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.RequireServiceToken(cfg.Core.ServiceTokenSecret))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/verify", h.Auth.Verify)
			r.Post("/verify/resend", h.Auth.Resend)
		})

		r.Route("/reset", func(r chi.Router) {
			r.Post("/password", h.Reset.RequestPasswordReset)
			r.Post("/password/confirm", h.Reset.ConfirmPasswordReset)
			r.Post("/email", h.Reset.RequestEmailReset)
			r.Post("/email/confirm", h.Reset.ConfirmEmailReset)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.Accounts.CreateAdmin)
			r.Get("/{accountID}", h.Accounts.Get)
			r.Patch("/{accountID}", h.Accounts.Update)
			r.Delete("/{accountID}", h.Accounts.Delete)
		})
	})

	return r
}
