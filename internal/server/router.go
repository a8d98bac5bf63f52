// Package server wires the HTTP surface: routing, auth middleware, request
// observability, and graceful shutdown.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	authhandler "company-portal/backend/internal/auth/handler"
	healthhandler "company-portal/backend/internal/health/handler"
	membershipdomain "company-portal/backend/internal/membership/domain"
	"company-portal/backend/internal/platform/rbac"
	"company-portal/backend/internal/security"
	"company-portal/backend/internal/server/middleware"
)

// Deps holds the handlers and shared pieces the router mounts.
type Deps struct {
	Auth   *authhandler.AuthHandler
	Health *healthhandler.HealthHandler
	Codec  *security.TokenCodec
	Logger *zap.Logger
}

// NewRouter builds the chi router.
//
// Route → handler mapping:
//   - POST /api/v1/auth/signup/company → auth handler (public)
//   - POST /api/v1/auth/login          → auth handler (public)
//   - POST /api/v1/auth/refresh        → auth handler (cookie-authenticated)
//   - POST /api/v1/auth/logout         → auth handler (cookie, always 200)
//   - GET  /api/v1/auth/me             → auth handler (bearer)
//   - GET  /api/v1/auth/admin-check    → auth handler (bearer + company_admin)
//   - GET  /api/v1/health              → health handler (public)
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(observe(deps.Logger))
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", deps.Health.Check)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup/company", deps.Auth.SignupCompany)
			r.Post("/login", deps.Auth.Login)
			r.Post("/refresh", deps.Auth.Refresh)
			r.Post("/logout", deps.Auth.Logout)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(deps.Codec, deps.Logger))
				r.Get("/me", deps.Auth.Me)
				r.With(rbac.RequireRoles(deps.Logger, membershipdomain.RoleCompanyAdmin)).
					Get("/admin-check", deps.Auth.AdminCheck)
			})
		})
	})

	return r
}
