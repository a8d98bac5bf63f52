// Package rbac gates handlers on the role carried by the verified access
// token. The role is trusted as signed; demotion takes effect when the access
// token expires, not before.
package rbac

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"company-portal/backend/internal/apperror"
	membershipdomain "company-portal/backend/internal/membership/domain"
	"company-portal/backend/internal/server/middleware"
	"company-portal/backend/internal/server/respond"
)

// RequireRole ensures the caller is authenticated and holds one of the
// allowed roles. Returns the caller's identity on success, Unauthorized when
// no identity is in context, and Forbidden for an insufficient role.
func RequireRole(ctx context.Context, allowed ...membershipdomain.Role) (middleware.Identity, error) {
	id, ok := middleware.GetIdentity(ctx)
	if !ok {
		return middleware.Identity{}, apperror.Unauthorized("Unauthorized")
	}
	for _, role := range allowed {
		if id.Role == role {
			return id, nil
		}
	}
	return middleware.Identity{}, apperror.Forbidden("Forbidden")
}

// RequireRoles is the middleware form of RequireRole for route-level gating.
// It must run after RequireAuth.
func RequireRoles(logger *zap.Logger, allowed ...membershipdomain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := RequireRole(r.Context(), allowed...); err != nil {
				respond.Error(w, logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
