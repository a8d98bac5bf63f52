package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"company-portal/backend/internal/apperror"
	"company-portal/backend/internal/security"
	"company-portal/backend/internal/server/respond"
)

const bearerPrefix = "bearer "

// RequireAuth verifies the Bearer access token from the Authorization header
// and puts the resulting Identity in the request context. Missing, malformed,
// and expired tokens all yield the same 401.
func RequireAuth(codec *security.TokenCodec, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r.Header.Get("Authorization"))
			if token == "" {
				respond.Error(w, logger, apperror.Unauthorized("Missing or invalid authorization header"))
				return
			}

			claims, err := codec.VerifyAccess(token)
			if err != nil {
				respond.Error(w, logger, apperror.Unauthorized("Missing or invalid authorization header"))
				return
			}

			ctx := WithIdentity(r.Context(), Identity{
				UserID:    claims.Subject,
				CompanyID: claims.CompanyID,
				Role:      claims.Role,
				SessionID: claims.SessionID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer returns the token from an Authorization header value, or ""
// if the value is missing or not a Bearer credential.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
