// Package handler serves the health endpoint for load balancers and CI.
package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"company-portal/backend/internal/apperror"
	"company-portal/backend/internal/server/respond"
)

// Pinger reports storage reachability (e.g. *pgxpool.Pool).
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler answers GET /health.
type HealthHandler struct {
	db     Pinger
	logger *zap.Logger
}

// NewHealthHandler returns a HealthHandler. db may be nil to skip the
// database check.
func NewHealthHandler(db Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// Check reports 200 when the service and its database are reachable, 503
// otherwise.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	database := "skipped"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			if h.logger != nil {
				h.logger.Warn("health check database ping failed", zap.Error(err))
			}
			respond.Error(w, h.logger, apperror.New(http.StatusServiceUnavailable, "Database unreachable"))
			return
		}
		database = "up"
	}
	respond.JSON(w, http.StatusOK, "Service healthy", map[string]string{
		"status":   "ok",
		"database": database,
	})
}
