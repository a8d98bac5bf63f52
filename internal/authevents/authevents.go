// Package authevents publishes authentication lifecycle events (signup,
// login, refresh, logout) to a Kafka topic for downstream consumers. Emission
// is best-effort: a broker outage must never fail an auth request.
package authevents

import (
	"context"
	"time"
)

// Event types published to the auth events topic.
const (
	TypeCompanySignedUp = "auth.company_signed_up"
	TypeUserLoggedIn    = "auth.user_logged_in"
	TypeSessionRotated  = "auth.session_rotated"
	TypeUserLoggedOut   = "auth.user_logged_out"
)

// Event is the JSON payload written per auth lifecycle transition.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId,omitempty"`
	CompanyID  string    `json:"companyId,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	IPAddress  string    `json:"ipAddress,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Emitter emits auth events. Callers use it best-effort: log and ignore
// errors.
type Emitter interface {
	// Emit sends a single event. Implementations may block briefly; use
	// EmitAsync from request handlers.
	Emit(ctx context.Context, event Event) error
	// Close releases resources. Safe to call if already closed.
	Close() error
}
