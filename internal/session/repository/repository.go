// Package repository holds the maintenance-side store for refresh sessions,
// used by the cleanup worker. The request path uses the auth repository; this
// one only reaps rows that can never authenticate again.
package repository

import (
	"context"
	"time"
)

// Cleaner removes refresh sessions that are past use.
type Cleaner interface {
	// DeleteExpired deletes sessions whose expiry has passed, and revoked
	// sessions once they have been revoked for at least retention (kept that
	// long for audit trails). Returns the number of rows removed.
	DeleteExpired(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}
