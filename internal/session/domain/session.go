package domain

import "time"

// RefreshSession is one logical session. Its ID doubles as the sessionId claim
// embedded in both tokens and is stable across the whole rotation lifetime:
// rotation mutates TokenHash/ExpiresAt in place, it never creates a new row.
// TokenHash holds a SHA-256 of the current refresh token; the raw token is
// never stored.
type RefreshSession struct {
	ID         string
	UserID     string
	CompanyID  string
	TokenHash  string
	ExpiresAt  time.Time
	RevokedAt  *time.Time
	LastUsedAt *time.Time
	UserAgent  string
	IPAddress  string
	CreatedAt  time.Time
}

// Active reports whether the session is usable at the given instant: not
// revoked and not expired.
func (s *RefreshSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}
