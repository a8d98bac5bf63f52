// Package repository is the credential store: companies, users, memberships,
// and refresh sessions behind one transactional interface.
package repository

import (
	"context"
	"errors"
	"time"

	companydomain "company-portal/backend/internal/company/domain"
	membershipdomain "company-portal/backend/internal/membership/domain"
	sessiondomain "company-portal/backend/internal/session/domain"
	userdomain "company-portal/backend/internal/user/domain"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint
// (company slug or normalized email). The service layer translates it to a
// Conflict; it exists so a signup race that slips past the pre-checks still
// surfaces as a conflict rather than a raw storage error.
var ErrDuplicate = errors.New("duplicate record")

// Store is the credential store contract. Lookups return (nil, nil) when no
// row matches; errors are reserved for storage failures. Every operation may
// run standalone or inside a transaction opened with WithTx.
type Store interface {
	// WithTx runs fn against a transactional view of the store. fn returning
	// an error rolls the transaction back; WithTx may nest.
	WithTx(ctx context.Context, fn func(Store) error) error

	FindCompanyBySlug(ctx context.Context, slug string) (*companydomain.Company, error)
	FindUserByEmail(ctx context.Context, emailNormalized string) (*userdomain.User, error)
	// CreateSignup inserts company, user, and membership as one signup unit.
	// Callers wrap it in WithTx so the three inserts are atomic.
	CreateSignup(ctx context.Context, s *Signup) error
	// FindLoginProfile joins user and membership by normalized email. It does
	// not filter on activity flags; the caller decides between credential
	// failure and account-not-active.
	FindLoginProfile(ctx context.Context, emailNormalized string) (*LoginProfile, error)
	CreateRefreshSession(ctx context.Context, s *sessiondomain.RefreshSession) error
	// FindActiveRefreshSession returns the session only when the stored hash
	// matches tokenHash and the session is unrevoked and unexpired at now.
	FindActiveRefreshSession(ctx context.Context, sessionID, tokenHash string, now time.Time) (*sessiondomain.RefreshSession, error)
	// RotateRefreshSession conditionally replaces the session's token hash,
	// expiry, and request metadata, only while the row still holds
	// CurrentTokenHash and is unrevoked. Returns false when the condition no
	// longer holds — the caller lost the rotation race or presented a stale
	// token.
	RotateRefreshSession(ctx context.Context, p RotateParams) (bool, error)
	// RevokeRefreshSession marks the matching active session revoked. Returns
	// false when no active session matched.
	RevokeRefreshSession(ctx context.Context, sessionID, tokenHash string, now time.Time) (bool, error)
	// FindUserInCompany joins user and membership for one company, without
	// filtering on activity flags.
	FindUserInCompany(ctx context.Context, userID, companyID string) (*Profile, error)
}

// Signup is the atomic company+user+membership insert unit.
type Signup struct {
	Company    companydomain.Company
	User       userdomain.User
	Membership membershipdomain.Membership
}

// LoginProfile is the user⋈membership row used to authenticate a login.
type LoginProfile struct {
	UserID           string
	FullName         string
	Email            string
	PasswordHash     string
	IsActive         bool
	CompanyID        string
	Role             membershipdomain.Role
	MembershipStatus membershipdomain.Status
}

// Profile is the user⋈membership snapshot returned to callers.
type Profile struct {
	UserID           string
	FullName         string
	Email            string
	IsActive         bool
	CompanyID        string
	Role             membershipdomain.Role
	MembershipStatus membershipdomain.Status
}

// RotateParams carries the conditional-update inputs for refresh rotation.
type RotateParams struct {
	SessionID        string
	CurrentTokenHash string
	NextTokenHash    string
	ExpiresAt        time.Time
	Now              time.Time
	UserAgent        string
	IPAddress        string
}
