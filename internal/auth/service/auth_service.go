// Package service is the session manager: it orchestrates signup, login,
// refresh rotation, and logout over the credential store, password hasher,
// and token codec. It is the only component that touches refresh-session
// state.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"company-portal/backend/internal/apperror"
	"company-portal/backend/internal/auth/repository"
	membershipdomain "company-portal/backend/internal/membership/domain"
	"company-portal/backend/internal/security"
	sessiondomain "company-portal/backend/internal/session/domain"
)

const maxSlugLen = 80

// Meta carries request metadata persisted on refresh sessions.
type Meta struct {
	UserAgent string
	IPAddress string
}

// UserView is the user snapshot returned with every auth result.
type UserView struct {
	ID        string                `json:"id"`
	FullName  string                `json:"fullName"`
	Email     string                `json:"email"`
	CompanyID string                `json:"companyId"`
	Role      membershipdomain.Role `json:"role"`
}

// AuthResult holds the outcome of signup, login, and refresh.
type AuthResult struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             UserView
}

// SignupInput is the signup request payload after transport-level validation.
type SignupInput struct {
	CompanyName string
	CompanySlug string
	FullName    string
	Email       string
	Password    string
}

// AuthService implements the session lifecycle.
type AuthService struct {
	store  repository.Store
	hasher *security.Hasher
	codec  *security.TokenCodec

	// dummyHash is verified on the unknown-email login path so "no such
	// user" and "wrong password" stay indistinguishable by timing.
	dummyHash string
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(store repository.Store, hasher *security.Hasher, codec *security.TokenCodec) (*AuthService, error) {
	dummy, err := hasher.Hash("credential-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("hash dummy credential: %w", err)
	}
	return &AuthService{store: store, hasher: hasher, codec: codec, dummyHash: dummy}, nil
}

// SignupCompany creates a company, its admin user, and the linking membership
// atomically, then issues a session for the new admin. Slug and normalized
// email collisions surface as Conflict, including the race where a concurrent
// signup slips past the pre-checks and hits the unique constraint.
func (s *AuthService) SignupCompany(ctx context.Context, in SignupInput, meta Meta) (*AuthResult, error) {
	slug := in.CompanySlug
	if slug == "" {
		slug = Slugify(in.CompanyName)
	}
	if slug == "" {
		return nil, apperror.InvalidInput("Company slug is invalid")
	}
	emailNormalized := normalizeEmail(in.Email)

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	companyID, err := newID()
	if err != nil {
		return nil, err
	}
	userID, err := newID()
	if err != nil {
		return nil, err
	}
	membershipID, err := newID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	var result *AuthResult
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		existingCompany, err := tx.FindCompanyBySlug(ctx, slug)
		if err != nil {
			return fmt.Errorf("find company by slug: %w", err)
		}
		if existingCompany != nil {
			return apperror.Conflict("Company slug already exists")
		}

		existingUser, err := tx.FindUserByEmail(ctx, emailNormalized)
		if err != nil {
			return fmt.Errorf("find user by email: %w", err)
		}
		if existingUser != nil {
			return apperror.Conflict("Email already exists")
		}

		signup := repository.Signup{}
		signup.Company.ID = companyID
		signup.Company.Name = strings.TrimSpace(in.CompanyName)
		signup.Company.Slug = slug
		signup.Company.CreatedAt = now
		signup.User.ID = userID
		signup.User.Email = strings.TrimSpace(in.Email)
		signup.User.EmailNormalized = emailNormalized
		signup.User.PasswordHash = passwordHash
		signup.User.FullName = strings.TrimSpace(in.FullName)
		signup.User.IsActive = true
		signup.User.CreatedAt = now
		signup.Membership.ID = membershipID
		signup.Membership.CompanyID = companyID
		signup.Membership.UserID = userID
		signup.Membership.Role = membershipdomain.RoleCompanyAdmin
		signup.Membership.Status = membershipdomain.StatusActive
		signup.Membership.CreatedAt = now

		if err := tx.CreateSignup(ctx, &signup); err != nil {
			return err
		}

		result, err = s.issueSession(ctx, tx, userID, companyID, membershipdomain.RoleCompanyAdmin, meta)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.Conflict("Account data already exists")
		}
		return nil, err
	}
	return result, nil
}

// Login authenticates email/password and issues a new session. Unknown email
// and wrong password both yield InvalidCredentials with equalized hashing
// work; a correct password against a disabled user or membership yields
// AccountNotActive.
func (s *AuthService) Login(ctx context.Context, email, password string, meta Meta) (*AuthResult, error) {
	profile, err := s.store.FindLoginProfile(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find login profile: %w", err)
	}
	if profile == nil {
		_, _ = s.hasher.Verify(s.dummyHash, password)
		return nil, apperror.InvalidCredentials()
	}

	ok, err := s.hasher.Verify(profile.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, apperror.InvalidCredentials()
	}
	if !profile.IsActive || profile.MembershipStatus != membershipdomain.StatusActive {
		return nil, apperror.AccountNotActive()
	}

	var result *AuthResult
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		result, err = s.issueSession(ctx, tx, profile.UserID, profile.CompanyID, profile.Role, meta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Refresh rotates a refresh session. The (sessionId, tokenHash) lookup is the
// reuse-detection boundary: an already-rotated token no longer matches the
// stored hash and is rejected. The rotation itself is a conditional update;
// of two concurrent refreshes with the same token at most one wins, and the
// loser observes zero rows affected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta Meta) (*AuthResult, error) {
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, apperror.InvalidSession("Invalid refresh token")
	}
	currentHash := security.HashToken(refreshToken)
	now := time.Now().UTC()

	var result *AuthResult
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		sess, err := tx.FindActiveRefreshSession(ctx, claims.SessionID, currentHash, now)
		if err != nil {
			return fmt.Errorf("find refresh session: %w", err)
		}
		if sess == nil {
			return apperror.InvalidSession("Refresh session is invalid")
		}

		nextRefresh, err := s.codec.SignRefresh(claims.Subject, claims.CompanyID, claims.Role, claims.SessionID)
		if err != nil {
			return fmt.Errorf("sign refresh token: %w", err)
		}
		nextClaims, err := s.codec.VerifyRefresh(nextRefresh)
		if err != nil {
			return fmt.Errorf("decode refresh expiry: %w", err)
		}
		nextExpiresAt := nextClaims.ExpiresAt.Time

		rotated, err := tx.RotateRefreshSession(ctx, repository.RotateParams{
			SessionID:        claims.SessionID,
			CurrentTokenHash: currentHash,
			NextTokenHash:    security.HashToken(nextRefresh),
			ExpiresAt:        nextExpiresAt,
			Now:              now,
			UserAgent:        meta.UserAgent,
			IPAddress:        meta.IPAddress,
		})
		if err != nil {
			return fmt.Errorf("rotate refresh session: %w", err)
		}
		if !rotated {
			return apperror.InvalidSession("Refresh session rotation failed")
		}

		accessToken, err := s.codec.SignAccess(claims.Subject, claims.CompanyID, claims.Role, claims.SessionID)
		if err != nil {
			return fmt.Errorf("sign access token: %w", err)
		}

		profile, err := tx.FindUserInCompany(ctx, sess.UserID, sess.CompanyID)
		if err != nil {
			return fmt.Errorf("find user in company: %w", err)
		}
		if profile == nil || !profile.IsActive || profile.MembershipStatus != membershipdomain.StatusActive {
			return apperror.Unauthorized("User not found")
		}

		result = &AuthResult{
			AccessToken:      accessToken,
			RefreshToken:     nextRefresh,
			RefreshExpiresAt: nextExpiresAt,
			User:             viewOf(profile),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Logout revokes the session matching the refresh token. It is a no-op for a
// missing token and swallows decode and lookup failures: logging out must
// never fail the caller, even when the token is already invalid or revoked.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return
	}
	_, _ = s.store.RevokeRefreshSession(ctx, claims.SessionID, security.HashToken(refreshToken), time.Now().UTC())
}

// GetProfile returns the user's snapshot in the given company. A missing
// membership after a verified token is treated as expected post-issuance
// revocation (404), not a server fault.
func (s *AuthService) GetProfile(ctx context.Context, userID, companyID string) (*UserView, error) {
	profile, err := s.store.FindUserInCompany(ctx, userID, companyID)
	if err != nil {
		return nil, fmt.Errorf("find user in company: %w", err)
	}
	if profile == nil || !profile.IsActive {
		return nil, apperror.NotFound("User not found")
	}
	if profile.MembershipStatus != membershipdomain.StatusActive {
		return nil, apperror.Forbidden("Membership is not active")
	}
	v := viewOf(profile)
	return &v, nil
}

// issueSession creates a new refresh session and signs both tokens for it.
// The stored expiry is decoded from the refresh token's own exp claim so the
// row always matches what the token asserts. The user snapshot is re-fetched
// on the same transaction so a concurrently disabled account cannot appear
// valid in the response.
func (s *AuthService) issueSession(ctx context.Context, tx repository.Store, userID, companyID string, role membershipdomain.Role, meta Meta) (*AuthResult, error) {
	sessionID, err := newID()
	if err != nil {
		return nil, err
	}

	accessToken, err := s.codec.SignAccess(userID, companyID, role, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, err := s.codec.SignRefresh(userID, companyID, role, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	refreshClaims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("decode refresh expiry: %w", err)
	}
	refreshExpiresAt := refreshClaims.ExpiresAt.Time

	err = tx.CreateRefreshSession(ctx, &sessiondomain.RefreshSession{
		ID:        sessionID,
		UserID:    userID,
		CompanyID: companyID,
		TokenHash: security.HashToken(refreshToken),
		ExpiresAt: refreshExpiresAt,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	profile, err := tx.FindUserInCompany(ctx, userID, companyID)
	if err != nil {
		return nil, fmt.Errorf("find user in company: %w", err)
	}
	if profile == nil || !profile.IsActive || profile.MembershipStatus != membershipdomain.StatusActive {
		return nil, apperror.Unauthorized("User not found in company context")
	}

	return &AuthResult{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
		User:             viewOf(profile),
	}, nil
}

func viewOf(p *repository.Profile) UserView {
	return UserView{
		ID:        p.UserID,
		FullName:  p.FullName,
		Email:     p.Email,
		CompanyID: p.CompanyID,
		Role:      p.Role,
	}
}

// Slugify derives a URL-safe slug: lower-case, runs of non-alphanumerics
// collapsed to single hyphens, trimmed, capped at 80 characters.
func Slugify(value string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}
