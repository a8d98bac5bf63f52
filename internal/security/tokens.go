package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	membershipdomain "company-portal/backend/internal/membership/domain"
)

// ErrInvalidToken is returned for bad signatures, expired tokens, and
// malformed or incomplete claims.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the claim set carried by both token kinds:
// {sub, companyId, role, sessionId, iat, exp, jti}. The jti keeps every
// signed token unique even when two are issued for the same identity within
// the same second, which rotation depends on.
type Claims struct {
	jwt.RegisteredClaims
	CompanyID string                `json:"companyId"`
	Role      membershipdomain.Role `json:"role"`
	SessionID string                `json:"sessionId"`
}

// TokenCodec signs and verifies access and refresh JWTs with HS256. The two
// token kinds use independent secrets, so compromise of the refresh key
// cannot forge access tokens and vice versa. Access tokens are stateless;
// refresh tokens must additionally be checked against the session store by
// the caller, because only refresh sessions are revocable.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenCodec returns a TokenCodec with the given secrets and lifetimes.
func NewTokenCodec(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// SignAccess issues a short-lived access token for the given identity.
func (c *TokenCodec) SignAccess(userID, companyID string, role membershipdomain.Role, sessionID string) (string, error) {
	return c.sign(c.accessSecret, c.accessTTL, userID, companyID, role, sessionID)
}

// SignRefresh issues a refresh token with the same claim shape and a longer
// lifetime. The stored session expiry must come from this token's own exp
// claim (via VerifyRefresh), not from recomputation.
func (c *TokenCodec) SignRefresh(userID, companyID string, role membershipdomain.Role, sessionID string) (string, error) {
	return c.sign(c.refreshSecret, c.refreshTTL, userID, companyID, role, sessionID)
}

func (c *TokenCodec) sign(secret []byte, ttl time.Duration, userID, companyID string, role membershipdomain.Role, sessionID string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		CompanyID: companyID,
		Role:      role,
		SessionID: sessionID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess parses and validates an access token (signature, exp, claim
// completeness). Returns ErrInvalidToken on any failure.
func (c *TokenCodec) VerifyAccess(token string) (*Claims, error) {
	return verify(token, c.accessSecret)
}

// VerifyRefresh parses and validates a refresh token. Possession alone is
// insufficient for trust; the caller must also match the corresponding
// refresh session row.
func (c *TokenCodec) VerifyRefresh(token string) (*Claims, error) {
	return verify(token, c.refreshSecret)
}

func verify(token string, secret []byte) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.CompanyID == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	if !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
