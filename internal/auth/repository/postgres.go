package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	companydomain "company-portal/backend/internal/company/domain"
	sessiondomain "company-portal/backend/internal/session/domain"
	userdomain "company-portal/backend/internal/user/domain"
)

// DBTX is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx, so
// the same store runs standalone or inside a transaction; Begin on a pgx.Tx
// opens a savepoint, which gives WithTx nesting for free.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres implements Store on pgx.
type Postgres struct {
	db DBTX
}

// NewPostgres returns a credential store backed by the given pool or
// transaction.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

var _ Store = (*Postgres)(nil)

// WithTx runs fn against a store bound to a new transaction, committing when
// fn returns nil and rolling back otherwise.
func (p *Postgres) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Postgres{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// FindCompanyBySlug returns the company for slug, or nil if not found.
func (p *Postgres) FindCompanyBySlug(ctx context.Context, slug string) (*companydomain.Company, error) {
	var c companydomain.Company
	err := p.db.QueryRow(ctx, `
		SELECT id, name, slug, created_at, updated_at
		FROM companies
		WHERE slug = $1`, slug,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// FindUserByEmail returns the user for the normalized email, or nil if not found.
func (p *Postgres) FindUserByEmail(ctx context.Context, emailNormalized string) (*userdomain.User, error) {
	var u userdomain.User
	err := p.db.QueryRow(ctx, `
		SELECT id, email, email_normalized, password_hash, full_name, is_active, created_at, updated_at
		FROM users
		WHERE email_normalized = $1`, emailNormalized,
	).Scan(&u.ID, &u.Email, &u.EmailNormalized, &u.PasswordHash, &u.FullName, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// CreateSignup inserts company, user, and membership. Unique violations map
// to ErrDuplicate so the signup TOCTOU race stays a conflict.
func (p *Postgres) CreateSignup(ctx context.Context, s *Signup) error {
	if _, err := p.db.Exec(ctx, `
		INSERT INTO companies (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)`,
		s.Company.ID, s.Company.Name, s.Company.Slug, s.Company.CreatedAt,
	); err != nil {
		return wrapDuplicate("insert company", err)
	}
	if _, err := p.db.Exec(ctx, `
		INSERT INTO users (id, email, email_normalized, password_hash, full_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		s.User.ID, s.User.Email, s.User.EmailNormalized, s.User.PasswordHash, s.User.FullName, s.User.IsActive, s.User.CreatedAt,
	); err != nil {
		return wrapDuplicate("insert user", err)
	}
	if _, err := p.db.Exec(ctx, `
		INSERT INTO memberships (id, company_id, user_id, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		s.Membership.ID, s.Membership.CompanyID, s.Membership.UserID, s.Membership.Role, s.Membership.Status, s.Membership.CreatedAt,
	); err != nil {
		return wrapDuplicate("insert membership", err)
	}
	return nil
}

// FindLoginProfile joins user and membership by normalized email. With more
// than one membership the oldest wins, matching signup order.
func (p *Postgres) FindLoginProfile(ctx context.Context, emailNormalized string) (*LoginProfile, error) {
	var lp LoginProfile
	err := p.db.QueryRow(ctx, `
		SELECT u.id, u.full_name, u.email, u.password_hash, u.is_active, m.company_id, m.role, m.status
		FROM users u
		JOIN memberships m ON m.user_id = u.id
		WHERE u.email_normalized = $1
		ORDER BY m.created_at
		LIMIT 1`, emailNormalized,
	).Scan(&lp.UserID, &lp.FullName, &lp.Email, &lp.PasswordHash, &lp.IsActive, &lp.CompanyID, &lp.Role, &lp.MembershipStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &lp, nil
}

// CreateRefreshSession persists a new session row. The token hash is unique,
// so a hash collision across sessions maps to ErrDuplicate.
func (p *Postgres) CreateRefreshSession(ctx context.Context, s *sessiondomain.RefreshSession) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO refresh_sessions (id, user_id, company_id, token_hash, expires_at, user_agent, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, '')::inet, $8)`,
		s.ID, s.UserID, s.CompanyID, s.TokenHash, s.ExpiresAt, s.UserAgent, s.IPAddress, s.CreatedAt,
	)
	if err != nil {
		return wrapDuplicate("insert refresh session", err)
	}
	return nil
}

// FindActiveRefreshSession returns the session matching (id, tokenHash) that
// is unrevoked and unexpired at now, or nil.
func (p *Postgres) FindActiveRefreshSession(ctx context.Context, sessionID, tokenHash string, now time.Time) (*sessiondomain.RefreshSession, error) {
	var s sessiondomain.RefreshSession
	err := p.db.QueryRow(ctx, `
		SELECT id, user_id, company_id, token_hash, expires_at, revoked_at, last_used_at,
		       COALESCE(user_agent, ''), COALESCE(ip_address::text, ''), created_at
		FROM refresh_sessions
		WHERE id = $1 AND token_hash = $2 AND revoked_at IS NULL AND expires_at > $3`,
		sessionID, tokenHash, now,
	).Scan(&s.ID, &s.UserID, &s.CompanyID, &s.TokenHash, &s.ExpiresAt, &s.RevokedAt, &s.LastUsedAt, &s.UserAgent, &s.IPAddress, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// RotateRefreshSession atomically swaps the token hash and expiry, only while
// the row still carries the expected current hash and is unrevoked. This
// compare-and-set is the sole arbiter of rotation ordering; a false return
// means the caller lost the race or presented an already-rotated token.
func (p *Postgres) RotateRefreshSession(ctx context.Context, rp RotateParams) (bool, error) {
	tag, err := p.db.Exec(ctx, `
		UPDATE refresh_sessions
		SET token_hash = $1, expires_at = $2, last_used_at = $3,
		    user_agent = NULLIF($4, ''), ip_address = NULLIF($5, '')::inet
		WHERE id = $6 AND token_hash = $7 AND revoked_at IS NULL`,
		rp.NextTokenHash, rp.ExpiresAt, rp.Now, rp.UserAgent, rp.IPAddress, rp.SessionID, rp.CurrentTokenHash,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RevokeRefreshSession marks the matching active session revoked; returns
// false if it was already revoked or the hash did not match.
func (p *Postgres) RevokeRefreshSession(ctx context.Context, sessionID, tokenHash string, now time.Time) (bool, error) {
	tag, err := p.db.Exec(ctx, `
		UPDATE refresh_sessions
		SET revoked_at = $1, last_used_at = $1
		WHERE id = $2 AND token_hash = $3 AND revoked_at IS NULL`,
		now, sessionID, tokenHash,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindUserInCompany joins user and membership for the given company, or nil
// when the user has no membership there.
func (p *Postgres) FindUserInCompany(ctx context.Context, userID, companyID string) (*Profile, error) {
	var pr Profile
	err := p.db.QueryRow(ctx, `
		SELECT u.id, u.full_name, u.email, u.is_active, m.company_id, m.role, m.status
		FROM users u
		JOIN memberships m ON m.user_id = u.id
		WHERE u.id = $1 AND m.company_id = $2`,
		userID, companyID,
	).Scan(&pr.UserID, &pr.FullName, &pr.Email, &pr.IsActive, &pr.CompanyID, &pr.Role, &pr.MembershipStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &pr, nil
}

func wrapDuplicate(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
