package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the pgx surface the cleaner needs; *pgxpool.Pool satisfies it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres implements Cleaner on pgx.
type Postgres struct {
	db DBTX
}

var _ Cleaner = (*Postgres)(nil)

// NewPostgres returns a session cleaner backed by the given pool.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

// DeleteExpired removes expired sessions and revoked sessions older than the
// retention window.
func (p *Postgres) DeleteExpired(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	tag, err := p.db.Exec(ctx, `
		DELETE FROM refresh_sessions
		WHERE expires_at <= $1
		   OR (revoked_at IS NOT NULL AND revoked_at <= $2)`,
		now, now.Add(-retention),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
