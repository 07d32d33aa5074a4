package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"campus/internal/store"
)

// RefreshStore persists issued refresh tokens so they can be blacklisted.
type RefreshStore interface {
	Save(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	// Revoke blacklists jti. It returns false when the token is unknown or already revoked.
	Revoke(ctx context.Context, jti string) (bool, error)
	// Active reports whether jti is known and not revoked.
	Active(ctx context.Context, jti string) (bool, error)
}

// PostgresRefreshStore keeps refresh tokens in the refresh_tokens table.
type PostgresRefreshStore struct {
	db store.DBTX
}

func NewPostgresRefreshStore(db store.DBTX) *PostgresRefreshStore {
	return &PostgresRefreshStore{db: db}
}

func (s *PostgresRefreshStore) Save(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (jti, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, jti, userID, expiresAt.UTC())
	return err
}

func (s *PostgresRefreshStore) Revoke(ctx context.Context, jti string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE jti = $1 AND NOT revoked
	`, jti)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PostgresRefreshStore) Active(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT revoked FROM refresh_tokens WHERE jti = $1`, jti).Scan(&revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !revoked, nil
}

// PurgeExpired deletes refresh tokens past their expiry.
func (s *PostgresRefreshStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
