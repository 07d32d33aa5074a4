package notify

import (
	"context"
	"database/sql"

	"campus/internal/store"
)

// TokenStore persists device tokens.
type TokenStore interface {
	// Upsert registers token for userID, moving it over if another account held it.
	Upsert(ctx context.Context, userID int64, token, platform string) (*DeviceToken, error)
	// Delete removes the caller's token.
	Delete(ctx context.Context, userID int64, token string) error
	All(ctx context.Context) ([]DeviceToken, error)
	// Prune deletes the given tokens regardless of owner.
	Prune(ctx context.Context, tokens []string) (int64, error)
}

// PostgresTokenStore keeps tokens in device_tokens.
type PostgresTokenStore struct {
	db store.DBTX
}

func NewPostgresTokenStore(db store.DBTX) *PostgresTokenStore {
	return &PostgresTokenStore{db: db}
}

func (s *PostgresTokenStore) Upsert(ctx context.Context, userID int64, token, platform string) (*DeviceToken, error) {
	var (
		d   DeviceToken
		uid sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO device_tokens (user_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			updated_at = NOW()
		RETURNING id, user_id, token, platform, created_at, updated_at
	`, userID, token, platform).Scan(&d.ID, &uid, &d.Token, &d.Platform, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if uid.Valid {
		id := uid.Int64
		d.UserID = &id
	}
	return &d, nil
}

func (s *PostgresTokenStore) Delete(ctx context.Context, userID int64, token string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE token = $1 AND user_id = $2`, token, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PostgresTokenStore) All(ctx context.Context) ([]DeviceToken, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, token, platform, created_at, updated_at
		FROM device_tokens ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DeviceToken
	for rows.Next() {
		var (
			d   DeviceToken
			uid sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &uid, &d.Token, &d.Platform, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if uid.Valid {
			id := uid.Int64
			d.UserID = &id
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Prune deletes tokens in one statement. The list is sent as a single text[] parameter.
func (s *PostgresTokenStore) Prune(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM device_tokens WHERE token = ANY($1)`, tokens)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
