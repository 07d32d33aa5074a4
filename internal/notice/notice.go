package notice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus/internal/store"
)

// Notice is a published announcement.
type Notice struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	FeaturedImage string     `json:"featured_image"`
	AuthorID      int64      `json:"author"`
	PublishedAt   *time.Time `json:"published_at"`
	Updated       time.Time  `json:"updated"`
	Created       time.Time  `json:"created"`
}

// ListQuery filters the notice list.
type ListQuery struct {
	Search        string
	PublishedOnly bool
	Limit         int
	Offset        int
}

// Repository persists notices.
type Repository interface {
	List(ctx context.Context, q ListQuery) ([]Notice, error)
	Get(ctx context.Context, id int64, publishedOnly bool) (*Notice, error)
	Create(ctx context.Context, n *Notice) error
	Update(ctx context.Context, n *Notice) error
	Delete(ctx context.Context, id int64) error
}

// PostgresRepository persists notices in Postgres.
type PostgresRepository struct {
	db store.DBTX
}

func NewPostgresRepository(db store.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const columns = `id, title, content, featured_image, author_id, published_at, updated, created`

type rowScanner interface {
	Scan(dest ...any) error
}

func scan(row rowScanner) (*Notice, error) {
	var (
		n         Notice
		published sql.NullTime
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Content, &n.FeaturedImage, &n.AuthorID, &published, &n.Updated, &n.Created); err != nil {
		return nil, err
	}
	if published.Valid {
		t := published.Time
		n.PublishedAt = &t
	}
	return &n, nil
}

// List returns notices newest published first.
func (r *PostgresRepository) List(ctx context.Context, q ListQuery) ([]Notice, error) {
	query := `SELECT ` + columns + ` FROM notices`
	args := []any{}
	clauses := []string{}
	if q.PublishedOnly {
		clauses = append(clauses, "published_at IS NOT NULL")
	}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d)", len(args), len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY published_at DESC NULLS LAST, id DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	notices := []Notice{}
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return nil, err
		}
		notices = append(notices, *n)
	}
	return notices, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id int64, publishedOnly bool) (*Notice, error) {
	query := `SELECT ` + columns + ` FROM notices WHERE id = $1`
	if publishedOnly {
		query += ` AND published_at IS NOT NULL`
	}
	n, err := scan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return n, err
}

func (r *PostgresRepository) Create(ctx context.Context, n *Notice) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO notices (title, content, featured_image, author_id, published_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, updated, created
	`, n.Title, n.Content, n.FeaturedImage, n.AuthorID, n.PublishedAt).Scan(&n.ID, &n.Updated, &n.Created)
}

func (r *PostgresRepository) Update(ctx context.Context, n *Notice) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE notices
		SET title = $2, content = $3, featured_image = $4, updated = NOW()
		WHERE id = $1
		RETURNING updated
	`, n.ID, n.Title, n.Content, n.FeaturedImage).Scan(&n.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
