package event

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"campus/internal/store"
)

// Event is a dated campus happening.
type Event struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Detail    string    `json:"detail"`
	Location  string    `json:"location"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
}

type Repository interface {
	List(ctx context.Context) ([]Event, error)
	Get(ctx context.Context, id int64) (*Event, error)
	Create(ctx context.Context, e *Event) error
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id int64) error
}

type PostgresRepository struct {
	db store.DBTX
}

func NewPostgresRepository(db store.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const columns = `id, title, to_char(date, 'YYYY-MM-DD'), to_char(time, 'HH24:MI:SS'), detail, location, image, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scan(row rowScanner) (*Event, error) {
	var e Event
	if err := row.Scan(&e.ID, &e.Title, &e.Date, &e.Time, &e.Detail, &e.Location, &e.Image, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns events in calendar order.
func (r *PostgresRepository) List(ctx context.Context) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM events ORDER BY date, time, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := []Event{}
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Event, error) {
	e, err := scan(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return e, err
}

func (r *PostgresRepository) Create(ctx context.Context, e *Event) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO events (title, date, time, detail, location, image)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, e.Title, e.Date, e.Time, e.Detail, e.Location, e.Image).Scan(&e.ID, &e.CreatedAt)
}

func (r *PostgresRepository) Update(ctx context.Context, e *Event) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE events SET title = $2, date = $3, time = $4, detail = $5, location = $6, image = $7
		WHERE id = $1
	`, e.ID, e.Title, e.Date, e.Time, e.Detail, e.Location, e.Image)
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

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
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
