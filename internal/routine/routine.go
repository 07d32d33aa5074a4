package routine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"campus/internal/store"
)

// Routine is one class slot in the weekly timetable.
type Routine struct {
	ID        int64  `json:"id"`
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Subject   string `json:"subject"`
	Semester  *int   `json:"semester"`
}

// Filter narrows the timetable. Zero values match everything.
type Filter struct {
	Day      string
	Semester *int
}

type Repository interface {
	List(ctx context.Context, f Filter) ([]Routine, error)
	Get(ctx context.Context, id int64) (*Routine, error)
	Create(ctx context.Context, r *Routine) error
	Update(ctx context.Context, r *Routine) error
	Delete(ctx context.Context, id int64) error
}

type PostgresRepository struct {
	db store.DBTX
}

func NewPostgresRepository(db store.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const (
	columns  = `id, day, start_time::text, end_time::text, subject, semester`
	dayOrder = `array_position(ARRAY['Sunday','Monday','Tuesday','Wednesday','Thursday','Friday','Saturday'], day)`
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scan(row rowScanner) (*Routine, error) {
	var (
		r        Routine
		semester sql.NullInt32
	)
	if err := row.Scan(&r.ID, &r.Day, &r.StartTime, &r.EndTime, &r.Subject, &semester); err != nil {
		return nil, err
	}
	if semester.Valid {
		s := int(semester.Int32)
		r.Semester = &s
	}
	return &r, nil
}

// List returns routines ordered by weekday, Sunday first, then start time.
func (p *PostgresRepository) List(ctx context.Context, f Filter) ([]Routine, error) {
	query := `SELECT ` + columns + ` FROM routines`
	args := []any{}
	clauses := []string{}
	if f.Day != "" {
		args = append(args, f.Day)
		clauses = append(clauses, fmt.Sprintf("lower(day) = lower($%d)", len(args)))
	}
	if f.Semester != nil {
		args = append(args, *f.Semester)
		clauses = append(clauses, fmt.Sprintf("semester = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY " + dayOrder + ", start_time, id"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	routines := []Routine{}
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		routines = append(routines, *r)
	}
	return routines, rows.Err()
}

func (p *PostgresRepository) Get(ctx context.Context, id int64) (*Routine, error) {
	r, err := scan(p.db.QueryRowContext(ctx, `SELECT `+columns+` FROM routines WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return r, err
}

func (p *PostgresRepository) Create(ctx context.Context, r *Routine) error {
	return p.db.QueryRowContext(ctx, `
		INSERT INTO routines (day, start_time, end_time, subject, semester)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, r.Day, r.StartTime, r.EndTime, r.Subject, semesterArg(r.Semester)).Scan(&r.ID)
}

func (p *PostgresRepository) Update(ctx context.Context, r *Routine) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE routines SET day = $2, start_time = $3, end_time = $4, subject = $5, semester = $6
		WHERE id = $1
	`, r.ID, r.Day, r.StartTime, r.EndTime, r.Subject, semesterArg(r.Semester))
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (p *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM routines WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func semesterArg(s *int) any {
	if s == nil {
		return nil
	}
	return *s
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
