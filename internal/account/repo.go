package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campus/internal/store"
)

// Repository persists accounts, profiles, groups and the admission roster.
type Repository interface {
	// InTx runs fn against a repository bound to a single transaction.
	InTx(ctx context.Context, fn func(Repository) error) error

	UserByID(ctx context.Context, id int64) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	EmailRegistered(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, u *User) error
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id int64) error
	SetGroups(ctx context.Context, userID int64, groupIDs []int64) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error

	ProfileByUserID(ctx context.Context, userID int64) (*Profile, error)
	CreateProfile(ctx context.Context, p *Profile) error
	UpdateProfile(ctx context.Context, p *Profile) error

	ListGroups(ctx context.Context) ([]Group, error)
	GroupByID(ctx context.Context, id int64) (*Group, error)
	CreateGroup(ctx context.Context, g *Group) error
	UpdateGroup(ctx context.Context, g *Group) error
	DeleteGroup(ctx context.Context, id int64) error

	ListAdmissions(ctx context.Context) ([]AdmissionRecord, error)
	AdmissionByID(ctx context.Context, id int64) (*AdmissionRecord, error)
	AdmissionByRollNo(ctx context.Context, rollNo string) (*AdmissionRecord, error)
	CreateAdmission(ctx context.Context, a *AdmissionRecord) error
	UpdateAdmission(ctx context.Context, a *AdmissionRecord) error
	LinkAdmission(ctx context.Context, admissionID, userID int64) error
	DeleteAdmission(ctx context.Context, id int64) error
}

// PostgresRepository implements Repository over database/sql.
type PostgresRepository struct {
	db *sql.DB
	q  store.DBTX
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, q: db}
}

func (r *PostgresRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}
	return store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&PostgresRepository{db: r.db, q: tx})
	})
}

const userColumns = `id, username, email, password_hash, first_name, last_name, is_staff, is_active, date_joined, last_login`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u         User
		hash      sql.NullString
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &hash, &u.FirstName, &u.LastName, &u.IsStaff, &u.IsActive, &u.DateJoined, &lastLogin); err != nil {
		return nil, err
	}
	if hash.Valid {
		u.PasswordHash = []byte(hash.String)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func (r *PostgresRepository) UserByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	if u.Groups, err = r.groupIDs(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

// UserByEmail matches case-insensitively.
func (r *PostgresRepository) UserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email <> '' AND lower(email) = lower($1)
	`, email))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// EmailRegistered reports whether an account with a usable password already owns email.
func (r *PostgresRepository) EmailRegistered(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE lower(email) = lower($1) AND password_hash IS NOT NULL
		)
	`, email).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

// ListUsers returns users newest first with their groups and profiles attached.
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY date_joined DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	memberships, err := r.allMemberships(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := r.allProfiles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Groups = memberships[users[i].ID]
		users[i].Profile = profiles[users[i].ID]
	}
	return users, nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, u *User) error {
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC()
	}
	return r.q.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name, is_staff, is_active, date_joined)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, u.Username, u.Email, passwordArg(u.PasswordHash), u.FirstName, u.LastName, u.IsStaff, u.IsActive, u.DateJoined).Scan(&u.ID)
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, u *User) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, first_name = $5, last_name = $6, is_staff = $7, is_active = $8
		WHERE id = $1
	`, u.ID, u.Username, u.Email, passwordArg(u.PasswordHash), u.FirstName, u.LastName, u.IsStaff, u.IsActive)
	return affectedOne(res, err)
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, id int64) error {
	return affectedOne(r.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id))
}

// SetGroups replaces the user's memberships.
func (r *PostgresRepository) SetGroups(ctx context.Context, userID int64, groupIDs []int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM user_groups WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, gid := range groupIDs {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO user_groups (user_id, group_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, userID, gid); err != nil {
			return fmt.Errorf("add group %d: %w", gid, err)
		}
	}
	return nil
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at.UTC())
	return err
}

func (r *PostgresRepository) groupIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT group_id FROM user_groups WHERE user_id = $1 ORDER BY group_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresRepository) allMemberships(ctx context.Context) (map[int64][]int64, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT user_id, group_id FROM user_groups ORDER BY user_id, group_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64][]int64{}
	for rows.Next() {
		var uid, gid int64
		if err := rows.Scan(&uid, &gid); err != nil {
			return nil, err
		}
		out[uid] = append(out[uid], gid)
	}
	return out, rows.Err()
}

const profileColumns = `id, user_id, name, email, roll_no, semester, dob, address, image, shift`

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.RollNo, &p.Semester, &p.Dob, &p.Address, &p.Image, &p.Shift); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) allProfiles(ctx context.Context) (map[int64]*Profile, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]*Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out[p.UserID] = p
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ProfileByUserID(ctx context.Context, userID int64) (*Profile, error) {
	p, err := scanProfile(r.q.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *PostgresRepository) CreateProfile(ctx context.Context, p *Profile) error {
	return r.q.QueryRowContext(ctx, `
		INSERT INTO profiles (user_id, name, email, roll_no, semester, dob, address, image, shift)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, p.UserID, p.Name, p.Email, p.RollNo, p.Semester, p.Dob, p.Address, p.Image, p.Shift).Scan(&p.ID)
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, p *Profile) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE profiles
		SET name = $2, email = $3, roll_no = $4, semester = $5, dob = $6, address = $7, image = $8, shift = $9
		WHERE user_id = $1
	`, p.UserID, p.Name, p.Email, p.RollNo, p.Semester, p.Dob, p.Address, p.Image, p.Shift)
	return affectedOne(res, err)
}

func (r *PostgresRepository) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name FROM groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	groups := []Group{}
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *PostgresRepository) GroupByID(ctx context.Context, id int64) (*Group, error) {
	var g Group
	if err := r.q.QueryRowContext(ctx, `SELECT id, name FROM groups WHERE id = $1`, id).Scan(&g.ID, &g.Name); err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

func (r *PostgresRepository) CreateGroup(ctx context.Context, g *Group) error {
	return r.q.QueryRowContext(ctx, `INSERT INTO groups (name) VALUES ($1) RETURNING id`, g.Name).Scan(&g.ID)
}

func (r *PostgresRepository) UpdateGroup(ctx context.Context, g *Group) error {
	return affectedOne(r.q.ExecContext(ctx, `UPDATE groups SET name = $2 WHERE id = $1`, g.ID, g.Name))
}

func (r *PostgresRepository) DeleteGroup(ctx context.Context, id int64) error {
	return affectedOne(r.q.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id))
}

const admissionColumns = `id, name, email, roll_no, semester, dob, address, shift, programme, contact, user_id`

func scanAdmission(row rowScanner) (*AdmissionRecord, error) {
	var (
		a      AdmissionRecord
		userID sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.RollNo, &a.Semester, &a.Dob, &a.Address, &a.Shift, &a.Programme, &a.Contact, &userID); err != nil {
		return nil, err
	}
	if userID.Valid {
		id := userID.Int64
		a.UserID = &id
	}
	return &a, nil
}

func (r *PostgresRepository) ListAdmissions(ctx context.Context) ([]AdmissionRecord, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+admissionColumns+` FROM admission_records ORDER BY roll_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []AdmissionRecord{}
	for rows.Next() {
		a, err := scanAdmission(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *a)
	}
	return records, rows.Err()
}

func (r *PostgresRepository) AdmissionByID(ctx context.Context, id int64) (*AdmissionRecord, error) {
	a, err := scanAdmission(r.q.QueryRowContext(ctx, `SELECT `+admissionColumns+` FROM admission_records WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// AdmissionByRollNo locks the row for the rest of the transaction.
func (r *PostgresRepository) AdmissionByRollNo(ctx context.Context, rollNo string) (*AdmissionRecord, error) {
	query := `SELECT ` + admissionColumns + ` FROM admission_records WHERE roll_no = $1`
	if _, ok := r.q.(*sql.Tx); ok {
		query += ` FOR UPDATE`
	}
	a, err := scanAdmission(r.q.QueryRowContext(ctx, query, rollNo))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// CreateAdmission inserts a roster row. The provisioning trigger fills user_id when it was left empty.
func (r *PostgresRepository) CreateAdmission(ctx context.Context, a *AdmissionRecord) error {
	var userID sql.NullInt64
	err := r.q.QueryRowContext(ctx, `
		INSERT INTO admission_records (name, email, roll_no, semester, dob, address, shift, programme, contact, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, user_id
	`, a.Name, a.Email, a.RollNo, a.Semester, a.Dob, a.Address, a.Shift, a.Programme, a.Contact, a.UserID).Scan(&a.ID, &userID)
	if err != nil {
		return err
	}
	if userID.Valid {
		id := userID.Int64
		a.UserID = &id
	}
	return nil
}

func (r *PostgresRepository) UpdateAdmission(ctx context.Context, a *AdmissionRecord) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE admission_records
		SET name = $2, email = $3, roll_no = $4, semester = $5, dob = $6, address = $7, shift = $8, programme = $9, contact = $10
		WHERE id = $1
	`, a.ID, a.Name, a.Email, a.RollNo, a.Semester, a.Dob, a.Address, a.Shift, a.Programme, a.Contact)
	return affectedOne(res, err)
}

func (r *PostgresRepository) LinkAdmission(ctx context.Context, admissionID, userID int64) error {
	return affectedOne(r.q.ExecContext(ctx, `UPDATE admission_records SET user_id = $2 WHERE id = $1`, admissionID, userID))
}

func (r *PostgresRepository) DeleteAdmission(ctx context.Context, id int64) error {
	return affectedOne(r.q.ExecContext(ctx, `DELETE FROM admission_records WHERE id = $1`, id))
}

func passwordArg(hash []byte) any {
	if len(hash) == 0 {
		return nil
	}
	return string(hash)
}

func affectedOne(res sql.Result, err error) error {
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
