package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/miraifest/ticket-booking/internal/model"
	"github.com/miraifest/ticket-booking/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userColumns = `id, name, email, phone, password_hash, role, session_token, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	var phone, session sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Email, &phone, &u.PasswordHash, &u.Role, &session, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Phone, u.SessionToken = nullString(phone), nullString(session)
	return &u, nil
}

// NewUser carries the fields needed to register an account.
type NewUser struct {
	Name     string
	Email    string
	Phone    *string
	Password string
	Role     string
}

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, in NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return 0, err
	}
	role := in.Role
	if role == "" {
		role = model.RoleUser
	}
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, phone, password_hash, role, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		strings.TrimSpace(in.Name), email, in.Phone, hash, role, now, now)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns one page of users, optionally filtered by role and a search
// term matched against name and email, plus the total match count.
func (r *UserRepo) List(ctx context.Context, search, role string, page, perPage int) ([]model.User, int, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 5)
	if s := strings.TrimSpace(search); s != "" {
		like := "%" + s + "%"
		where = append(where, "(name LIKE ? OR email LIKE ?)")
		args = append(args, like, like)
	}
	if role != "" {
		where = append(where, "role = ?")
		args = append(args, role)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	args = append(args, perPage, (page-1)*perPage)
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users"+clause+" ORDER BY id DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *u)
	}
	return out, total, rows.Err()
}

// UserPatch holds optional profile changes.  PasswordHash must already be
// hashed by the caller.
type UserPatch struct {
	Name         *string
	Email        *string
	Phone        *string
	Role         *string
	PasswordHash *string
}

// Update applies p to the user.  An empty patch is a no-op.
func (r *UserRepo) Update(ctx context.Context, id uint64, p UserPatch) error {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	if p.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, strings.TrimSpace(*p.Name))
	}
	if p.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*p.Email)))
	}
	if p.Phone != nil {
		sets = append(sets, "phone=?")
		args = append(args, *p.Phone)
	}
	if p.Role != nil {
		sets = append(sets, "role=?")
		args = append(args, *p.Role)
	}
	if p.PasswordHash != nil {
		sets = append(sets, "password_hash=?")
		args = append(args, *p.PasswordHash)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at=?")
	args = append(args, time.Now().UTC().Truncate(time.Second), id)
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a user that has no bookings.  Users with bookings return
// ErrConflict.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	var n int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings WHERE user_id=?", id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id); err != nil {
		if isForeignKeyViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}
