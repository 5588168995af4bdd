package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SessionRepo persists the hash of the access token issued at the last
// login in users.session_token.  A user has at most one live session;
// logging in again replaces it and logging out clears it.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Store records tokenHash as the user's current session.
func (r *SessionRepo) Store(ctx context.Context, userID uint64, tokenHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET session_token=?, updated_at=? WHERE id=?",
		tokenHash, time.Now().UTC().Truncate(time.Second), userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Validate reports whether tokenHash is the user's current session.
func (r *SessionRepo) Validate(ctx context.Context, userID uint64, tokenHash string) (bool, error) {
	var current sql.NullString
	err := r.DB.QueryRowContext(ctx, "SELECT session_token FROM users WHERE id=? LIMIT 1", userID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return current.Valid && current.String == tokenHash, nil
}

// Clear ends the user's session.
func (r *SessionRepo) Clear(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET session_token=NULL, updated_at=? WHERE id=?",
		time.Now().UTC().Truncate(time.Second), userID)
	return err
}
