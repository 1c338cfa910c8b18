package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// CreateUser inserts an account. A duplicate email yields ErrConflict.
func (db *DB) CreateUser(ctx context.Context, u *User) error {
	query, args, err := builder.Insert("users").
		Columns("id", "email", "password_hash", "created_at").
		Values(u.ID, u.Email, u.PasswordHash, u.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	_, err = db.ExecContext(ctx, query, args...)
	return translate(err)
}

// UserByEmail looks up an account, returning nil if none exists.
func (db *DB) UserByEmail(ctx context.Context, email string) (*User, error) {
	query, args, err := builder.Select("id", "email", "password_hash", "created_at").
		From("users").
		Where(sq.Eq{"email": email}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	var u User
	err = db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateSession stores an issued access token.
func (db *DB) CreateSession(ctx context.Context, s *AuthSession) error {
	query, args, err := builder.Insert("auth_sessions").
		Columns("token", "user_id", "created_at", "expires_at").
		Values(s.Token, s.UserID, s.CreatedAt, s.ExpiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	_, err = db.ExecContext(ctx, query, args...)
	return translate(err)
}

// SessionByToken returns the session for token with the owner's email, or
// nil if unknown.
// Expiry is the caller's concern.
func (db *DB) SessionByToken(ctx context.Context, token string) (*AuthSession, error) {
	query, args, err := builder.Select("s.token", "s.user_id", "s.created_at", "s.expires_at", "u.email").
		From("auth_sessions s").
		Join("users u ON u.id = s.user_id").
		Where(sq.Eq{"s.token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	var s AuthSession
	err = db.QueryRowContext(ctx, query, args...).Scan(&s.Token, &s.UserID, &s.CreatedAt, &s.ExpiresAt, &s.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSession revokes a token. Unknown tokens are ignored.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	query, args, err := builder.Delete("auth_sessions").
		Where(sq.Eq{"token": token}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	_, err = db.ExecContext(ctx, query, args...)
	return err
}
