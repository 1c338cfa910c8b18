package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// InsertStatus stores a status post. Author fields on s are ignored.
func (db *DB) InsertStatus(ctx context.Context, s *StatusPost) error {
	query, args, err := builder.Insert("status").
		Columns("id", "user_id", "type", "content", "caption", "background_color", "created_at").
		Values(s.ID, s.UserID, s.Type, s.Content, s.Caption, s.BackgroundColor, s.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	_, err = db.ExecContext(ctx, query, args...)
	return translate(err)
}

// GetStatus returns one status post with its author expanded, or nil.
func (db *DB) GetStatus(ctx context.Context, id string) (*StatusPost, error) {
	posts, err := db.selectStatus(ctx, statusSelect().Where(sq.Eq{"s.id": id}))
	if err != nil || len(posts) == 0 {
		return nil, err
	}
	return &posts[0], nil
}

// ListStatusSince returns posts created strictly after sinceMs, newest first.
func (db *DB) ListStatusSince(ctx context.Context, sinceMs int64) ([]StatusPost, error) {
	return db.selectStatus(ctx, statusSelect().
		Where(sq.Gt{"s.created_at": sinceMs}).
		OrderBy("s.created_at DESC", "s.id DESC"))
}

func statusSelect() sq.SelectBuilder {
	return builder.Select(
		"s.id", "s.user_id", "s.type", "s.content", "s.caption", "s.background_color", "s.created_at",
		"COALESCE(p.full_name, '')", "COALESCE(p.avatar_url, '')", "COALESCE(p.is_verified, 0)",
	).
		From("status s").
		LeftJoin("profiles p ON p.id = s.user_id")
}

func (db *DB) selectStatus(ctx context.Context, sel sq.SelectBuilder) ([]StatusPost, error) {
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var posts []StatusPost
	for rows.Next() {
		var s StatusPost
		if err := rows.Scan(&s.ID, &s.UserID, &s.Type, &s.Content, &s.Caption, &s.BackgroundColor, &s.CreatedAt,
			&s.AuthorName, &s.AuthorAvatar, &s.AuthorVerified); err != nil {
			return nil, err
		}
		posts = append(posts, s)
	}
	return posts, rows.Err()
}
