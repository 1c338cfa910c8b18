package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var profileColumns = []string{
	"id", "full_name", "COALESCE(username, '')", "about", "phone",
	"avatar_url", "is_verified", "verified_subtitle",
}

// UpsertProfile inserts or fully replaces a profile row.
func (db *DB) UpsertProfile(ctx context.Context, p *Profile) error {
	query, args, err := builder.Insert("profiles").
		Columns("id", "full_name", "username", "about", "phone", "avatar_url", "is_verified", "verified_subtitle", "updated_at").
		Values(p.ID, p.FullName, nullable(p.Username), p.About, p.Phone, p.AvatarURL, p.IsVerified, p.VerifiedSubtitle, time.Now().UnixMilli()).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			username = excluded.username,
			about = excluded.about,
			phone = excluded.phone,
			avatar_url = excluded.avatar_url,
			is_verified = excluded.is_verified,
			verified_subtitle = excluded.verified_subtitle,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	_, err = db.ExecContext(ctx, query, args...)
	return translate(err)
}

// GetProfile returns a profile by id, or nil if absent.
func (db *DB) GetProfile(ctx context.Context, id string) (*Profile, error) {
	profiles, err := db.selectProfiles(ctx, builder.Select(profileColumns...).
		From("profiles").
		Where(sq.Eq{"id": id}))
	if err != nil || len(profiles) == 0 {
		return nil, err
	}
	return &profiles[0], nil
}

// ProfilesByIDs batch-fetches profiles. Ids without a row are simply absent
// from the result.
func (db *DB) ProfilesByIDs(ctx context.Context, ids []string) ([]Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return db.selectProfiles(ctx, builder.Select(profileColumns...).
		From("profiles").
		Where(sq.Eq{"id": ids}).
		OrderBy("id"))
}

// SearchProfiles matches term as a substring of username or full_name,
// skipping excludeID.
func (db *DB) SearchProfiles(ctx context.Context, term, excludeID string, limit int) ([]Profile, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + term + "%"
	return db.selectProfiles(ctx, builder.Select(profileColumns...).
		From("profiles").
		Where(sq.NotEq{"id": excludeID}).
		Where(sq.Or{sq.Like{"username": pattern}, sq.Like{"full_name": pattern}}).
		OrderBy("full_name", "id").
		Limit(uint64(limit)))
}

// UpdateProfile writes the given columns of one profile and reports whether
// a row matched. Column names are trusted; callers build the map.
func (db *DB) UpdateProfile(ctx context.Context, id string, fields map[string]any) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}
	if u, ok := fields["username"]; ok {
		if s, isStr := u.(string); isStr {
			fields["username"] = nullable(s)
		}
	}
	query, args, err := builder.Update("profiles").
		SetMap(fields).
		Set("updated_at", time.Now().UnixMilli()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, translate(err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (db *DB) selectProfiles(ctx context.Context, sel sq.SelectBuilder) ([]Profile, error) {
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var profiles []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.Username, &p.About, &p.Phone, &p.AvatarURL, &p.IsVerified, &p.VerifiedSubtitle); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
