package store

import (
	"context"
	"fmt"
	"slices"

	sq "github.com/Masterminds/squirrel"
)

var messageColumns = []string{"id", "sender_id", "contact_id", "text", "status", "created_at"}

// InsertMessage stores a new message row.
func (db *DB) InsertMessage(ctx context.Context, m *Message) error {
	query, args, err := builder.Insert("messages").
		Columns(messageColumns...).
		Values(m.ID, m.SenderID, m.ContactID, m.Text, m.Status, m.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	_, err = db.ExecContext(ctx, query, args...)
	return translate(err)
}

// GetMessage returns a message by id, or nil if absent.
func (db *DB) GetMessage(ctx context.Context, id string) (*Message, error) {
	msgs, err := db.selectMessages(ctx, builder.Select(messageColumns...).
		From("messages").
		Where(sq.Eq{"id": id}))
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return &msgs[0], nil
}

// ListMessagesForUser returns every message the user sent or received,
// newest first. Rows with equal created_at are ordered by id descending so
// repeated reads of identical data return identical order.
func (db *DB) ListMessagesForUser(ctx context.Context, userID string, q MessageQuery) ([]Message, error) {
	sel := builder.Select(messageColumns...).
		From("messages").
		Where(sq.Or{sq.Eq{"sender_id": userID}, sq.Eq{"contact_id": userID}}).
		OrderBy("created_at DESC", "id DESC")
	if q.SinceMs > 0 {
		sel = sel.Where(sq.Gt{"created_at": q.SinceMs})
	}
	if q.Limit > 0 {
		sel = sel.Limit(uint64(q.Limit))
	}
	return db.selectMessages(ctx, sel)
}

// ListThread returns the most recent messages exchanged between two users,
// oldest first.
func (db *DB) ListThread(ctx context.Context, userID, contactID string, limit int) ([]Message, error) {
	sel := builder.Select(messageColumns...).
		From("messages").
		Where(sq.Or{
			sq.Eq{"sender_id": userID, "contact_id": contactID},
			sq.Eq{"sender_id": contactID, "contact_id": userID},
		}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}
	msgs, err := db.selectMessages(ctx, sel)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// MarkRead sets status=read on every message from contactID to userID that
// is not read yet and returns the rows it changed. No matching rows is not
// an error.
func (db *DB) MarkRead(ctx context.Context, contactID, userID string) ([]Message, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	filter := sq.And{
		sq.Eq{"sender_id": contactID},
		sq.Eq{"contact_id": userID},
		sq.NotEq{"status": StatusRead},
	}

	query, args, err := builder.Select(messageColumns...).
		From("messages").
		Where(filter).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	changed, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return nil, nil
	}

	query, args, err = builder.Update("messages").
		Set("status", StatusRead).
		Where(filter).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	for i := range changed {
		changed[i].Status = StatusRead
	}
	return changed, nil
}

// MessageCount returns the total number of messages.
func (db *DB) MessageCount(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

func (db *DB) selectMessages(ctx context.Context, sel sq.SelectBuilder) ([]Message, error) {
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func scanMessages(rows rowScanner) ([]Message, error) {
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ContactID, &m.Text, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
