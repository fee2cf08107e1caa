package db

import (
	"context"
	"database/sql"
	"errors"
)

type MessageRepository struct {
	db *DB
}

func NewMessageRepository(database *DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create inserts a message and returns its assigned id.
func (r *MessageRepository) Create(ctx context.Context, channel, content string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO messages (channel, content) VALUES (?, ?)`, channel, content)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// HistoryRow is one stored message as returned to the dispatch engine, which
// is responsible for unmarshalling Content and layering in reactions.
type HistoryRow struct {
	ID      int64
	Channel string
	Content string
}

// GetHistory returns up to limit rows for channel, newest id first. When
// before is non-zero, only rows with id < before are considered.
func (r *MessageRepository) GetHistory(ctx context.Context, channel string, before int64, limit int) ([]HistoryRow, error) {
	var rows *sql.Rows
	var err error
	if before > 0 {
		rows, err = r.db.QueryContext(ctx,
			`SELECT id, channel, content FROM messages WHERE channel = ? AND id < ? ORDER BY id DESC LIMIT ?`,
			channel, before, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT id, channel, content FROM messages WHERE channel = ? ORDER BY id DESC LIMIT ?`,
			channel, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []HistoryRow
	for rows.Next() {
		var row HistoryRow
		if err := rows.Scan(&row.ID, &row.Channel, &row.Content); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Search returns up to limit rows in channel whose content contains query
// (case-insensitive substring match), newest first.
func (r *MessageRepository) Search(ctx context.Context, channel, query string, limit int) ([]HistoryRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, channel, content FROM messages WHERE channel = ? AND content LIKE ? ESCAPE '\' ORDER BY id DESC LIMIT ?`,
		channel, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []HistoryRow
	for rows.Next() {
		var row HistoryRow
		if err := rows.Scan(&row.ID, &row.Channel, &row.Content); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func escapeLike(s string) string {
	r := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '%', '_':
			r = append(r, '\\')
		}
		r = append(r, s[i])
	}
	return string(r)
}

// FindByID returns the channel and content of a message, or ErrNotFound.
func (r *MessageRepository) FindByID(ctx context.Context, id int64) (channel, content string, err error) {
	row := r.db.QueryRowContext(ctx, `SELECT channel, content FROM messages WHERE id = ?`, id)
	if err := row.Scan(&channel, &content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrNotFound
		}
		return "", "", err
	}
	return channel, content, nil
}

// Delete removes a message by id and reports whether a row existed.
func (r *MessageRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
