package db

import "context"

type ReactionRepository struct {
	db *DB
}

func NewReactionRepository(database *DB) *ReactionRepository {
	return &ReactionRepository{db: database}
}

// Add is idempotent: reacting twice with the same emoji is a no-op.
func (r *ReactionRepository) Add(ctx context.Context, messageID int64, user, emoji string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO reactions (message_id, user_name, emoji) VALUES (?, ?, ?)`,
		messageID, user, emoji)
	return err
}

// Remove is idempotent: removing a reaction that doesn't exist is a no-op.
func (r *ReactionRepository) Remove(ctx context.Context, messageID int64, user, emoji string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM reactions WHERE message_id = ? AND user_name = ? AND emoji = ?`,
		messageID, user, emoji)
	return err
}

// Summary returns emoji -> sorted, de-duplicated usernames for one message.
func (r *ReactionRepository) Summary(ctx context.Context, messageID int64) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT emoji, user_name FROM reactions WHERE message_id = ? ORDER BY emoji, user_name`,
		messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var emoji, user string
		if err := rows.Scan(&emoji, &user); err != nil {
			return nil, err
		}
		out[emoji] = append(out[emoji], user)
	}
	return out, rows.Err()
}

// SummaryForMessages batches Summary for a set of message ids, grouping by
// message id then emoji. Used when sending history snapshots.
func (r *ReactionRepository) SummaryForMessages(ctx context.Context, messageIDs []int64) (map[int64]map[string][]string, error) {
	out := map[int64]map[string][]string{}
	if len(messageIDs) == 0 {
		return out, nil
	}

	query := `SELECT message_id, emoji, user_name FROM reactions WHERE message_id IN (` + placeholders(len(messageIDs)) + `) ORDER BY message_id, emoji, user_name`
	args := make([]any, len(messageIDs))
	for i, id := range messageIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var messageID int64
		var emoji, user string
		if err := rows.Scan(&messageID, &emoji, &user); err != nil {
			return nil, err
		}
		if out[messageID] == nil {
			out[messageID] = map[string][]string{}
		}
		out[messageID][emoji] = append(out[messageID][emoji], user)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	b := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}
