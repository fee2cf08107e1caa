package db

import (
	"context"
	"database/sql"
	"errors"
)

type ChannelRepository struct {
	db *DB
}

func NewChannelRepository(database *DB) *ChannelRepository {
	return &ChannelRepository{db: database}
}

func (r *ChannelRepository) Add(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO channels (name) VALUES (?)`, name)
	if err != nil && IsUniqueConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *ChannelRepository) Remove(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM channels WHERE name = ?`, name)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *ChannelRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM channels ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type VoiceChannelRow struct {
	Name    string
	Quality string
	Bitrate int
}

type VoiceChannelRepository struct {
	db *DB
}

func NewVoiceChannelRepository(database *DB) *VoiceChannelRepository {
	return &VoiceChannelRepository{db: database}
}

func (r *VoiceChannelRepository) Add(ctx context.Context, name, quality string, bitrate int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO voice_channels (name, quality, bitrate) VALUES (?, ?, ?)`,
		name, quality, bitrate)
	if err != nil && IsUniqueConstraintError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *VoiceChannelRepository) Update(ctx context.Context, name, quality string, bitrate int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE voice_channels SET quality = ?, bitrate = ? WHERE name = ?`,
		quality, bitrate, name)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *VoiceChannelRepository) Remove(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM voice_channels WHERE name = ?`, name)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *VoiceChannelRepository) Get(ctx context.Context, name string) (VoiceChannelRow, error) {
	row := r.db.QueryRowContext(ctx, `SELECT name, quality, bitrate FROM voice_channels WHERE name = ?`, name)
	var out VoiceChannelRow
	if err := row.Scan(&out.Name, &out.Quality, &out.Bitrate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return VoiceChannelRow{}, ErrNotFound
		}
		return VoiceChannelRow{}, err
	}
	return out, nil
}

func (r *VoiceChannelRepository) List(ctx context.Context) ([]VoiceChannelRow, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, quality, bitrate FROM voice_channels ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VoiceChannelRow
	for rows.Next() {
		var row VoiceChannelRow
		if err := rows.Scan(&row.Name, &row.Quality, &row.Bitrate); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
