package db

import (
	"context"
	"database/sql"
	"errors"
)

type RoleRow struct {
	PublicKey string
	Role      string
	Color     *string
}

type RoleRepository struct {
	db *DB
}

func NewRoleRepository(database *DB) *RoleRepository {
	return &RoleRepository{db: database}
}

func (r *RoleRepository) Set(ctx context.Context, publicKey, role string, color *string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (public_key, role, color) VALUES (?, ?, ?)
		 ON CONFLICT(public_key) DO UPDATE SET role = excluded.role, color = excluded.color`,
		publicKey, role, color)
	return err
}

func (r *RoleRepository) Get(ctx context.Context, publicKey string) (RoleRow, error) {
	row := r.db.QueryRowContext(ctx, `SELECT public_key, role, color FROM roles WHERE public_key = ?`, publicKey)
	var out RoleRow
	if err := row.Scan(&out.PublicKey, &out.Role, &out.Color); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RoleRow{}, ErrNotFound
		}
		return RoleRow{}, err
	}
	return out, nil
}
