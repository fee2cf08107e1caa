package db

import (
	"context"
	"errors"
	"testing"
)

func TestRoleRepositorySetAndGet(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	repo := NewRoleRepository(database)
	ctx := context.Background()

	color := "#eab308"
	if err := repo.Set(ctx, "pubkey-1", "Admin", &color); err != nil {
		t.Fatalf("Set: %v", err)
	}

	row, err := repo.Get(ctx, "pubkey-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if row.Role != "Admin" || row.Color == nil || *row.Color != color {
		t.Fatalf("row = %+v", row)
	}
}

func TestRoleRepositorySetOverwritesExisting(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	repo := NewRoleRepository(database)
	ctx := context.Background()

	repo.Set(ctx, "pubkey-1", "Mod", nil)
	if err := repo.Set(ctx, "pubkey-1", "Admin", nil); err != nil {
		t.Fatalf("Set (overwrite): %v", err)
	}

	row, err := repo.Get(ctx, "pubkey-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if row.Role != "Admin" {
		t.Fatalf("row.Role = %q, want Admin", row.Role)
	}
}

func TestRoleRepositoryGetMissing(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	repo := NewRoleRepository(database)

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) = %v, want ErrNotFound", err)
	}
}
