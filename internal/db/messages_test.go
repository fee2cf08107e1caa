package db

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "murmer.db")
	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})
	return database
}

func TestMessageCreateAndGetHistory(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	repo := NewMessageRepository(database)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := repo.Create(ctx, "general", `{"body":"hello"}`)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, id)
	}

	rows, err := repo.GetHistory(ctx, "general", 0, 50)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0].ID != ids[2] {
		t.Fatalf("expected newest-first ordering, got id %d want %d", rows[0].ID, ids[2])
	}
}

func TestMessageGetHistoryBeforeCursor(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	repo := NewMessageRepository(database)
	ctx := context.Background()

	first, _ := repo.Create(ctx, "general", `{"body":"one"}`)
	second, _ := repo.Create(ctx, "general", `{"body":"two"}`)

	rows, err := repo.GetHistory(ctx, "general", second, 50)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != first {
		t.Fatalf("rows = %+v, want only message %d", rows, first)
	}
}

func TestMessageSearchMatchesSubstring(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	repo := NewMessageRepository(database)
	ctx := context.Background()

	repo.Create(ctx, "general", `{"body":"the quick brown fox"}`)
	repo.Create(ctx, "general", `{"body":"lazy dog sleeps"}`)

	rows, err := repo.Search(ctx, "general", "fox", 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
}

func TestMessageSearchEscapesLikeWildcards(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	repo := NewMessageRepository(database)
	ctx := context.Background()

	repo.Create(ctx, "general", `{"body":"100% done"}`)
	repo.Create(ctx, "general", `{"body":"totally unrelated"}`)

	rows, err := repo.Search(ctx, "general", "100%", 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1 (literal %% must not act as a wildcard)", len(rows))
	}
}

func TestMessageFindByIDAndDelete(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	repo := NewMessageRepository(database)
	ctx := context.Background()

	id, _ := repo.Create(ctx, "general", `{"body":"hi"}`)

	channel, content, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if channel != "general" || content != `{"body":"hi"}` {
		t.Fatalf("FindByID = (%q, %q)", channel, content)
	}

	deleted, err := repo.Delete(ctx, id)
	if err != nil || !deleted {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", deleted, err)
	}

	if _, _, err := repo.FindByID(ctx, id); err == nil {
		t.Fatal("expected FindByID to fail after delete")
	}

	deletedAgain, err := repo.Delete(ctx, id)
	if err != nil || deletedAgain {
		t.Fatalf("Delete on an already-deleted row = (%v, %v), want (false, nil)", deletedAgain, err)
	}
}
