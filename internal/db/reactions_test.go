package db

import (
	"context"
	"reflect"
	"testing"
)

func TestReactionRepositoryAddIsIdempotent(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	messages := NewMessageRepository(database)
	reactions := NewReactionRepository(database)
	ctx := context.Background()

	id, _ := messages.Create(ctx, "general", `{"body":"hi"}`)

	if err := reactions.Add(ctx, id, "alice", "🔥"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := reactions.Add(ctx, id, "alice", "🔥"); err != nil {
		t.Fatalf("Add (repeat): %v", err)
	}

	summary, err := reactions.Summary(ctx, id)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	want := map[string][]string{"🔥": {"alice"}}
	if !reflect.DeepEqual(summary, want) {
		t.Fatalf("Summary = %v, want %v", summary, want)
	}
}

func TestReactionRepositoryRemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	messages := NewMessageRepository(database)
	reactions := NewReactionRepository(database)
	ctx := context.Background()

	id, _ := messages.Create(ctx, "general", `{"body":"hi"}`)
	reactions.Add(ctx, id, "alice", "🔥")

	if err := reactions.Remove(ctx, id, "alice", "🔥"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := reactions.Remove(ctx, id, "alice", "🔥"); err != nil {
		t.Fatalf("Remove (repeat): %v", err)
	}

	summary, _ := reactions.Summary(ctx, id)
	if len(summary) != 0 {
		t.Fatalf("Summary = %v, want empty", summary)
	}
}

func TestReactionRepositorySummaryForMessages(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	messages := NewMessageRepository(database)
	reactions := NewReactionRepository(database)
	ctx := context.Background()

	first, _ := messages.Create(ctx, "general", `{"body":"one"}`)
	second, _ := messages.Create(ctx, "general", `{"body":"two"}`)
	reactions.Add(ctx, first, "alice", "🔥")
	reactions.Add(ctx, first, "bob", "🔥")
	reactions.Add(ctx, second, "alice", "👍")

	summary, err := reactions.SummaryForMessages(ctx, []int64{first, second})
	if err != nil {
		t.Fatalf("SummaryForMessages: %v", err)
	}
	if len(summary[first]["🔥"]) != 2 {
		t.Fatalf("summary[first] = %v, want 2 reactors", summary[first])
	}
	if len(summary[second]["👍"]) != 1 {
		t.Fatalf("summary[second] = %v, want 1 reactor", summary[second])
	}
}

func TestReactionRepositorySummaryForMessagesEmptyInput(t *testing.T) {
	t.Parallel()

	database := openTestDB(t)
	reactions := NewReactionRepository(database)

	summary, err := reactions.SummaryForMessages(context.Background(), nil)
	if err != nil {
		t.Fatalf("SummaryForMessages: %v", err)
	}
	if len(summary) != 0 {
		t.Fatalf("summary = %v, want empty map", summary)
	}
}
