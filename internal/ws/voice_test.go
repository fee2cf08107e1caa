package ws

import "testing"

func TestVoiceRoomManagerJoinEnforcesAtMostOneRoom(t *testing.T) {
	m := newVoiceRoomManager()

	members, created := m.join("alice", "lounge")
	if !created {
		t.Fatal("expected first join to create the room")
	}
	if len(members) != 1 || members[0] != "alice" {
		t.Fatalf("members = %v, want [alice]", members)
	}

	members, created = m.join("alice", "study")
	if created != true {
		t.Fatal("expected the second room to be newly created")
	}
	if len(members) != 1 || members[0] != "alice" {
		t.Fatalf("members = %v, want [alice] in study only", members)
	}

	lounge := m.leave("alice", "lounge")
	if len(lounge) != 0 {
		t.Fatalf("expected alice to have already left lounge, got %v", lounge)
	}
}

func TestVoiceRoomManagerLeaveUnknownRoom(t *testing.T) {
	m := newVoiceRoomManager()
	if members := m.leave("nobody", "missing"); members != nil {
		t.Fatalf("expected nil for an unknown room, got %v", members)
	}
}

func TestVoiceRoomManagerRemoveFromAll(t *testing.T) {
	m := newVoiceRoomManager()
	m.join("alice", "lounge")
	m.join("bob", "lounge")

	channel, members := m.removeFromAll("alice")
	if channel != "lounge" {
		t.Fatalf("channel = %q, want lounge", channel)
	}
	if len(members) != 1 || members[0] != "bob" {
		t.Fatalf("members = %v, want [bob]", members)
	}

	channel, members = m.removeFromAll("alice")
	if channel != "" || members != nil {
		t.Fatalf("expected no-op for a user in no room, got (%q, %v)", channel, members)
	}
}

func TestVoiceRoomManagerUpdateAndGet(t *testing.T) {
	m := newVoiceRoomManager()
	m.ensure("lounge", "standard", 64000)

	if !m.update("lounge", "high", 128000) {
		t.Fatal("expected update on an existing room to succeed")
	}
	quality, bitrate, ok := m.get("lounge")
	if !ok || quality != "high" || bitrate != 128000 {
		t.Fatalf("get() = (%q, %d, %v), want (high, 128000, true)", quality, bitrate, ok)
	}

	if m.update("missing", "high", 128000) {
		t.Fatal("expected update on a missing room to fail")
	}
}

func TestVoiceRoomManagerSnapshotSortedByName(t *testing.T) {
	m := newVoiceRoomManager()
	m.ensure("zeta", "standard", 64000)
	m.ensure("alpha", "standard", 64000)

	snapshot := m.snapshot()
	if len(snapshot) != 2 || snapshot[0].Name != "alpha" || snapshot[1].Name != "zeta" {
		t.Fatalf("snapshot = %+v, want alpha before zeta", snapshot)
	}
}
