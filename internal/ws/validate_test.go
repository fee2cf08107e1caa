package ws

import "testing"

func TestValidName(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		ok   bool
	}{
		{name: "simple", in: "alice", ok: true},
		{name: "with_dash_and_space", in: "alice-cooper 2", ok: true},
		{name: "empty", in: "", ok: false},
		{name: "leading_space", in: " alice", ok: false},
		{name: "trailing_space", in: "alice ", ok: false},
		{name: "control_char", in: "alice\n", ok: false},
		{name: "too_long", in: string(make([]byte, 64)), ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := validName(tc.in, 32); got != tc.ok {
				t.Fatalf("validName(%q) = %v, want %v", tc.in, got, tc.ok)
			}
		})
	}
}

func TestValidEmoji(t *testing.T) {
	if !validEmoji("🔥") {
		t.Fatal("expected single emoji to be valid")
	}
	if validEmoji("") {
		t.Fatal("expected empty emoji to be invalid")
	}
	if validEmoji("a b") {
		t.Fatal("expected emoji containing a space to be invalid")
	}
	if validEmoji(string(make([]rune, 17))) {
		t.Fatal("expected emoji over the length limit to be invalid")
	}
}

func TestValidBitrate(t *testing.T) {
	if !validBitrate(64000) {
		t.Fatal("expected default bitrate to be valid")
	}
	if validBitrate(0) {
		t.Fatal("expected zero bitrate to be invalid")
	}
	if validBitrate(400000) {
		t.Fatal("expected bitrate above the ceiling to be invalid")
	}
}

func TestHasManageRole(t *testing.T) {
	if !hasManageRole("admin") {
		t.Fatal("expected case-insensitive match on admin")
	}
	if !hasManageRole("Mod") {
		t.Fatal("expected exact match on Mod")
	}
	if hasManageRole("member") {
		t.Fatal("expected member to lack manage permission")
	}
}

func TestDefaultRoleColor(t *testing.T) {
	testCases := map[string]string{
		"Admin":   "#eab308",
		"mod":     "#10b981",
		"OWNER":   "#3b82f6",
		"member":  "",
	}
	for role, want := range testCases {
		if got := defaultRoleColor(role); got != want {
			t.Fatalf("defaultRoleColor(%q) = %q, want %q", role, got, want)
		}
	}
}
