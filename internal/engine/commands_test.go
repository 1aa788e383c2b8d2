package engine

import (
	"testing"

	"lingozap/internal/profile"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		kind commandKind
		mode profile.Mode
		ok   bool
	}{
		{"profile", cmdProfile, "", true},
		{"/profile", cmdProfile, "", true},
		{"  Profile  ", cmdProfile, "", true},
		{"reset", cmdReset, "", true},
		{"ping", cmdPing, "", true},
		{"mode chat", cmdMode, profile.ModeChat, true},
		{"mode restaurant", cmdMode, profile.ModeRestaurant, true},
		{"/MODE Immigration", cmdMode, profile.ModeImmigration, true},
		{"mode", cmdMode, "", true},
		{"mode pilot", cmdMode, "", true},
		{"hello there", cmdNone, "", false},
		{"resetting my router", cmdNone, "", false},
		{"", cmdNone, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cmd, ok := parseCommand(tt.in)
			if ok != tt.ok {
				t.Fatalf("parseCommand(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if !ok {
				return
			}
			if cmd.kind != tt.kind {
				t.Errorf("kind = %d, want %d", cmd.kind, tt.kind)
			}
			if cmd.mode != tt.mode {
				t.Errorf("mode = %q, want %q", cmd.mode, tt.mode)
			}
		})
	}
}
