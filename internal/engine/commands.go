package engine

import (
	"strings"

	"lingozap/internal/profile"
)

// commandKind enumerates the learner-facing control commands.
type commandKind int

const (
	cmdNone commandKind = iota
	cmdProfile
	cmdReset
	cmdMode
	cmdPing
)

type command struct {
	kind commandKind
	mode profile.Mode
}

// parseCommand recognizes control messages. Commands are matched case
// insensitively, with or without a leading slash, so "mode restaurant"
// and "/Mode Restaurant" behave the same. Anything else is a
// conversation turn.
func parseCommand(text string) (command, bool) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) == 0 {
		return command{}, false
	}
	head := strings.TrimPrefix(fields[0], "/")

	switch head {
	case "profile":
		return command{kind: cmdProfile}, true
	case "reset":
		return command{kind: cmdReset}, true
	case "ping":
		return command{kind: cmdPing}, true
	case "mode":
		if len(fields) != 2 {
			return command{kind: cmdMode}, true
		}
		switch fields[1] {
		case "chat":
			return command{kind: cmdMode, mode: profile.ModeChat}, true
		case "restaurant":
			return command{kind: cmdMode, mode: profile.ModeRestaurant}, true
		case "immigration":
			return command{kind: cmdMode, mode: profile.ModeImmigration}, true
		}
		return command{kind: cmdMode}, true
	}
	return command{}, false
}
