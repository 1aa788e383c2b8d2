// Package guard filters inbound messages before they reach the
// conversation engine, breaking feedback loops where the bot would end up
// talking to itself.
package guard

import "strings"

// Markers the bot stamps on its own output. Any inbound text carrying one
// is an echo of ourselves, never a learner turn.
const (
	ReplyMarker = "🤖 "
	HeardPrefix = "👂 Heard:"
)

// Inbound is the normalized view of a received message the guard needs.
type Inbound struct {
	SenderJID  string
	ChatJID    string
	IsGroup    bool
	IsFromSelf bool
	Text       string
}

// Verdict is the guard's decision with a loggable reason for rejections.
type Verdict struct {
	Admit  bool
	Reason string
}

func reject(reason string) Verdict {
	return Verdict{Reason: reason}
}

// Check decides whether a message may enter the engine. In mirror mode the
// bot runs on the operator's own account and only the self-chat is live:
// the message must be the account writing to itself. Outside mirror mode
// anything the account itself sent is dropped.
func Check(msg Inbound, mirror bool) Verdict {
	if msg.IsGroup {
		return reject("group chat")
	}
	if strings.HasPrefix(msg.Text, ReplyMarker) {
		return reject("own reply marker")
	}
	if strings.HasPrefix(msg.Text, HeardPrefix) {
		return reject("own transcription read-back")
	}
	if mirror {
		// A peer's DM also has sender == chat, so the self-chat is only
		// the one the account sent to itself.
		if !msg.IsFromSelf || msg.SenderJID != msg.ChatJID {
			return reject("mirror mode accepts self-chat only")
		}
		return Verdict{Admit: true}
	}
	if msg.IsFromSelf {
		return reject("sent by this account")
	}
	return Verdict{Admit: true}
}
