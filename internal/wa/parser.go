package wa

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

// ParsedMessage is a normalized inbound message ready for the guard and
// the engine.
type ParsedMessage struct {
	ChatJID    string
	MsgID      string
	SenderJID  string
	SenderName string
	Body       string
	IsAudio    bool
	IsGroup    bool
	FromMe     bool
	Timestamp  int64
}

// ParseLiveMessage normalizes a live whatsmeow message event. Device
// suffixes are stripped from sender JIDs so one learner never splits into
// per-device identities.
func ParseLiveMessage(evt *events.Message) *ParsedMessage {
	return &ParsedMessage{
		ChatJID:    evt.Info.Chat.ToNonAD().String(),
		MsgID:      evt.Info.ID,
		SenderJID:  evt.Info.Sender.ToNonAD().String(),
		SenderName: evt.Info.PushName,
		Body:       extractTextBody(evt.Message),
		IsAudio:    isVoiceNote(evt.Message),
		IsGroup:    evt.Info.Chat.Server == types.GroupServer,
		FromMe:     evt.Info.IsFromMe,
		Timestamp:  evt.Info.Timestamp.UnixMilli(),
	}
}

func extractTextBody(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if c := msg.GetConversation(); c != "" {
		return c
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	return ""
}

func isVoiceNote(msg *waE2E.Message) bool {
	return msg != nil && msg.GetAudioMessage() != nil
}
