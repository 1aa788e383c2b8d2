package wa

import (
	"testing"
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

func TestParseLiveMessageText(t *testing.T) {
	evt := &events.Message{
		Info: types.MessageInfo{
			ID:        "m1",
			PushName:  "Ana",
			Timestamp: time.Now(),
			MessageSource: types.MessageSource{
				Chat:   types.JID{User: "5511888", Server: types.DefaultUserServer},
				Sender: types.JID{User: "5511888", Server: types.DefaultUserServer, Device: 3},
			},
		},
		Message: &waE2E.Message{Conversation: proto.String("hello teacher")},
	}

	p := ParseLiveMessage(evt)
	if p.Body != "hello teacher" {
		t.Errorf("Body = %q", p.Body)
	}
	if p.IsAudio || p.IsGroup || p.FromMe {
		t.Errorf("flags = audio:%v group:%v fromMe:%v", p.IsAudio, p.IsGroup, p.FromMe)
	}
	// Device suffix must not split the learner identity.
	if p.SenderJID != "5511888@s.whatsapp.net" {
		t.Errorf("SenderJID = %q, want device suffix stripped", p.SenderJID)
	}
	if p.SenderName != "Ana" {
		t.Errorf("SenderName = %q", p.SenderName)
	}
}

func TestParseLiveMessageExtendedText(t *testing.T) {
	evt := &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:   types.JID{User: "5511888", Server: types.DefaultUserServer},
				Sender: types.JID{User: "5511888", Server: types.DefaultUserServer},
			},
		},
		Message: &waE2E.Message{
			ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("quoted reply")},
		},
	}

	if p := ParseLiveMessage(evt); p.Body != "quoted reply" {
		t.Errorf("Body = %q", p.Body)
	}
}

func TestParseLiveMessageVoiceNote(t *testing.T) {
	evt := &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:   types.JID{User: "5511888", Server: types.DefaultUserServer},
				Sender: types.JID{User: "5511888", Server: types.DefaultUserServer},
			},
		},
		Message: &waE2E.Message{
			AudioMessage: &waE2E.AudioMessage{PTT: proto.Bool(true)},
		},
	}

	p := ParseLiveMessage(evt)
	if !p.IsAudio {
		t.Error("IsAudio = false for audio message")
	}
	if p.Body != "" {
		t.Errorf("Body = %q for voice note", p.Body)
	}
}

func TestParseLiveMessageGroup(t *testing.T) {
	evt := &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:   types.JID{User: "1203631234", Server: types.GroupServer},
				Sender: types.JID{User: "5511888", Server: types.DefaultUserServer},
			},
		},
		Message: &waE2E.Message{Conversation: proto.String("hi all")},
	}

	if p := ParseLiveMessage(evt); !p.IsGroup {
		t.Error("IsGroup = false for group chat")
	}
}
