package guard

import "testing"

func TestCheck(t *testing.T) {
	self := "5511999990000@s.whatsapp.net"
	learner := "5511888887777@s.whatsapp.net"

	tests := []struct {
		name   string
		msg    Inbound
		mirror bool
		admit  bool
	}{
		{
			name:  "learner text admitted",
			msg:   Inbound{SenderJID: learner, ChatJID: learner, Text: "hello"},
			admit: true,
		},
		{
			name:  "group rejected",
			msg:   Inbound{SenderJID: learner, ChatJID: "123@g.us", IsGroup: true, Text: "hi all"},
			admit: false,
		},
		{
			name:  "reply marker rejected",
			msg:   Inbound{SenderJID: learner, ChatJID: learner, Text: ReplyMarker + "Great job!"},
			admit: false,
		},
		{
			name:  "read-back rejected",
			msg:   Inbound{SenderJID: learner, ChatJID: learner, Text: HeardPrefix + " I want coffee"},
			admit: false,
		},
		{
			name:  "own message rejected outside mirror mode",
			msg:   Inbound{SenderJID: self, ChatJID: learner, IsFromSelf: true, Text: "manual reply"},
			admit: false,
		},
		{
			name:   "mirror mode admits self chat",
			msg:    Inbound{SenderJID: self, ChatJID: self, IsFromSelf: true, Text: "practice time"},
			mirror: true,
			admit:  true,
		},
		{
			// A learner's DM has sender == chat too; only the account's
			// own self-chat may pass.
			name:   "mirror mode rejects other chats",
			msg:    Inbound{SenderJID: learner, ChatJID: learner, Text: "hello"},
			mirror: true,
			admit:  false,
		},
		{
			name:   "mirror mode rejects own outbound to others",
			msg:    Inbound{SenderJID: self, ChatJID: learner, IsFromSelf: true, Text: "manual reply"},
			mirror: true,
			admit:  false,
		},
		{
			name:   "mirror mode still rejects own markers",
			msg:    Inbound{SenderJID: self, ChatJID: self, IsFromSelf: true, Text: ReplyMarker + "echo"},
			mirror: true,
			admit:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := Check(tt.msg, tt.mirror)
			if verdict.Admit != tt.admit {
				t.Errorf("Check() admit = %v (%s), want %v", verdict.Admit, verdict.Reason, tt.admit)
			}
			if !verdict.Admit && verdict.Reason == "" {
				t.Error("rejection without reason")
			}
		})
	}
}
