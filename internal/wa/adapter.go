// Package wa adapts the whatsmeow client to the rest of the daemon: it
// builds the client on the durable device store, sends replies and voice
// notes, and feeds lifecycle plus message events to their handlers.
package wa

import (
	"context"
	"fmt"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	wastore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"

	"lingozap/internal/authstate"
)

// Adapter wraps the whatsmeow client and manages the WhatsApp connection.
type Adapter struct {
	client *whatsmeow.Client
	logger *zap.Logger
}

// NewAdapter builds a client whose device state lives entirely in the
// auth adapter's document store.
func NewAdapter(ctx context.Context, auth *authstate.Adapter, logger *zap.Logger) (*Adapter, error) {
	// Device name shown on the phone's linked devices list.
	wastore.SetOSInfo("LingoZap", [3]uint32{0, 1, 0})

	device, err := auth.Device(ctx)
	if err != nil {
		return nil, fmt.Errorf("build device store: %w", err)
	}

	client := whatsmeow.NewClient(device, waLog.Noop)
	// Reconnection policy belongs to the supervisor, not the client.
	client.EnableAutoReconnect = false

	return &Adapter{
		client: client,
		logger: logger,
	}, nil
}

// Client returns the underlying whatsmeow client.
func (a *Adapter) Client() *whatsmeow.Client {
	return a.client
}

// Paired reports whether the device store carries a bound identity.
func (a *Adapter) Paired() bool {
	return a.client.Store.ID != nil
}

// Connect initiates the WhatsApp connection.
func (a *Adapter) Connect(_ context.Context) error {
	a.logger.Info("connecting to WhatsApp")
	return a.client.Connect()
}

// Disconnect terminates the WhatsApp connection.
func (a *Adapter) Disconnect() {
	a.logger.Info("disconnecting from WhatsApp")
	a.client.Disconnect()
}

// RegisterEventHandler adds a handler for whatsmeow events.
func (a *Adapter) RegisterEventHandler(handler whatsmeow.EventHandler) {
	a.client.AddEventHandler(handler)
}

// GetQRChannel returns the QR channel for pairing. Must be called before Connect.
func (a *Adapter) GetQRChannel(ctx context.Context) (<-chan whatsmeow.QRChannelItem, error) {
	if a.Paired() {
		return nil, fmt.Errorf("already logged in")
	}
	ch, err := a.client.GetQRChannel(ctx)
	if err != nil {
		return nil, fmt.Errorf("get QR channel: %w", err)
	}
	return ch, nil
}

// SendText sends a text message to the given JID.
func (a *Adapter) SendText(ctx context.Context, jid string, text string) error {
	to, err := types.ParseJID(jid)
	if err != nil {
		return fmt.Errorf("parse JID: %w", err)
	}
	_, err = a.client.SendMessage(ctx, to, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendVoice uploads opus audio and sends it as a push-to-talk voice note.
func (a *Adapter) SendVoice(ctx context.Context, jid string, audio []byte) error {
	to, err := types.ParseJID(jid)
	if err != nil {
		return fmt.Errorf("parse JID: %w", err)
	}
	uploaded, err := a.client.Upload(ctx, audio, whatsmeow.MediaAudio)
	if err != nil {
		return fmt.Errorf("upload voice: %w", err)
	}
	_, err = a.client.SendMessage(ctx, to, &waE2E.Message{
		AudioMessage: &waE2E.AudioMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
			Mimetype:      proto.String("audio/ogg; codecs=opus"),
			PTT:           proto.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("send voice: %w", err)
	}
	return nil
}

// SendTyping shows a composing or recording indicator. Best effort.
func (a *Adapter) SendTyping(ctx context.Context, jid string, voice bool) {
	to, err := types.ParseJID(jid)
	if err != nil {
		return
	}
	media := types.ChatPresenceMediaText
	if voice {
		media = types.ChatPresenceMediaAudio
	}
	if err := a.client.SendChatPresence(to, types.ChatPresenceComposing, media); err != nil {
		a.logger.Debug("chat presence failed", zap.Error(err))
	}
}

// DownloadAudio fetches the encrypted voice note payload of a message.
func (a *Adapter) DownloadAudio(ctx context.Context, evt *events.Message) ([]byte, error) {
	audio := evt.Message.GetAudioMessage()
	if audio == nil {
		return nil, fmt.Errorf("message carries no audio")
	}
	data, err := a.client.Download(ctx, audio)
	if err != nil {
		return nil, fmt.Errorf("download voice: %w", err)
	}
	return data, nil
}
