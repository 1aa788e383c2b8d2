package wa

import (
	"context"
	"strconv"

	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"lingozap/internal/engine"
	"lingozap/internal/faults"
	"lingozap/internal/guard"
)

// audioDownloader fetches voice note payloads.
type audioDownloader interface {
	DownloadAudio(ctx context.Context, evt *events.Message) ([]byte, error)
}

// dispatcher receives admitted messages for ordered processing.
type dispatcher interface {
	Dispatch(ctx context.Context, msg engine.Incoming)
}

// lifecycle receives connection events for supervision.
type lifecycle interface {
	HandleConnected()
	HandleQR(code string)
	HandleClose(ctx context.Context, code int, message string)
}

// EventHandler routes whatsmeow events: lifecycle events go to the
// supervisor, messages pass the guard and get dispatched to the engine.
type EventHandler struct {
	ctx        context.Context
	downloader audioDownloader
	supervisor lifecycle
	engine     dispatcher
	mirror     bool
	logger     *zap.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(ctx context.Context, d audioDownloader, s lifecycle, e dispatcher, mirror bool, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		ctx:        ctx,
		downloader: d,
		supervisor: s,
		engine:     e,
		mirror:     mirror,
		logger:     logger,
	}
}

// Handle is the main whatsmeow event handler function. It is the top of
// the transport callback stack, so a panic anywhere below is caught and
// logged here instead of killing the process.
func (h *EventHandler) Handle(rawEvt any) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic in event handler", zap.Any("panic", r))
		}
	}()
	switch evt := rawEvt.(type) {
	case *events.Message:
		h.handleMessage(evt)
	case *events.Connected:
		h.logger.Info("WhatsApp connected")
		h.supervisor.HandleConnected()
	case *events.QR:
		h.logger.Info("QR challenge received", zap.Int("codes", len(evt.Codes)))
		if len(evt.Codes) > 0 {
			h.supervisor.HandleQR(evt.Codes[0])
		}
	case *events.PairSuccess:
		h.logger.Info("paired", zap.String("jid", evt.ID.String()))
	case *events.Disconnected:
		h.supervisor.HandleClose(h.ctx, 0, "connection closed")
	case *events.StreamReplaced:
		h.supervisor.HandleClose(h.ctx, faults.CodeReplaced, "stream replaced by another session")
	case *events.StreamError:
		code, _ := strconv.Atoi(evt.Code)
		h.supervisor.HandleClose(h.ctx, code, "stream error "+evt.Code)
	case *events.LoggedOut:
		h.supervisor.HandleClose(h.ctx, int(evt.Reason), evt.Reason.String())
	case *events.TemporaryBan:
		h.logger.Warn("temporary ban", zap.String("reason", evt.String()))
	}
}

func (h *EventHandler) handleMessage(evt *events.Message) {
	parsed := ParseLiveMessage(evt)

	verdict := guard.Check(guard.Inbound{
		SenderJID:  parsed.SenderJID,
		ChatJID:    parsed.ChatJID,
		IsGroup:    parsed.IsGroup,
		IsFromSelf: parsed.FromMe,
		Text:       parsed.Body,
	}, h.mirror)
	if !verdict.Admit {
		h.logger.Debug("message rejected",
			zap.String("chat", parsed.ChatJID),
			zap.String("reason", verdict.Reason))
		return
	}

	msg := engine.Incoming{
		SenderJID: parsed.SenderJID,
		ChatJID:   parsed.ChatJID,
		PushName:  parsed.SenderName,
		Text:      parsed.Body,
	}
	if parsed.IsAudio {
		audio, err := h.downloader.DownloadAudio(h.ctx, evt)
		if err != nil {
			h.logger.Error("voice download failed",
				zap.String("chat", parsed.ChatJID), zap.Error(err))
			return
		}
		msg.Audio = audio
	}
	h.engine.Dispatch(h.ctx, msg)
}
