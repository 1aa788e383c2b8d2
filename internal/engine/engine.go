// Package engine runs the conversation loop: it turns admitted learner
// messages into tutor replies, tracks experience and levels, and keeps
// the per-learner history that feeds the model.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lingozap/internal/ai"
	"lingozap/internal/bus"
	"lingozap/internal/guard"
	"lingozap/internal/profile"
)

// Outbound is the sender side of the transport.
type Outbound interface {
	SendText(ctx context.Context, chatJID, text string) error
	SendVoice(ctx context.Context, chatJID string, audio []byte) error
	// SendTyping shows a composing indicator; voice selects the recording
	// variant. Best effort, failures are ignored by implementations.
	SendTyping(ctx context.Context, chatJID string, voice bool)
}

// Incoming is a normalized message that already passed the guard.
type Incoming struct {
	SenderJID string
	ChatJID   string
	PushName  string
	Text      string
	// Audio holds the voice note payload when the learner spoke instead
	// of typing.
	Audio []byte
}

// TurnProcessed is the payload published after each completed turn.
type TurnProcessed struct {
	ID      string
	User    string
	Mode    profile.Mode
	Awarded int
	Voice   bool
}

const (
	replyTroubleThinking = "😅 I'm having trouble thinking right now. Please try again in a moment."
	replyVoiceTrouble    = "😅 Sorry, I couldn't make out that voice note. Mind trying again?"
)

// Engine wires the profile store, the model backend and the transport
// into one message pipeline.
type Engine struct {
	repo    profile.Repository
	backend ai.Backend
	out     Outbound
	bus     *bus.Bus
	log     *zap.Logger
	gate    *gate
	mirror  bool

	// historyWindow caps how much stored history reaches the prompt.
	historyWindow int

	qmu    sync.Mutex
	queues map[string]chan Incoming
}

// New creates an engine. With mirror enabled every reply is stamped with
// the loop guard's marker, since the bot shares an account with the
// operator.
func New(repo profile.Repository, backend ai.Backend, out Outbound, b *bus.Bus, mirror bool, log *zap.Logger) *Engine {
	return &Engine{
		repo:          repo,
		backend:       backend,
		out:           out,
		bus:           b,
		log:           log,
		gate:          newGate(2*time.Second, 3),
		mirror:        mirror,
		historyWindow: 6,
		queues:        make(map[string]chan Incoming),
	}
}

// Dispatch hands a message to the learner's ordered queue and returns
// immediately, so the transport's event loop never waits on the backend.
// Messages from one learner are processed strictly in arrival order;
// different learners proceed in parallel.
func (e *Engine) Dispatch(ctx context.Context, msg Incoming) {
	e.qmu.Lock()
	q, ok := e.queues[msg.SenderJID]
	if !ok {
		q = make(chan Incoming, 64)
		e.queues[msg.SenderJID] = q
		go func() {
			for m := range q {
				e.handleSafely(ctx, m)
			}
		}()
	}
	e.qmu.Unlock()
	q <- msg
}

// handleSafely shields the learner's worker goroutine: a panicking turn
// is logged and abandoned, the queue keeps draining.
func (e *Engine) handleSafely(ctx context.Context, msg Incoming) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("panic while handling message, turn abandoned",
				zap.String("user", msg.SenderJID),
				zap.Any("panic", r))
		}
	}()
	e.HandleMessage(ctx, msg)
}

// HandleMessage processes one learner message end to end. Messages from
// the same learner are handled strictly in order; a backend failure
// leaves the stored profile untouched.
func (e *Engine) HandleMessage(ctx context.Context, msg Incoming) {
	release, err := e.gate.acquire(ctx, msg.SenderJID)
	if err != nil {
		return
	}
	defer release()

	isVoice := len(msg.Audio) > 0
	input := strings.TrimSpace(msg.Text)

	if isVoice {
		e.out.SendTyping(ctx, msg.ChatJID, false)
		transcribed, err := e.backend.Transcribe(ctx, msg.Audio)
		if err != nil {
			e.log.Error("transcription failed",
				zap.String("user", msg.SenderJID), zap.Error(err))
			e.sendText(ctx, msg.ChatJID, replyVoiceTrouble)
			return
		}
		input = strings.TrimSpace(transcribed)
		if input == "" {
			e.log.Info("voice note carried no speech, skipping turn",
				zap.String("user", msg.SenderJID))
			return
		}
		e.sendText(ctx, msg.ChatJID, guard.HeardPrefix+" "+input)
	}
	if input == "" {
		return
	}

	p, err := e.repo.LoadOrCreate(ctx, msg.SenderJID, msg.PushName)
	if err != nil {
		e.log.Error("load profile failed",
			zap.String("user", msg.SenderJID), zap.Error(err))
		e.sendText(ctx, msg.ChatJID, replyTroubleThinking)
		return
	}

	if cmd, ok := parseCommand(input); ok {
		e.handleCommand(ctx, p, msg.ChatJID, cmd)
		return
	}

	e.out.SendTyping(ctx, msg.ChatJID, isVoice)
	reply, err := e.backend.ChatComplete(ctx, systemPrompt(p), promptWindow(p.History, e.historyWindow), input)
	if err != nil {
		e.log.Error("chat backend failed",
			zap.String("user", msg.SenderJID), zap.Error(err))
		e.sendText(ctx, msg.ChatJID, replyTroubleThinking)
		return
	}

	display := reply
	awarded := 0
	var leveledTo profile.Level
	if p.Mode == profile.ModeChat {
		res := applyXP(p, reply)
		display = res.Reply
		awarded = res.Awarded
		if res.LeveledUp {
			leveledTo = res.NewLevel
		}
	} else {
		// Roleplay turns earn nothing and never show the marker.
		display = strings.TrimSpace(strings.ReplaceAll(reply, XPMarker, ""))
	}

	p.History = append(p.History,
		profile.Turn{Role: ai.RoleUser, Content: input},
		profile.Turn{Role: ai.RoleAssistant, Content: display},
	)
	if err := e.repo.Save(ctx, p); err != nil {
		// The reply is still worth delivering; progress just won't stick.
		e.log.Error("save profile failed",
			zap.String("user", msg.SenderJID), zap.Error(err))
	}

	if leveledTo != "" {
		display += fmt.Sprintf("\n\n🎉 Congratulations! You just reached the %s level!", leveledTo)
	}
	e.sendText(ctx, msg.ChatJID, display)
	e.speakReply(ctx, msg.ChatJID, display)

	turnID := uuid.NewString()
	e.log.Info("turn processed",
		zap.String("turn", turnID),
		zap.String("user", msg.SenderJID),
		zap.String("mode", string(p.Mode)),
		zap.Int("awarded", awarded),
		zap.Bool("voice", isVoice))
	if e.bus != nil {
		e.bus.Publish(bus.Event{
			Kind: bus.EngineTurnDone,
			Payload: TurnProcessed{
				ID:      turnID,
				User:    msg.SenderJID,
				Mode:    p.Mode,
				Awarded: awarded,
				Voice:   isVoice,
			},
		})
	}
}

// speakReply follows every tutored reply with a spoken version when the
// reply carries enough speakable text. The text already went out, so
// nothing here can fail the turn.
func (e *Engine) speakReply(ctx context.Context, chatJID, display string) {
	spoken, ok := speechText(display)
	if !ok {
		return
	}
	e.out.SendTyping(ctx, chatJID, true)
	audio, err := e.backend.Synthesize(ctx, spoken)
	if err != nil {
		e.log.Warn("voice synthesis failed", zap.Error(err))
		return
	}
	if err := e.out.SendVoice(ctx, chatJID, audio); err != nil {
		e.log.Warn("voice send failed", zap.Error(err))
	}
}

func (e *Engine) handleCommand(ctx context.Context, p *profile.UserProfile, chatJID string, cmd command) {
	switch cmd.kind {
	case cmdPing:
		e.sendText(ctx, chatJID, "pong 🏓")
	case cmdProfile:
		name := p.FirstName
		if name == "" {
			name = p.ExternalID
		}
		e.sendText(ctx, chatJID, fmt.Sprintf(
			"👤 %s\n🏅 Level: %s\n⭐ XP: %d\n🎭 Mode: %s\n💬 History: %d turns",
			name, p.Level, p.XP, p.Mode, len(p.History)))
	case cmdReset:
		// Back to a blank slate: progress goes with the memory.
		p.History = nil
		p.XP = 0
		p.Level = profile.Beginner
		if err := e.repo.Save(ctx, p); err != nil {
			e.log.Error("reset failed", zap.String("user", p.ExternalID), zap.Error(err))
			e.sendText(ctx, chatJID, replyTroubleThinking)
			return
		}
		e.sendText(ctx, chatJID, "🧹 Profile reset! You're back at Beginner with a clean slate.")
	case cmdMode:
		if cmd.mode == "" {
			e.sendText(ctx, chatJID, "Usage: mode chat | restaurant | immigration")
			return
		}
		p.Mode = cmd.mode
		// A persona switch starts a clean scene.
		p.History = nil
		if err := e.repo.Save(ctx, p); err != nil {
			e.log.Error("mode switch failed", zap.String("user", p.ExternalID), zap.Error(err))
			e.sendText(ctx, chatJID, replyTroubleThinking)
			return
		}
		e.sendText(ctx, chatJID, modeGreeting(cmd.mode))
	}
}

func modeGreeting(m profile.Mode) string {
	switch m {
	case profile.ModeRestaurant:
		return "🍽️ You walk into a busy London restaurant. The waiter looks up: \"Good evening! Table for one?\""
	case profile.ModeImmigration:
		return "🛂 You step up to the immigration desk. The officer takes your passport: \"Good morning. What is the purpose of your visit?\""
	default:
		return "💬 Back to chat mode! Tell me about your day and I'll help with your English."
	}
}

// sendText delivers a text reply, stamping the mirror marker where the
// bot shares the operator's account. Read-backs already carry their own
// guard signature.
func (e *Engine) sendText(ctx context.Context, chatJID, text string) {
	if e.mirror && !strings.HasPrefix(text, guard.HeardPrefix) {
		text = guard.ReplyMarker + text
	}
	if err := e.out.SendText(ctx, chatJID, text); err != nil {
		e.log.Error("send text failed", zap.String("chat", chatJID), zap.Error(err))
	}
}

// promptWindow converts the most recent stored turns into backend
// messages.
func promptWindow(history []profile.Turn, n int) []ai.Message {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]ai.Message, len(history))
	for i, turn := range history {
		out[i] = ai.Message{Role: turn.Role, Content: turn.Content}
	}
	return out
}
