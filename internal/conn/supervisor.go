package conn

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"lingozap/internal/faults"
)

// Transport is the subset of the messaging client the supervisor drives.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect()
	Paired() bool
}

// Wiper destroys the durable auth state.
type Wiper interface {
	Wipe(ctx context.Context) error
}

// Supervisor owns the connect/reconnect policy. The transport's event loop
// feeds it lifecycle notifications; it decides whether a drop is worth a
// retry, a full credential wipe, or giving up.
type Supervisor struct {
	transport Transport
	machine   *Machine
	wiper     Wiper
	log       *zap.Logger
	delay     time.Duration

	// exit is swappable for tests. Session corruption ends the process so
	// the process manager restarts it against a clean slate.
	exit func(code int)

	mu      sync.Mutex
	stopped bool
	timer   *time.Timer
}

// NewSupervisor creates a supervisor with the given reconnect delay.
func NewSupervisor(t Transport, m *Machine, w Wiper, delay time.Duration, log *zap.Logger) *Supervisor {
	return &Supervisor{
		transport: t,
		machine:   m,
		wiper:     w,
		log:       log,
		delay:     delay,
		exit:      os.Exit,
	}
}

// Start performs the initial connection attempt. A failure here is treated
// like any transient drop: logged and retried after the delay.
func (s *Supervisor) Start(ctx context.Context) {
	s.log.Info("connecting", zap.Bool("paired", s.transport.Paired()))
	if err := s.transport.Connect(ctx); err != nil {
		s.log.Error("initial connect failed", zap.Error(err))
		s.scheduleReconnect(ctx)
	}
}

// Stop cancels any pending reconnect and closes the transport.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.transport.Disconnect()
}

// HandleConnected marks the link open.
func (s *Supervisor) HandleConnected() {
	if err := s.machine.Transition(Open); err != nil {
		s.log.Warn("connected in unexpected state", zap.Error(err))
		return
	}
	s.log.Info("connection open")
}

// HandleQR records a fresh pairing challenge.
func (s *Supervisor) HandleQR(code string) {
	if s.machine.Current() != AwaitingQR {
		if err := s.machine.Transition(AwaitingQR); err != nil {
			s.log.Warn("qr challenge in unexpected state", zap.Error(err))
			return
		}
		s.log.Info("pairing required, challenge available")
	}
	s.machine.SetQR(code)
}

// HandleClose classifies a dropped connection and reacts: transient faults
// reconnect after a fixed delay, session corruption wipes the auth state
// and exits cleanly for a fresh pairing on restart, and a server-side
// logout parks the machine for good.
func (s *Supervisor) HandleClose(ctx context.Context, code int, message string) {
	kind := faults.ClassifyClose(code, message)
	s.log.Warn("connection closed",
		zap.Int("code", code),
		zap.String("message", message),
		zap.Stringer("kind", kind))

	if err := s.machine.Transition(Closed); err != nil {
		s.log.Debug("close in unexpected state", zap.Error(err))
	}

	switch kind {
	case faults.LoggedOut:
		s.machine.MarkTerminal()
		s.log.Error("logged out by server, manual re-pairing required")
	case faults.SessionCorruption:
		s.log.Error("session corrupted beyond repair, wiping auth state")
		if err := s.wiper.Wipe(ctx); err != nil {
			s.log.Error("wipe failed", zap.Error(err))
			s.exit(1)
			return
		}
		// Exit zero so the process manager restarts us into QR pairing
		// instead of flagging a crash.
		s.exit(0)
	default:
		s.scheduleReconnect(ctx)
	}
}

func (s *Supervisor) scheduleReconnect(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.machine.Terminal() {
		return
	}
	s.log.Info("reconnecting", zap.Duration("delay", s.delay))
	s.timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped || ctx.Err() != nil {
			return
		}
		if err := s.machine.Transition(Connecting); err != nil {
			s.log.Debug("reconnect in unexpected state", zap.Error(err))
		}
		if err := s.transport.Connect(ctx); err != nil {
			s.log.Error("reconnect failed", zap.Error(err))
			s.scheduleReconnect(ctx)
		}
	})
}
