package conn

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeTransport struct {
	connects atomic.Int32
	paired   bool
}

func (f *fakeTransport) Connect(context.Context) error { f.connects.Add(1); return nil }
func (f *fakeTransport) Disconnect()                   {}
func (f *fakeTransport) Paired() bool                  { return f.paired }

type fakeWiper struct {
	wipes atomic.Int32
}

func (f *fakeWiper) Wipe(context.Context) error { f.wipes.Add(1); return nil }

func newTestSupervisor(t *testing.T) (*Supervisor, *fakeTransport, *fakeWiper, *atomic.Int32) {
	t.Helper()
	transport := &fakeTransport{paired: true}
	wiper := &fakeWiper{}
	machine := NewMachine(nil)
	s := NewSupervisor(transport, machine, wiper, time.Millisecond, zap.NewNop())

	exitCode := &atomic.Int32{}
	exitCode.Store(-1)
	s.exit = func(code int) { exitCode.Store(int32(code)) }
	return s, transport, wiper, exitCode
}

func TestSupervisorReconnectsOnTransientClose(t *testing.T) {
	s, transport, wiper, exitCode := newTestSupervisor(t)
	ctx := context.Background()

	s.Start(ctx)
	s.HandleConnected()
	s.HandleClose(ctx, 0, "connection closed unexpectedly")

	deadline := time.After(time.Second)
	for transport.connects.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("no reconnect attempt after transient close")
		case <-time.After(time.Millisecond):
		}
	}
	if wiper.wipes.Load() != 0 {
		t.Error("transient close wiped auth state")
	}
	if exitCode.Load() != -1 {
		t.Errorf("transient close exited with %d", exitCode.Load())
	}
}

func TestSupervisorWipesOnCorruption(t *testing.T) {
	s, transport, wiper, exitCode := newTestSupervisor(t)
	ctx := context.Background()

	s.Start(ctx)
	s.HandleConnected()
	s.HandleClose(ctx, 0, "Bad MAC error verifying message")

	if wiper.wipes.Load() != 1 {
		t.Fatalf("wipes = %d, want 1", wiper.wipes.Load())
	}
	if exitCode.Load() != 0 {
		t.Errorf("exit code = %d, want 0", exitCode.Load())
	}

	// No reconnect races the process exit.
	time.Sleep(20 * time.Millisecond)
	if transport.connects.Load() != 1 {
		t.Errorf("connects = %d after corruption, want 1", transport.connects.Load())
	}
}

func TestSupervisorParksOnLogout(t *testing.T) {
	s, transport, wiper, exitCode := newTestSupervisor(t)
	ctx := context.Background()

	s.Start(ctx)
	s.HandleConnected()
	s.HandleClose(ctx, 401, "logged out")

	if !s.machine.Terminal() {
		t.Error("machine not terminal after logout")
	}
	if wiper.wipes.Load() != 0 {
		t.Error("logout wiped auth state")
	}
	if exitCode.Load() != -1 {
		t.Errorf("logout exited with %d", exitCode.Load())
	}
	time.Sleep(20 * time.Millisecond)
	if transport.connects.Load() != 1 {
		t.Errorf("connects = %d after logout, want 1", transport.connects.Load())
	}
}

func TestSupervisorStopCancelsReconnect(t *testing.T) {
	s, transport, _, _ := newTestSupervisor(t)
	s.delay = 5 * time.Millisecond
	ctx := context.Background()

	s.Start(ctx)
	s.HandleConnected()
	s.HandleClose(ctx, 0, "stream ended")
	s.Stop()

	time.Sleep(30 * time.Millisecond)
	if transport.connects.Load() != 1 {
		t.Errorf("connects = %d after Stop, want 1", transport.connects.Load())
	}
}

func TestSupervisorQRFlow(t *testing.T) {
	s, _, _, _ := newTestSupervisor(t)

	s.HandleQR("challenge-1")
	if s.machine.Current() != AwaitingQR {
		t.Fatalf("state = %s, want AwaitingQR", s.machine.Current())
	}
	s.HandleQR("challenge-2")
	if s.machine.QR() != "challenge-2" {
		t.Errorf("QR() = %q", s.machine.QR())
	}

	s.HandleConnected()
	if s.machine.QR() != "" {
		t.Error("challenge survived pairing")
	}
}
