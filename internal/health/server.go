// Package health exposes a small HTTP surface: liveness for process
// managers and the pairing QR code for the operator's browser.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"lingozap/internal/conn"
)

// Server serves the health endpoints.
type Server struct {
	machine *conn.Machine
	paired  func() bool
	log     *zap.Logger
	http    *http.Server
}

// New creates the server bound to addr.
func New(addr string, machine *conn.Machine, paired func() bool, log *zap.Logger) *Server {
	s := &Server{
		machine: machine,
		paired:  paired,
		log:     log,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/qr", s.handleQR)
	return r
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		s.log.Info("health server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("health server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	snap := s.machine.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<html><body><h1>LingoZap</h1><p>Connection: %s</p>", snap.State)
	if snap.QR != "" {
		fmt.Fprint(w, `<p>Scan to pair: <img src="/qr" alt="pairing QR"></p>`)
	}
	fmt.Fprint(w, "</body></html>")
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	snap := s.machine.Snapshot()
	status := http.StatusOK
	if snap.Terminal {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"state":    snap.State,
		"paired":   s.paired(),
		"terminal": snap.Terminal,
	})
}

func (s *Server) handleQR(w http.ResponseWriter, _ *http.Request) {
	code := s.machine.QR()
	if code == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no pairing challenge pending"})
		return
	}
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		s.log.Error("qr render failed", zap.Error(err))
		http.Error(w, "qr render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
