package bus

import (
	"strings"
	"time"
)

// Kind identifies an event type. The segment before the first dot is the
// topic subscribers route on.
type Kind string

// Event kinds published across the daemon.
const (
	ConnStatusChanged Kind = "conn.status_changed"
	ConnQRRotated     Kind = "conn.qr_rotated"
	EngineTurnDone    Kind = "engine.turn_done"
)

// Topic returns the routing segment of the kind.
func (k Kind) Topic() string {
	s := string(k)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}

// Event is one observability notification with its payload.
type Event struct {
	Kind      Kind
	Timestamp time.Time
	Payload   any
}
