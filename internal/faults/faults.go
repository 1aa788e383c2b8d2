// Package faults defines the closed set of failure kinds used to turn
// external errors into local decisions: retry, fallback, wipe-and-restart,
// or terminal stop.
package faults

import "strings"

// Kind classifies a failure.
type Kind int

const (
	// TransientIO covers unreachable databases, timeouts and dropped
	// connections. Logged, the affected operation is abandoned, nothing
	// process-level happens.
	TransientIO Kind = iota
	// SessionCorruption covers unrecoverable cryptographic state: the only
	// kind that warrants wiping credentials and restarting the process.
	SessionCorruption
	// LoggedOut means the session was invalidated remotely. Terminal; a
	// new pairing is required.
	LoggedOut
	// BackendFailure covers chat/transcription/speech call failures.
	// Turn-local fallback, no state mutation.
	BackendFailure
)

func (k Kind) String() string {
	switch k {
	case TransientIO:
		return "transient_io"
	case SessionCorruption:
		return "session_corruption"
	case LoggedOut:
		return "logged_out"
	case BackendFailure:
		return "backend_failure"
	default:
		return "unknown"
	}
}

// Connection-close status codes used by the transport.
const (
	CodeLoggedOut = 401
	CodeForbidden = 403
	CodeReplaced  = 440
)

// corruptionSignatures are substrings of close/stream errors that indicate
// the stored cryptographic state can no longer be trusted.
var corruptionSignatures = []string{
	"bad mac",
	"failed to decrypt",
	"invalid prekey",
	"invalid pre-key",
	"no signal session",
	"mismatching mac",
}

// ClassifyClose maps a connection-close status code and message to a Kind.
// LoggedOut is terminal, SessionCorruption triggers a credential wipe and
// supervised restart, TransientIO schedules a reconnect.
func ClassifyClose(code int, message string) Kind {
	if code == CodeLoggedOut {
		return LoggedOut
	}
	if code == CodeForbidden || code == CodeReplaced {
		return SessionCorruption
	}
	lower := strings.ToLower(message)
	for _, sig := range corruptionSignatures {
		if strings.Contains(lower, sig) {
			return SessionCorruption
		}
	}
	return TransientIO
}
