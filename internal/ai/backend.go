// Package ai abstracts the language model backend behind small interfaces
// so the conversation engine can be exercised without network access.
package ai

import "context"

// Message is one prior exchange handed to the chat model.
type Message struct {
	Role    string
	Content string
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatBackend produces the tutor's reply for a learner turn.
type ChatBackend interface {
	// ChatComplete sends the persona prompt, the trimmed history and the
	// new input, returning the model's reply text.
	ChatComplete(ctx context.Context, system string, history []Message, input string) (string, error)
}

// SpeechBackend converts between voice audio and text.
type SpeechBackend interface {
	// Transcribe turns a voice note into text. An empty result means the
	// audio carried no usable speech.
	Transcribe(ctx context.Context, audio []byte) (string, error)
	// Synthesize renders reply text as opus voice audio.
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Backend is the full model surface the engine needs.
type Backend interface {
	ChatBackend
	SpeechBackend
}
