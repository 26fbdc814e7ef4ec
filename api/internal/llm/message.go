// Package llm wraps chat-completion backends behind a retrying client.
package llm

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Backend performs a single blocking completion call. The messages it
// receives never start with a system turn: the client folds the system
// prompt into the first message before calling it.
type Backend interface {
	GetModel() string
	Complete(ctx context.Context, msgs []Message) (string, error)
}

// Completer is what the solver and the chat handlers consume.
type Completer interface {
	Complete(ctx context.Context, msgs []Message, system string, maxAttempts int) (string, error)
}

// Recorder observes completion attempts. metrics.Recorder implements it.
type Recorder interface {
	ObserveCompletion(provider, status string, seconds float64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCompletion(string, string, float64) {}
