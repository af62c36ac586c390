package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamFunc receives answer chunks in arrival order.
type StreamFunc func(ctx context.Context, chunk []byte) error

// Client separates the two ways an answer is consumed: fully materialized
// text for decision steps, and a live token stream for user-facing output.
type Client interface {
	CompleteText(ctx context.Context, messages []Message) (string, error)
	StreamText(ctx context.Context, messages []Message, fn StreamFunc) error
}

// ValidRole reports whether role is one of the recognized chat roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}
