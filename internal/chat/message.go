// Package chat owns the ordered conversation log and its message lifecycle states.
package chat

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusTyping  Status = "typing"
	StatusFinal   Status = "final"
	StatusError   Status = "error"
)

// Message is one conversation log entry. AudioRef, when set, points at a
// playable clip for the entry.
type Message struct {
	ID        string
	Role      Role
	Text      string
	CreatedAt time.Time
	AudioRef  string
	Status    Status
}

// IsTerminal reports whether the message is a settled log entry rather than
// an in-flight placeholder.
func (m Message) IsTerminal() bool {
	return m.Status == StatusFinal || m.Status == StatusError
}

// NewMessage builds a final message with a fresh unique id.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
		Status:    StatusFinal,
	}
}

// NewTyping builds the transient assistant placeholder shown while an
// exchange is in flight. It must never be persisted.
func NewTyping() Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
		Status:    StatusTyping,
	}
}

// NewError builds an assistant-side error entry carrying a human-readable
// cause. Errors are additive: they join the log instead of rolling it back.
func NewError(cause string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Text:      cause,
		CreatedAt: time.Now(),
		Status:    StatusError,
	}
}
