package chat

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDuplicateID indicates an append would break id uniqueness.
	ErrDuplicateID = errors.New("message id already present in log")
	// ErrTypingExists indicates a second in-flight placeholder was appended.
	ErrTypingExists = errors.New("a typing placeholder is already in the log")
	// ErrNotFound indicates the referenced message id is not in the log.
	ErrNotFound = errors.New("message not found")
	// ErrNoPrecedingQuestion indicates replace-tail targeted a message with no
	// user question immediately before it.
	ErrNoPrecedingQuestion = errors.New("no user question precedes the target message")
)

// Log is the ordered conversation record. It is a pure state container:
// callers own all I/O and decide what enters or leaves it.
type Log struct {
	mu       sync.RWMutex
	messages []Message
}

// NewLog returns an empty conversation log.
func NewLog() *Log {
	return &Log{}
}

// Append adds one message at the tail, preserving id uniqueness and the
// single-placeholder invariant.
func (l *Log) Append(msg Message) error {
	if msg.ID == "" {
		return fmt.Errorf("append: message id must not be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.messages {
		if existing.ID == msg.ID {
			return fmt.Errorf("append %q: %w", msg.ID, ErrDuplicateID)
		}
		if msg.Status == StatusTyping && existing.Status == StatusTyping {
			return ErrTypingExists
		}
	}

	l.messages = append(l.messages, msg)
	return nil
}

// RemoveByID drops the message with the given id. Removing an absent id is a
// no-op so placeholder cleanup can run on every error path.
func (l *Log) RemoveByID(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, msg := range l.messages {
		if msg.ID != id {
			continue
		}
		l.messages = append(l.messages[:i], l.messages[i+1:]...)
		return true
	}
	return false
}

// ReplaceTail truncates the log at and after the message with the given id
// and returns the user message immediately preceding it. Regeneration is
// undefined without an originating question, so the operation is rejected
// when the preceding entry is absent or not a user message; the log is left
// untouched on every error.
func (l *Log) ReplaceTail(fromID string) (Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	index := -1
	for i, msg := range l.messages {
		if msg.ID == fromID {
			index = i
			break
		}
	}
	if index < 0 {
		return Message{}, fmt.Errorf("replace tail %q: %w", fromID, ErrNotFound)
	}
	if index == 0 {
		return Message{}, fmt.Errorf("replace tail %q: %w", fromID, ErrNoPrecedingQuestion)
	}

	preceding := l.messages[index-1]
	if preceding.Role != RoleUser || preceding.Status != StatusFinal {
		return Message{}, fmt.Errorf("replace tail %q: %w", fromID, ErrNoPrecedingQuestion)
	}

	l.messages = l.messages[:index]
	return preceding, nil
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
}

// Replace swaps the whole log for a prepared sequence, used by history
// hydration. Id uniqueness is enforced across the replacement.
func (l *Log) Replace(messages []Message) error {
	seen := make(map[string]struct{}, len(messages))
	for _, msg := range messages {
		if msg.ID == "" {
			return fmt.Errorf("replace: message id must not be empty")
		}
		if _, dup := seen[msg.ID]; dup {
			return fmt.Errorf("replace %q: %w", msg.ID, ErrDuplicateID)
		}
		seen[msg.ID] = struct{}{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append([]Message(nil), messages...)
	return nil
}

// Messages returns an insertion-ordered snapshot.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len reports the current entry count.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// ByID returns the message with the given id.
func (l *Log) ByID(id string) (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, msg := range l.messages {
		if msg.ID == id {
			return msg, true
		}
	}
	return Message{}, false
}

// HasTyping reports whether an in-flight placeholder is present.
func (l *Log) HasTyping() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, msg := range l.messages {
		if msg.Status == StatusTyping {
			return true
		}
	}
	return false
}

// LastAssistant returns the most recent final assistant message.
func (l *Log) LastAssistant() (Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := len(l.messages) - 1; i >= 0; i-- {
		msg := l.messages[i]
		if msg.Role == RoleAssistant && msg.Status == StatusFinal {
			return msg, true
		}
	}
	return Message{}, false
}
