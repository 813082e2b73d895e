// Package history hydrates the conversation log from server-side chat records.
package history

import (
	"context"
	"log/slog"

	"github.com/dronalabs/drona/internal/assistant"
	"github.com/dronalabs/drona/internal/chat"
)

// HistoryAPI is the hydration-facing subset of the remote client.
type HistoryAPI interface {
	ListChats(ctx context.Context, cred assistant.Credential) ([]assistant.ChatSummary, error)
	History(ctx context.Context, cred assistant.Credential, chatID string) ([]assistant.HistoryPair, error)
}

// Sync loads past conversations into the local log.
type Sync struct {
	api    HistoryAPI
	log    *chat.Log
	cred   assistant.Credential
	logger *slog.Logger
}

// NewSync constructs a history loader over the given log.
func NewSync(api HistoryAPI, log *chat.Log, cred assistant.Credential, logger *slog.Logger) *Sync {
	return &Sync{api: api, log: log, cred: cred, logger: logger}
}

// ListSessions returns past conversations in the order the server sent them.
func (s *Sync) ListSessions(ctx context.Context) ([]assistant.ChatSummary, error) {
	return s.api.ListChats(ctx, s.cred)
}

// LoadSession replaces the log with the stored exchanges of one conversation.
// Each stored pair becomes two messages: the question stamped with the pair's
// creation time and the answer with its update time. A failed or empty load
// leaves the log cleared rather than carrying stale entries.
func (s *Sync) LoadSession(ctx context.Context, chatID string) error {
	pairs, err := s.api.History(ctx, s.cred, chatID)
	if err != nil {
		s.log.Clear()
		return err
	}
	if len(pairs) == 0 {
		s.log.Clear()
		return nil
	}

	messages := make([]chat.Message, 0, len(pairs)*2)
	for _, pair := range pairs {
		question := chat.NewMessage(chat.RoleUser, pair.Question)
		question.CreatedAt = pair.CreatedAt
		answer := chat.NewMessage(chat.RoleAssistant, pair.Answer)
		answer.CreatedAt = pair.UpdatedAt
		messages = append(messages, question, answer)
	}

	if err := s.log.Replace(messages); err != nil {
		s.log.Clear()
		return err
	}

	if s.logger != nil {
		s.logger.Info("chat history loaded",
			slog.String("chat_id", chatID),
			slog.Int("pairs", len(pairs)),
		)
	}
	return nil
}
