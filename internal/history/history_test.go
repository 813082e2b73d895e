package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronalabs/drona/internal/assistant"
	"github.com/dronalabs/drona/internal/chat"
)

type fakeHistoryAPI struct {
	summaries []assistant.ChatSummary
	listErr   error

	pairs      []assistant.HistoryPair
	historyErr error
	lastChatID string
}

func (f *fakeHistoryAPI) ListChats(context.Context, assistant.Credential) ([]assistant.ChatSummary, error) {
	return f.summaries, f.listErr
}

func (f *fakeHistoryAPI) History(_ context.Context, _ assistant.Credential, chatID string) ([]assistant.HistoryPair, error) {
	f.lastChatID = chatID
	return f.pairs, f.historyErr
}

func TestListSessionsPreservesServerOrder(t *testing.T) {
	api := &fakeHistoryAPI{summaries: []assistant.ChatSummary{
		{ChatID: "c2", FirstQuestion: "later"},
		{ChatID: "c1", FirstQuestion: "earlier"},
	}}
	sync := NewSync(api, chat.NewLog(), assistant.Credential{}, nil)

	sessions, err := sync.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "c2", sessions[0].ChatID)
	assert.Equal(t, "c1", sessions[1].ChatID)
}

func TestLoadSessionBuildsPairwiseMessages(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	updated := created.Add(20 * time.Second)
	api := &fakeHistoryAPI{pairs: []assistant.HistoryPair{
		{Question: "q1", Answer: "a1", CreatedAt: created, UpdatedAt: updated},
		{Question: "q2", Answer: "a2", CreatedAt: created.Add(time.Minute), UpdatedAt: updated.Add(time.Minute)},
	}}
	log := chat.NewLog()
	sync := NewSync(api, log, assistant.Credential{}, nil)

	require.NoError(t, sync.LoadSession(context.Background(), "c1"))
	assert.Equal(t, "c1", api.lastChatID)

	messages := log.Messages()
	require.Len(t, messages, 4)
	assert.Equal(t, chat.RoleUser, messages[0].Role)
	assert.Equal(t, "q1", messages[0].Text)
	assert.Equal(t, created, messages[0].CreatedAt)
	assert.Equal(t, chat.RoleAssistant, messages[1].Role)
	assert.Equal(t, updated, messages[1].CreatedAt)
	assert.Equal(t, "q2", messages[2].Text)
	assert.Equal(t, "a2", messages[3].Text)
}

func TestLoadSessionFailureClearsLog(t *testing.T) {
	log := chat.NewLog()
	require.NoError(t, log.Append(chat.NewMessage(chat.RoleUser, "stale")))

	api := &fakeHistoryAPI{historyErr: errors.New("boom")}
	sync := NewSync(api, log, assistant.Credential{}, nil)

	require.Error(t, sync.LoadSession(context.Background(), "c1"))
	assert.Zero(t, log.Len())
}

func TestLoadSessionEmptyHistoryClearsLog(t *testing.T) {
	log := chat.NewLog()
	require.NoError(t, log.Append(chat.NewMessage(chat.RoleUser, "stale")))

	api := &fakeHistoryAPI{}
	sync := NewSync(api, log, assistant.Credential{}, nil)

	require.NoError(t, sync.LoadSession(context.Background(), "c1"))
	assert.Zero(t, log.Len())
}
