// Package assistant is the HTTP adapter for the remote assistant API.
package assistant

import "time"

// Credential identifies the caller on every remote request. It is supplied by
// the authentication layer at construction time; this package never mints or
// refreshes it.
type Credential struct {
	UserID string
	Token  string
}

// Answer is the result of one text exchange.
type Answer struct {
	Text   string
	ChatID string
}

// VoiceExchange is the result of one voice round trip: the server transcribes
// the uploaded audio, answers, and synthesizes speech for the answer.
type VoiceExchange struct {
	TranscribedText string
	InputAudioURL   string
	AITextResponse  string
	OutputAudioURL  string
}

// ChatSummary is one stored conversation in the server's chat list, ordered
// most-recent-first by the server.
type ChatSummary struct {
	ChatID        string
	FirstQuestion string
	CreatedAt     time.Time
}

// HistoryPair is one stored question/answer exchange of a conversation.
type HistoryPair struct {
	Question  string
	Answer    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
