// Package session coordinates exchanges between the conversation log and the
// remote assistant.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dronalabs/drona/internal/assistant"
	"github.com/dronalabs/drona/internal/audio"
	"github.com/dronalabs/drona/internal/chat"
	"github.com/dronalabs/drona/internal/notify"
	"github.com/dronalabs/drona/internal/playback"
)

var (
	// ErrBusy rejects a new exchange while one is in flight.
	ErrBusy = errors.New("an exchange is already in progress")
	// ErrEmptyMessage rejects whitespace-only outgoing text.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrEmptyAudio rejects voice exchanges with no captured audio.
	ErrEmptyAudio = errors.New("no audio captured")
)

const transportFailureText = "Unable to reach the assistant. Check your connection and try again."

// AssistantAPI is the session-facing subset of the remote client.
type AssistantAPI interface {
	AskQuestion(ctx context.Context, cred assistant.Credential, chatID string, question string) (assistant.Answer, error)
	VoiceToVoice(ctx context.Context, cred assistant.Credential, wav []byte, voiceID string, languageCode string) (assistant.VoiceExchange, error)
}

// Speaker plays a remote assistant reply clip out loud.
type Speaker interface {
	Speak(ctx context.Context, audioURL string) error
}

type noopSpeaker struct{}

func (noopSpeaker) Speak(context.Context, string) error { return nil }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, notify.Level, string) {}

// VoiceSettings carries the synthesis parameters for voice exchanges.
type VoiceSettings struct {
	VoiceID      string
	LanguageCode string
	Autoplay     bool
}

// Session owns one conversation: its log, its server-side chat identity, and
// the single-exchange-at-a-time invariant.
type Session struct {
	logger   *slog.Logger
	api      AssistantAPI
	log      *chat.Log
	speaker  Speaker
	notifier notify.Notifier
	cred     assistant.Credential
	voice    VoiceSettings

	mu      sync.Mutex
	chatID  string
	loading bool
}

// New constructs a session with safe default fallbacks.
func New(
	logger *slog.Logger,
	api AssistantAPI,
	log *chat.Log,
	speaker Speaker,
	notifier notify.Notifier,
	cred assistant.Credential,
	voice VoiceSettings,
) *Session {
	if log == nil {
		log = chat.NewLog()
	}
	if speaker == nil {
		speaker = noopSpeaker{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Session{
		logger:   logger,
		api:      api,
		log:      log,
		speaker:  speaker,
		notifier: notifier,
		cred:     cred,
		voice:    voice,
	}
}

// Log exposes the conversation log for rendering.
func (s *Session) Log() *chat.Log {
	return s.log
}

// IsLoading reports whether an exchange is in flight.
func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// ChatID returns the server-side conversation identity, empty for a fresh chat.
func (s *Session) ChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatID
}

// AdoptChat rebinds the session to an existing server-side conversation.
func (s *Session) AdoptChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatID = chatID
}

// Reset clears the log and drops the conversation identity.
func (s *Session) Reset() {
	s.mu.Lock()
	s.chatID = ""
	s.loading = false
	s.mu.Unlock()
	s.log.Clear()
}

// SendText runs one text exchange. The user message stays in the log whether
// the exchange succeeds or fails; failures join the log as error entries.
func (s *Session) SendText(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ErrEmptyMessage
	}

	if err := s.beginExchange(); err != nil {
		return err
	}
	defer s.endExchange()

	userMsg := chat.NewMessage(chat.RoleUser, trimmed)
	if err := s.log.Append(userMsg); err != nil {
		return err
	}

	return s.ask(ctx, trimmed)
}

// Regenerate discards the log tail after the question preceding messageID and
// re-asks that question under the same conversation identity.
func (s *Session) Regenerate(ctx context.Context, messageID string) error {
	if err := s.beginExchange(); err != nil {
		return err
	}
	defer s.endExchange()

	question, err := s.log.ReplaceTail(messageID)
	if err != nil {
		return err
	}

	return s.ask(ctx, question.Text)
}

// ask runs the question round-trip with a typing placeholder in the log.
func (s *Session) ask(ctx context.Context, question string) error {
	typing := chat.NewTyping()
	if err := s.log.Append(typing); err != nil {
		return err
	}

	start := time.Now()
	answer, err := s.api.AskQuestion(ctx, s.cred, s.ChatID(), question)
	s.log.RemoveByID(typing.ID)

	if err != nil {
		s.recordFailure(ctx, err)
		return err
	}

	if answer.ChatID != "" && s.ChatID() == "" {
		s.AdoptChat(answer.ChatID)
	}

	if appendErr := s.log.Append(chat.NewMessage(chat.RoleAssistant, answer.Text)); appendErr != nil {
		return appendErr
	}

	if s.logger != nil {
		s.logger.Info("text exchange complete",
			slog.String("chat_id", s.ChatID()),
			slog.Duration("latency", time.Since(start)),
		)
	}
	return nil
}

// SendAudio runs one voice exchange. On success the transcribed question and
// the spoken answer both join the log with their audio references.
func (s *Session) SendAudio(ctx context.Context, artifact audio.Artifact) error {
	if artifact.Empty() {
		return ErrEmptyAudio
	}

	if err := s.beginExchange(); err != nil {
		return err
	}
	defer s.endExchange()

	typing := chat.NewTyping()
	if err := s.log.Append(typing); err != nil {
		return err
	}

	start := time.Now()
	exchange, err := s.api.VoiceToVoice(ctx, s.cred, artifact.WAV, s.voice.VoiceID, s.voice.LanguageCode)
	s.log.RemoveByID(typing.ID)

	if err != nil {
		s.recordFailure(ctx, err)
		return err
	}

	userMsg := chat.NewMessage(chat.RoleUser, exchange.TranscribedText)
	userMsg.AudioRef = exchange.InputAudioURL
	if appendErr := s.log.Append(userMsg); appendErr != nil {
		return appendErr
	}

	assistantMsg := chat.NewMessage(chat.RoleAssistant, exchange.AITextResponse)
	assistantMsg.AudioRef = exchange.OutputAudioURL
	if appendErr := s.log.Append(assistantMsg); appendErr != nil {
		return appendErr
	}

	if s.logger != nil {
		s.logger.Info("voice exchange complete",
			slog.Duration("latency", time.Since(start)),
			slog.Int("wav_bytes", len(artifact.WAV)),
		)
	}

	if s.voice.Autoplay && exchange.OutputAudioURL != "" {
		s.speak(ctx, exchange.OutputAudioURL)
	}
	return nil
}

// speak dispatches reply playback. A blocked or failed playback degrades to a
// warning; the exchange itself already succeeded.
func (s *Session) speak(ctx context.Context, audioURL string) {
	err := s.speaker.Speak(ctx, audioURL)
	if err == nil {
		return
	}

	if errors.Is(err, playback.ErrPlaybackBlocked) {
		s.notifier.Notify(ctx, notify.LevelWarning, "Audio playback was blocked. Use /play to hear the reply.")
		return
	}
	s.notifier.Notify(ctx, notify.LevelWarning, fmt.Sprintf("Unable to play the reply: %v", err))
}

// recordFailure appends an in-log error entry and raises a transient notice.
func (s *Session) recordFailure(ctx context.Context, err error) {
	message := transportFailureText
	var apiErr *assistant.APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		message = apiErr.Message
	}

	_ = s.log.Append(chat.NewError(message))
	s.notifier.Notify(ctx, notify.LevelError, message)

	if s.logger != nil {
		s.logger.Error("exchange failed", "error", err.Error())
	}
}

func (s *Session) beginExchange() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return ErrBusy
	}
	s.loading = true
	return nil
}

func (s *Session) endExchange() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}
