package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	questionPath = "/api/auth/chat-question"
	voicePath    = "/api/voice/voice-to-voice"
	chatListPath = "/api/auth/chat-list"
	historyPath  = "/api/auth/chat-history"

	defaultTimeout = 30 * time.Second
)

var (
	// ErrTransport wraps network-level failures reaching the API.
	ErrTransport = errors.New("assistant transport failure")
	// ErrMalformedResponse indicates the server replied outside its envelope contract.
	ErrMalformedResponse = errors.New("assistant response malformed")
)

// APIError is an application-level failure reported inside a well-formed
// response envelope. Its message is suitable for showing to the user.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return "assistant request failed"
	}
	return e.Message
}

// Config holds the remote endpoint settings for the client.
type Config struct {
	BaseURL     string
	AssistantID string
	Timeout     time.Duration
}

// ValidateConfig enforces the settings the client cannot run without.
func ValidateConfig(cfg Config) error {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return fmt.Errorf("assistant base URL is required")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("assistant base URL must start with http:// or https://, got %q", base)
	}
	if strings.TrimSpace(cfg.AssistantID) == "" {
		return fmt.Errorf("assistant id is required")
	}
	return nil
}

// Client issues the four assistant API calls. All methods classify failures
// as transport errors, *APIError application failures, or malformed responses.
type Client struct {
	baseURL     string
	assistantID string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient constructs a validated API client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		assistantID: strings.TrimSpace(cfg.AssistantID),
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

// AssistantID returns the fixed assistant target attached to every exchange.
func (c *Client) AssistantID() string {
	return c.assistantID
}

type questionRequest struct {
	Question    string `json:"question"`
	UserID      string `json:"user_id"`
	Token       string `json:"token"`
	AssistantID string `json:"assistantId"`
	ChatID      string `json:"chat_id,omitempty"`
}

type questionEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Answer string `json:"answer"`
		ChatID string `json:"chat_id"`
	} `json:"data"`
}

// AskQuestion runs one text exchange. chatID may be empty for a new
// conversation; the server assigns one and returns it.
func (c *Client) AskQuestion(ctx context.Context, cred Credential, chatID string, question string) (Answer, error) {
	payload := questionRequest{
		Question:    question,
		UserID:      cred.UserID,
		Token:       cred.Token,
		AssistantID: c.assistantID,
		ChatID:      chatID,
	}

	var envelope questionEnvelope
	if err := c.postJSON(ctx, questionPath, cred, payload, &envelope); err != nil {
		return Answer{}, err
	}
	if !envelope.Success {
		return Answer{}, &APIError{Message: fallbackMessage(envelope.Message, "failed to get response from assistant")}
	}
	if strings.TrimSpace(envelope.Data.Answer) == "" {
		return Answer{}, fmt.Errorf("chat-question success without answer: %w", ErrMalformedResponse)
	}
	return Answer{Text: envelope.Data.Answer, ChatID: envelope.Data.ChatID}, nil
}

type voiceEnvelope struct {
	Success bool   `json:"success"`
	Err     string `json:"error"`
	Data    struct {
		TranscribedText string `json:"transcribedText"`
		InputAudioURL   string `json:"inputAudioUrl"`
		AITextResponse  string `json:"aiTextResponse"`
		OutputAudioURL  string `json:"outputAudioUrl"`
	} `json:"data"`
}

// VoiceToVoice uploads one finished capture artifact and returns the
// transcription plus the spoken answer.
func (c *Client) VoiceToVoice(ctx context.Context, cred Credential, wav []byte, voiceID string, languageCode string) (VoiceExchange, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return VoiceExchange{}, fmt.Errorf("build voice upload: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return VoiceExchange{}, fmt.Errorf("build voice upload: %w", err)
	}

	fields := map[string]string{
		"user_id":      cred.UserID,
		"token":        cred.Token,
		"assistantId":  c.assistantID,
		"voiceId":      voiceID,
		"languageCode": languageCode,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return VoiceExchange{}, fmt.Errorf("build voice upload field %q: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return VoiceExchange{}, fmt.Errorf("build voice upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+voicePath, &body)
	if err != nil {
		return VoiceExchange{}, fmt.Errorf("build voice request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	var envelope voiceEnvelope
	if err := c.do(req, &envelope); err != nil {
		return VoiceExchange{}, err
	}
	if !envelope.Success {
		return VoiceExchange{}, &APIError{Message: fallbackMessage(envelope.Err, "failed to process voice message")}
	}
	if strings.TrimSpace(envelope.Data.AITextResponse) == "" {
		return VoiceExchange{}, fmt.Errorf("voice-to-voice success without answer text: %w", ErrMalformedResponse)
	}
	if strings.TrimSpace(envelope.Data.OutputAudioURL) == "" {
		return VoiceExchange{}, fmt.Errorf("voice-to-voice success without reply audio: %w", ErrMalformedResponse)
	}

	return VoiceExchange{
		TranscribedText: envelope.Data.TranscribedText,
		InputAudioURL:   envelope.Data.InputAudioURL,
		AITextResponse:  envelope.Data.AITextResponse,
		OutputAudioURL:  envelope.Data.OutputAudioURL,
	}, nil
}

type chatListRequest struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type chatListEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Chats []struct {
			ChatID        string `json:"chat_id"`
			FirstQuestion string `json:"first_question"`
			CreatedAt     string `json:"created_at"`
		} `json:"chats"`
	} `json:"data"`
}

// ListChats fetches the stored conversation summaries in server order.
func (c *Client) ListChats(ctx context.Context, cred Credential) ([]ChatSummary, error) {
	payload := chatListRequest{UserID: cred.UserID, Token: cred.Token}

	var envelope chatListEnvelope
	if err := c.postJSON(ctx, chatListPath, cred, payload, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, &APIError{Message: fallbackMessage(envelope.Message, "failed to fetch chat list")}
	}

	summaries := make([]ChatSummary, 0, len(envelope.Data.Chats))
	for _, entry := range envelope.Data.Chats {
		summaries = append(summaries, ChatSummary{
			ChatID:        entry.ChatID,
			FirstQuestion: entry.FirstQuestion,
			CreatedAt:     parseTimestamp(entry.CreatedAt),
		})
	}
	return summaries, nil
}

type historyRequest struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type historyEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		History []struct {
			Question  string `json:"question"`
			Answer    string `json:"answer"`
			CreatedAt string `json:"created_at"`
			UpdatedAt string `json:"updated_at"`
		} `json:"history"`
	} `json:"data"`
}

// History fetches the stored question/answer transcript of one conversation.
func (c *Client) History(ctx context.Context, cred Credential, chatID string) ([]HistoryPair, error) {
	payload := historyRequest{ChatID: chatID, UserID: cred.UserID, Token: cred.Token}

	var envelope historyEnvelope
	if err := c.postJSON(ctx, historyPath, cred, payload, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, &APIError{Message: fallbackMessage(envelope.Message, "failed to fetch chat history")}
	}

	pairs := make([]HistoryPair, 0, len(envelope.Data.History))
	for _, entry := range envelope.Data.History {
		pairs = append(pairs, HistoryPair{
			Question:  entry.Question,
			Answer:    entry.Answer,
			CreatedAt: parseTimestamp(entry.CreatedAt),
			UpdatedAt: parseTimestamp(entry.UpdatedAt),
		})
	}
	return pairs, nil
}

// postJSON issues one JSON POST and decodes the envelope into out.
func (c *Client) postJSON(ctx context.Context, path string, cred Credential, payload any, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request for %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	return c.do(req, out)
}

// do executes the request and decodes the response body into out.
func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	if c.logger != nil {
		c.logger.Info("assistant call",
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, ErrMalformedResponse)
	}
	return nil
}

// parseTimestamp accepts the server's timestamp formats, returning the zero
// time when none match.
func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func fallbackMessage(message string, fallback string) string {
	if strings.TrimSpace(message) == "" {
		return fallback
	}
	return message
}
