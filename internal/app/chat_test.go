package app

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronalabs/drona/internal/assistant"
	"github.com/dronalabs/drona/internal/audio"
	"github.com/dronalabs/drona/internal/chat"
	"github.com/dronalabs/drona/internal/fsm"
	"github.com/dronalabs/drona/internal/playback"
	"github.com/dronalabs/drona/internal/recorder"
	"github.com/dronalabs/drona/internal/session"
)

type scriptedAPI struct {
	answer   assistant.Answer
	exchange assistant.VoiceExchange
	asked    []string
}

func (s *scriptedAPI) AskQuestion(_ context.Context, _ assistant.Credential, _ string, question string) (assistant.Answer, error) {
	s.asked = append(s.asked, question)
	return s.answer, nil
}

func (s *scriptedAPI) VoiceToVoice(context.Context, assistant.Credential, []byte, string, string) (assistant.VoiceExchange, error) {
	return s.exchange, nil
}

type scriptedRecorder struct {
	state    fsm.State
	artifact audio.Artifact
	startErr error
}

func (r *scriptedRecorder) Start(context.Context) error {
	if r.startErr != nil {
		return r.startErr
	}
	r.state = fsm.StateCapturing
	return nil
}

func (r *scriptedRecorder) Stop(context.Context) (audio.Artifact, error) {
	r.state = fsm.StateIdle
	return r.artifact, nil
}

func (r *scriptedRecorder) Cancel(context.Context) error {
	if r.state != fsm.StateCapturing {
		return recorder.ErrNotCapturing
	}
	r.state = fsm.StateIdle
	return nil
}

func (r *scriptedRecorder) State() fsm.State { return r.state }

type scriptedHistory struct {
	summaries []assistant.ChatSummary
	loaded    []string
	log       *chat.Log
	pairs     []chat.Message
}

func (h *scriptedHistory) ListSessions(context.Context) ([]assistant.ChatSummary, error) {
	return h.summaries, nil
}

func (h *scriptedHistory) LoadSession(_ context.Context, chatID string) error {
	h.loaded = append(h.loaded, chatID)
	return h.log.Replace(h.pairs)
}

type scriptedPlayer struct {
	toggled []string
	playing map[string]bool
}

func (p *scriptedPlayer) Toggle(_ context.Context, messageID string, _ playback.Clip) (bool, error) {
	p.toggled = append(p.toggled, messageID)
	if p.playing == nil {
		p.playing = make(map[string]bool)
	}
	p.playing[messageID] = !p.playing[messageID]
	return p.playing[messageID], nil
}

func (p *scriptedPlayer) MessagePlaying(messageID string) bool { return p.playing[messageID] }

type scriptedClipboard struct {
	copied []string
}

func (c *scriptedClipboard) Copy(_ context.Context, text string) error {
	c.copied = append(c.copied, text)
	return nil
}

type loopFixture struct {
	loop         *chatLoop
	api          *scriptedAPI
	recorder     *scriptedRecorder
	history      *scriptedHistory
	player       *scriptedPlayer
	clipboard    *scriptedClipboard
	stdout       *bytes.Buffer
	stderr       *bytes.Buffer
	fetchClients []*http.Client
}

func newLoopFixture(input string) *loopFixture {
	api := &scriptedAPI{answer: assistant.Answer{Text: "stretch slowly", ChatID: "c1"}}
	log := chat.NewLog()
	sess := session.New(nil, api, log, nil, nil, assistant.Credential{UserID: "u", Token: "t"},
		session.VoiceSettings{VoiceID: "Joanna", LanguageCode: "en-US"})

	rec := &scriptedRecorder{state: fsm.StateIdle}
	hist := &scriptedHistory{log: log}
	player := &scriptedPlayer{}
	clip := &scriptedClipboard{}
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	f := &loopFixture{api: api, recorder: rec, history: hist, player: player, clipboard: clip, stdout: stdout, stderr: stderr}
	f.loop = &chatLoop{
		session:  sess,
		recorder: rec,
		history:  hist,
		player:   player,
		fetchClip: func(_ context.Context, client *http.Client, _ string) (playback.Clip, error) {
			f.fetchClients = append(f.fetchClients, client)
			return playback.Clip{Samples: []int16{1, 2}, SampleRate: 16000, Channels: 1}, nil
		},
		clipboard: clip,
		in:        strings.NewReader(input),
		out:       stdout,
		errw:      stderr,
	}
	return f
}

func TestChatLoopTextExchange(t *testing.T) {
	f := newLoopFixture("how do I start\n/quit\n")

	code := f.loop.run(context.Background())
	require.Equal(t, 0, code)

	assert.Equal(t, []string{"how do I start"}, f.api.asked)
	assert.Contains(t, f.stdout.String(), "drona: stretch slowly")
}

func TestChatLoopVoiceExchange(t *testing.T) {
	f := newLoopFixture("/record\n/record\n/quit\n")
	f.recorder.artifact = audio.NewArtifact([]byte{1, 0, 2, 0}, audio.CaptureSampleRate, audio.CaptureChannels)
	f.api.exchange = assistant.VoiceExchange{
		TranscribedText: "voice question",
		InputAudioURL:   "https://cdn.example/in.wav",
		AITextResponse:  "voice answer",
		OutputAudioURL:  "https://cdn.example/out.wav",
	}

	code := f.loop.run(context.Background())
	require.Equal(t, 0, code)

	out := f.stdout.String()
	assert.Contains(t, out, "Recording.")
	assert.Contains(t, out, "you: voice question [audio]")
	assert.Contains(t, out, "drona: voice answer [audio]")
}

func TestChatLoopCancelRecording(t *testing.T) {
	f := newLoopFixture("/record\n/cancel\n/quit\n")

	require.Equal(t, 0, f.loop.run(context.Background()))
	assert.Contains(t, f.stdout.String(), "Recording discarded.")
	assert.Equal(t, fsm.StateIdle, f.recorder.state)
}

func TestChatLoopCancelWithoutRecording(t *testing.T) {
	f := newLoopFixture("/cancel\n/quit\n")

	require.Equal(t, 0, f.loop.run(context.Background()))
	assert.Contains(t, f.stderr.String(), "No recording in progress.")
}

func TestChatLoopHistoryOpen(t *testing.T) {
	f := newLoopFixture("/history\n/open 1\n/quit\n")
	f.history.summaries = []assistant.ChatSummary{
		{ChatID: "c9", FirstQuestion: "old question", CreatedAt: time.Date(2026, 1, 2, 10, 30, 0, 0, time.UTC)},
	}
	f.history.pairs = []chat.Message{
		chat.NewMessage(chat.RoleUser, "old question"),
		chat.NewMessage(chat.RoleAssistant, "old answer"),
	}

	require.Equal(t, 0, f.loop.run(context.Background()))

	out := f.stdout.String()
	assert.Contains(t, out, "old question")
	assert.Contains(t, out, "drona: old answer")
	assert.Equal(t, []string{"c9"}, f.history.loaded)
}

func TestChatLoopRegenerate(t *testing.T) {
	f := newLoopFixture("first question\n/regen\n/quit\n")

	require.Equal(t, 0, f.loop.run(context.Background()))

	require.Equal(t, []string{"first question", "first question"}, f.api.asked)
}

func TestChatLoopRegenerateWithoutAnswer(t *testing.T) {
	f := newLoopFixture("/regen\n/quit\n")

	require.Equal(t, 0, f.loop.run(context.Background()))
	assert.Contains(t, f.stderr.String(), "Nothing to regenerate yet.")
}

func TestChatLoopPlayLatestReply(t *testing.T) {
	f := newLoopFixture("/record\n/record\n/play\n/play\n/quit\n")
	f.recorder.artifact = audio.NewArtifact([]byte{1, 0}, audio.CaptureSampleRate, audio.CaptureChannels)
	f.api.exchange = assistant.VoiceExchange{
		AITextResponse: "voice answer",
		OutputAudioURL: "https://cdn.example/out.wav",
	}

	require.Equal(t, 0, f.loop.run(context.Background()))

	require.Len(t, f.player.toggled, 2)
	assert.Equal(t, f.player.toggled[0], f.player.toggled[1])
	assert.Contains(t, f.stdout.String(), "Playing.")
	assert.Contains(t, f.stdout.String(), "Paused.")

	// fetch goes through the playback package's own default client
	require.Len(t, f.fetchClients, 1)
	assert.Nil(t, f.fetchClients[0])
}

func TestChatLoopPlayWithoutAudio(t *testing.T) {
	f := newLoopFixture("hello\n/play\n/quit\n")

	require.Equal(t, 0, f.loop.run(context.Background()))
	assert.Contains(t, f.stderr.String(), "No spoken reply to play.")
}

func TestChatLoopCopyAnswer(t *testing.T) {
	f := newLoopFixture("hello\n/copy\n/quit\n")

	require.Equal(t, 0, f.loop.run(context.Background()))
	assert.Equal(t, []string{"stretch slowly"}, f.clipboard.copied)
	assert.Contains(t, f.stdout.String(), "Copied.")
}

func TestChatLoopCopyWithoutAnswer(t *testing.T) {
	f := newLoopFixture("/copy\n/quit\n")

	require.Equal(t, 0, f.loop.run(context.Background()))
	assert.Contains(t, f.stderr.String(), "No answer to copy yet.")
}

func TestChatLoopNewConversation(t *testing.T) {
	f := newLoopFixture("hello\n/new\n/quit\n")

	require.Equal(t, 0, f.loop.run(context.Background()))
	assert.Contains(t, f.stdout.String(), "Started a new conversation.")
	assert.Zero(t, f.loop.session.Log().Len())
}

func TestChatLoopUnknownCommand(t *testing.T) {
	f := newLoopFixture("/dance\n/quit\n")

	require.Equal(t, 0, f.loop.run(context.Background()))
	assert.Contains(t, f.stderr.String(), "unknown command /dance")
}
