package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dronalabs/drona/internal/assistant"
	"github.com/dronalabs/drona/internal/audio"
	"github.com/dronalabs/drona/internal/chat"
	"github.com/dronalabs/drona/internal/fsm"
	"github.com/dronalabs/drona/internal/playback"
	"github.com/dronalabs/drona/internal/recorder"
	"github.com/dronalabs/drona/internal/session"
)

type exchanger interface {
	SendText(ctx context.Context, text string) error
	SendAudio(ctx context.Context, artifact audio.Artifact) error
	Regenerate(ctx context.Context, messageID string) error
	IsLoading() bool
	AdoptChat(chatID string)
	Reset()
	Log() *chat.Log
}

type voiceRecorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (audio.Artifact, error)
	Cancel(ctx context.Context) error
	State() fsm.State
}

type historyBrowser interface {
	ListSessions(ctx context.Context) ([]assistant.ChatSummary, error)
	LoadSession(ctx context.Context, chatID string) error
}

type messagePlayer interface {
	Toggle(ctx context.Context, messageID string, clip playback.Clip) (bool, error)
	MessagePlaying(messageID string) bool
}

type answerCopier interface {
	Copy(ctx context.Context, text string) error
}

// chatLoop drives the interactive conversation over stdin/stdout.
type chatLoop struct {
	session   exchanger
	recorder  voiceRecorder
	history   historyBrowser
	player    messagePlayer
	fetchClip func(ctx context.Context, client *http.Client, url string) (playback.Clip, error)
	clipboard answerCopier
	in        io.Reader
	out       io.Writer
	errw      io.Writer

	sessions []assistant.ChatSummary
}

func (l *chatLoop) run(ctx context.Context) int {
	fmt.Fprintln(l.out, "Connected. Type a message, or /help for commands.")

	scanner := bufio.NewScanner(l.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if ctx.Err() != nil {
			return 0
		}

		fmt.Fprint(l.out, l.prompt())
		if !scanner.Scan() {
			return 0
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := l.handleCommand(ctx, line); quit {
				return 0
			}
			continue
		}

		l.sendText(ctx, line)
	}
}

func (l *chatLoop) prompt() string {
	if l.recorder.State() == fsm.StateCapturing {
		return "[recording] > "
	}
	return "> "
}

func (l *chatLoop) handleCommand(ctx context.Context, line string) (quit bool) {
	fields := strings.Fields(line)
	command := fields[0]
	args := fields[1:]

	switch command {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(l.out, "/record /cancel /history /open N /regen /play [N] /copy /new /quit")
	case "/record":
		l.toggleRecording(ctx)
	case "/cancel":
		l.cancelRecording(ctx)
	case "/history":
		l.listHistory(ctx)
	case "/open":
		l.openSession(ctx, args)
	case "/regen":
		l.regenerate(ctx)
	case "/play":
		l.play(ctx, args)
	case "/copy":
		l.copyAnswer(ctx)
	case "/new":
		l.session.Reset()
		fmt.Fprintln(l.out, "Started a new conversation.")
	default:
		fmt.Fprintf(l.errw, "unknown command %s; try /help\n", command)
	}
	return false
}

func (l *chatLoop) sendText(ctx context.Context, text string) {
	if l.session.IsLoading() {
		fmt.Fprintln(l.errw, "Still waiting for the previous reply.")
		return
	}

	if err := l.session.SendText(ctx, text); err != nil {
		if errors.Is(err, session.ErrEmptyMessage) || errors.Is(err, session.ErrBusy) {
			fmt.Fprintf(l.errw, "error: %v\n", err)
			return
		}
		// exchange failures already joined the log as error entries
	}
	l.renderLast()
}

func (l *chatLoop) toggleRecording(ctx context.Context) {
	if l.recorder.State() == fsm.StateCapturing {
		artifact, err := l.recorder.Stop(ctx)
		if err != nil {
			fmt.Fprintf(l.errw, "error: %v\n", err)
			return
		}
		if artifact.Empty() {
			fmt.Fprintln(l.errw, "Nothing was recorded.")
			return
		}

		fmt.Fprintf(l.out, "Sending %.1fs of audio...\n", artifact.Duration.Seconds())
		if err := l.session.SendAudio(ctx, artifact); err != nil && errors.Is(err, session.ErrBusy) {
			fmt.Fprintf(l.errw, "error: %v\n", err)
			return
		}
		l.renderVoiceTail()
		return
	}

	if err := l.recorder.Start(ctx); err != nil {
		var captureErr *audio.CaptureError
		if errors.As(err, &captureErr) {
			fmt.Fprintf(l.errw, "error: %s\n", captureErr.Remediation())
			return
		}
		fmt.Fprintf(l.errw, "error: %v\n", err)
		return
	}
	fmt.Fprintln(l.out, "Recording. Use /record to send or /cancel to discard.")
}

func (l *chatLoop) cancelRecording(ctx context.Context) {
	if err := l.recorder.Cancel(ctx); err != nil {
		if errors.Is(err, recorder.ErrNotCapturing) {
			fmt.Fprintln(l.errw, "No recording in progress.")
			return
		}
		fmt.Fprintf(l.errw, "error: %v\n", err)
		return
	}
	fmt.Fprintln(l.out, "Recording discarded.")
}

func (l *chatLoop) listHistory(ctx context.Context) {
	sessions, err := l.history.ListSessions(ctx)
	if err != nil {
		fmt.Fprintf(l.errw, "error: %v\n", err)
		return
	}
	if len(sessions) == 0 {
		fmt.Fprintln(l.out, "No past conversations.")
		l.sessions = nil
		return
	}

	l.sessions = sessions
	for i, summary := range sessions {
		fmt.Fprintf(l.out, "%3d  %s  %s\n", i+1, summary.CreatedAt.Format("2006-01-02 15:04"), summary.FirstQuestion)
	}
	fmt.Fprintln(l.out, "Use /open N to load a conversation.")
}

func (l *chatLoop) openSession(ctx context.Context, args []string) {
	if len(l.sessions) == 0 {
		sessions, err := l.history.ListSessions(ctx)
		if err != nil {
			fmt.Fprintf(l.errw, "error: %v\n", err)
			return
		}
		l.sessions = sessions
	}

	index, err := parseIndex(args, len(l.sessions))
	if err != nil {
		fmt.Fprintf(l.errw, "error: %v\n", err)
		return
	}

	summary := l.sessions[index-1]
	if err := l.history.LoadSession(ctx, summary.ChatID); err != nil {
		fmt.Fprintf(l.errw, "error: %v\n", err)
		return
	}

	l.session.AdoptChat(summary.ChatID)
	l.renderAll()
}

func (l *chatLoop) regenerate(ctx context.Context) {
	last, ok := l.session.Log().LastAssistant()
	if !ok {
		fmt.Fprintln(l.errw, "Nothing to regenerate yet.")
		return
	}

	if err := l.session.Regenerate(ctx, last.ID); err != nil {
		if errors.Is(err, chat.ErrNoPrecedingQuestion) || errors.Is(err, chat.ErrNotFound) || errors.Is(err, session.ErrBusy) {
			fmt.Fprintf(l.errw, "error: %v\n", err)
			return
		}
	}
	l.renderLast()
}

func (l *chatLoop) play(ctx context.Context, args []string) {
	messages := l.session.Log().Messages()

	var target chat.Message
	if len(args) == 0 {
		for i := len(messages) - 1; i >= 0; i-- {
			if messages[i].Role == chat.RoleAssistant && messages[i].AudioRef != "" {
				target = messages[i]
				break
			}
		}
		if target.ID == "" {
			fmt.Fprintln(l.errw, "No spoken reply to play.")
			return
		}
	} else {
		index, err := parseIndex(args, len(messages))
		if err != nil {
			fmt.Fprintf(l.errw, "error: %v\n", err)
			return
		}
		target = messages[index-1]
		if target.AudioRef == "" {
			fmt.Fprintln(l.errw, "That message has no audio.")
			return
		}
	}

	var clip playback.Clip
	if !l.player.MessagePlaying(target.ID) {
		fetched, err := l.fetchClip(ctx, nil, target.AudioRef)
		if err != nil {
			fmt.Fprintf(l.errw, "error: %v\n", err)
			return
		}
		clip = fetched
	}

	playing, err := l.player.Toggle(ctx, target.ID, clip)
	if err != nil {
		fmt.Fprintf(l.errw, "error: %v\n", err)
		return
	}
	if playing {
		fmt.Fprintln(l.out, "Playing. Use /play again to pause.")
	} else {
		fmt.Fprintln(l.out, "Paused.")
	}
}

func (l *chatLoop) copyAnswer(ctx context.Context) {
	last, ok := l.session.Log().LastAssistant()
	if !ok {
		fmt.Fprintln(l.errw, "No answer to copy yet.")
		return
	}
	if err := l.clipboard.Copy(ctx, last.Text); err != nil {
		fmt.Fprintf(l.errw, "error: %v\n", err)
		return
	}
	fmt.Fprintln(l.out, "Copied.")
}

// renderLast prints the newest log entry, which after an exchange is either
// the assistant reply or the in-log error.
func (l *chatLoop) renderLast() {
	messages := l.session.Log().Messages()
	if len(messages) == 0 {
		return
	}
	l.renderMessage(len(messages), messages[len(messages)-1])
}

// renderVoiceTail prints the transcribed question and the reply it produced.
func (l *chatLoop) renderVoiceTail() {
	messages := l.session.Log().Messages()
	start := len(messages) - 2
	if start < 0 {
		start = 0
	}
	for i := start; i < len(messages); i++ {
		l.renderMessage(i+1, messages[i])
	}
}

func (l *chatLoop) renderAll() {
	for i, msg := range l.session.Log().Messages() {
		l.renderMessage(i+1, msg)
	}
}

func (l *chatLoop) renderMessage(number int, msg chat.Message) {
	prefix := "you"
	switch {
	case msg.Status == chat.StatusError:
		prefix = "error"
	case msg.Role == chat.RoleAssistant:
		prefix = "drona"
	}

	audioMark := ""
	if msg.AudioRef != "" {
		audioMark = " [audio]"
	}
	fmt.Fprintf(l.out, "%3d %s: %s%s\n", number, prefix, msg.Text, audioMark)
}

func parseIndex(args []string, limit int) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("an entry number is required")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid entry number %q", args[0])
	}
	if index < 1 || index > limit {
		return 0, fmt.Errorf("entry %d is out of range (1-%d)", index, limit)
	}
	return index, nil
}
