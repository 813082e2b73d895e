// Package notify delivers transient user-facing notices outside the chat log.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/dronalabs/drona/internal/config"
)

// Level distinguishes informational notices from warnings and failures.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier delivers one transient notice. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
}

// New selects a backend from config. Unknown backends fall back to terminal
// output so notices are never silently dropped.
func New(cfg config.NotifyConfig, stderr io.Writer, logger *slog.Logger) Notifier {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "desktop":
		return &Desktop{
			appName:   cfg.DesktopAppName,
			timeoutMS: cfg.TimeoutMS,
			logger:    logger,
		}
	default:
		return &Terminal{out: stderr}
	}
}

// Terminal writes notices to a writer, one line per notice.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminal constructs a terminal notifier over out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

func (t *Terminal) Notify(_ context.Context, level Level, message string) {
	if t.out == nil || strings.TrimSpace(message) == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "[%s] %s\n", level, message)
}

// Desktop sends freedesktop notifications over DBus, replacing the previous
// notice so repeated warnings do not stack.
type Desktop struct {
	appName   string
	timeoutMS int
	logger    *slog.Logger

	mu     sync.Mutex
	lastID uint32
}

func (d *Desktop) Notify(ctx context.Context, level Level, message string) {
	if strings.TrimSpace(message) == "" {
		return
	}

	summary := message
	switch level {
	case LevelWarning:
		summary = "Warning: " + message
	case LevelError:
		summary = "Error: " + message
	}

	d.mu.Lock()
	replaceID := d.lastID
	d.mu.Unlock()

	id, err := desktopNotify(ctx, d.appName, replaceID, summary, d.timeoutMS)
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("desktop notification failed", "error", err.Error())
		}
		return
	}

	d.mu.Lock()
	d.lastID = id
	d.mu.Unlock()
}
