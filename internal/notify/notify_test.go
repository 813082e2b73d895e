package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dronalabs/drona/internal/config"
)

func TestTerminalNotifyWritesLine(t *testing.T) {
	var buf bytes.Buffer
	n := NewTerminal(&buf)

	n.Notify(context.Background(), LevelWarning, "audio playback blocked")
	assert.Equal(t, "[warning] audio playback blocked\n", buf.String())
}

func TestTerminalNotifySkipsEmptyMessage(t *testing.T) {
	var buf bytes.Buffer
	n := NewTerminal(&buf)

	n.Notify(context.Background(), LevelInfo, "   ")
	assert.Zero(t, buf.Len())
}

func TestNewSelectsBackend(t *testing.T) {
	var buf bytes.Buffer

	terminal := New(config.NotifyConfig{Backend: "terminal"}, &buf, nil)
	require.IsType(t, &Terminal{}, terminal)

	desktop := New(config.NotifyConfig{Backend: "desktop", DesktopAppName: "drona"}, &buf, nil)
	require.IsType(t, &Desktop{}, desktop)

	fallback := New(config.NotifyConfig{Backend: "growl"}, &buf, nil)
	require.IsType(t, &Terminal{}, fallback)
}
