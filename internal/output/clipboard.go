// Package output copies assistant answers to the system clipboard.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/dronalabs/drona/internal/config"
)

// ErrClipboardDisabled reports a missing clipboard command configuration.
var ErrClipboardDisabled = errors.New("clipboard command is not configured")

// Clipboard writes text through the configured clipboard command.
type Clipboard struct {
	config config.Config
	logger *slog.Logger
}

// NewClipboard constructs a clipboard writer from runtime config.
func NewClipboard(cfg config.Config, logger *slog.Logger) *Clipboard {
	return &Clipboard{config: cfg, logger: logger}
}

// Copy writes text to the clipboard command's stdin.
func (c *Clipboard) Copy(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if len(c.config.Clipboard.Argv) == 0 {
		return ErrClipboardDisabled
	}

	copyCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := runCommandWithInput(copyCtx, c.config.Clipboard.Argv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	if c.logger != nil {
		c.logger.Info("answer copied to clipboard", slog.Int("chars", len(text)))
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
