// Package recorder owns the microphone capture lifecycle for voice messages.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dronalabs/drona/internal/audio"
	"github.com/dronalabs/drona/internal/config"
	"github.com/dronalabs/drona/internal/fsm"
)

var (
	// ErrAlreadyCapturing rejects Start while a capture is in flight.
	ErrAlreadyCapturing = errors.New("already capturing")
	// ErrNotCapturing rejects Stop/Cancel when no capture is in flight.
	ErrNotCapturing = errors.New("no capture in progress")
)

type capturer interface {
	Stop() error
	RawPCM() []byte
	BytesCaptured() int64
	Device() audio.Device
}

// Recorder drives the capture state machine: idle, capturing, finalizing.
// Exactly one artifact is produced per successful Stop, and the input
// stream is released on every exit path.
type Recorder struct {
	cfg    config.Config
	logger *slog.Logger

	selectDevice func(ctx context.Context, input, fallback string) (audio.Selection, error)
	startCapture func(ctx context.Context, device audio.Device) (capturer, error)

	mu        sync.Mutex
	state     fsm.State
	capture   capturer
	selection audio.Selection
}

// New constructs a Recorder bound to live Pulse capture.
func New(cfg config.Config, logger *slog.Logger) *Recorder {
	return &Recorder{
		cfg:          cfg,
		logger:       logger,
		state:        fsm.StateIdle,
		selectDevice: audio.SelectDevice,
		startCapture: func(ctx context.Context, device audio.Device) (capturer, error) {
			return audio.StartCapture(ctx, device)
		},
	}
}

// State returns the current lifecycle state snapshot.
func (r *Recorder) State() fsm.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start selects an input device and begins accumulating PCM.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != fsm.StateIdle {
		return fmt.Errorf("%w (state %s)", ErrAlreadyCapturing, r.state)
	}

	selection, err := r.selectDevice(ctx, r.cfg.Audio.Input, r.cfg.Audio.Fallback)
	if err != nil {
		r.failAndReset()
		return audio.ClassifyCapture(err)
	}
	if selection.Warning != "" && r.logger != nil {
		r.logger.Warn(selection.Warning)
	}

	capture, err := r.startCapture(ctx, selection.Device)
	if err != nil {
		r.failAndReset()
		return audio.ClassifyCapture(err)
	}

	next, err := fsm.Transition(r.state, fsm.EventStart)
	if err != nil {
		_ = capture.Stop()
		r.failAndReset()
		return err
	}

	r.state = next
	r.capture = capture
	r.selection = selection

	if r.logger != nil {
		r.logger.Info("capture started",
			slog.String("device", audio.DescribeDevice(selection.Device)),
			slog.Bool("fallback", selection.Fallback),
		)
	}
	return nil
}

// Stop finalizes the capture and returns the single WAV artifact for it.
func (r *Recorder) Stop(_ context.Context) (audio.Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != fsm.StateCapturing || r.capture == nil {
		return audio.Artifact{}, ErrNotCapturing
	}

	next, err := fsm.Transition(r.state, fsm.EventStop)
	if err != nil {
		return audio.Artifact{}, err
	}
	r.state = next

	capture := r.capture
	r.capture = nil

	if err := capture.Stop(); err != nil {
		r.failAndReset()
		return audio.Artifact{}, fmt.Errorf("stop capture stream: %w", err)
	}

	rawPCM := capture.RawPCM()
	artifact := audio.NewArtifact(rawPCM, audio.CaptureSampleRate, audio.CaptureChannels)
	r.writeDebugAudio(rawPCM)

	next, err = fsm.Transition(r.state, fsm.EventFinalized)
	if err != nil {
		r.failAndReset()
		return audio.Artifact{}, err
	}
	r.state = next

	if r.logger != nil {
		r.logger.Info("capture stopped",
			slog.String("device", audio.DescribeDevice(capture.Device())),
			slog.Int64("bytes", capture.BytesCaptured()),
			slog.Duration("duration", artifact.Duration),
		)
	}
	return artifact, nil
}

// Cancel releases the capture without producing an artifact.
func (r *Recorder) Cancel(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != fsm.StateCapturing || r.capture == nil {
		return ErrNotCapturing
	}

	capture := r.capture
	r.capture = nil
	_ = capture.Stop()

	next, err := fsm.Transition(r.state, fsm.EventCancel)
	if err != nil {
		r.failAndReset()
		return err
	}
	r.state = next

	if r.logger != nil {
		r.logger.Info("capture cancelled",
			slog.Int64("bytes_discarded", capture.BytesCaptured()),
		)
	}
	return nil
}

// failAndReset moves to error and back to idle best-effort. Callers hold mu.
func (r *Recorder) failAndReset() {
	if r.capture != nil {
		_ = r.capture.Stop()
		r.capture = nil
	}
	state, _ := fsm.Transition(r.state, fsm.EventFail)
	state, _ = fsm.Transition(state, fsm.EventReset)
	r.state = state
}

// writeDebugAudio dumps raw PCM to a timestamped WAV when debug is enabled.
func (r *Recorder) writeDebugAudio(rawPCM []byte) {
	if !r.cfg.Debug.EnableAudioDump || len(rawPCM) == 0 {
		return
	}

	path, err := createDebugPath("audio", "wav")
	if err != nil {
		r.warn(fmt.Sprintf("unable to create debug audio dump: %v", err))
		return
	}

	wav := audio.EncodePCM16WAV(rawPCM, audio.CaptureSampleRate, audio.CaptureChannels)
	if err := os.WriteFile(path, wav, 0o600); err != nil {
		r.warn(fmt.Sprintf("unable to write debug audio dump: %v", err))
	}
}

func (r *Recorder) warn(message string) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(message)
}

// createDebugPath builds a timestamped artifact path under state/drona/debug.
func createDebugPath(prefix string, extension string) (string, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return "", err
	}
	debugDir := filepath.Join(stateDir, "drona", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	return filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension)), nil
}

// resolveStateDir returns XDG_STATE_HOME fallback path for debug artifacts.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}
