// Package app wires configuration, logging, and the chat loop into commands.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dronalabs/drona/internal/assistant"
	"github.com/dronalabs/drona/internal/audio"
	"github.com/dronalabs/drona/internal/chat"
	"github.com/dronalabs/drona/internal/cli"
	"github.com/dronalabs/drona/internal/config"
	"github.com/dronalabs/drona/internal/doctor"
	"github.com/dronalabs/drona/internal/history"
	"github.com/dronalabs/drona/internal/logging"
	"github.com/dronalabs/drona/internal/notify"
	"github.com/dronalabs/drona/internal/output"
	"github.com/dronalabs/drona/internal/playback"
	"github.com/dronalabs/drona/internal/recorder"
	"github.com/dronalabs/drona/internal/session"
	"github.com/dronalabs/drona/internal/version"
)

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	r := Runner{Stdin: stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("drona"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("drona"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		cred, credErr := config.LoadCredential(parsed.EnvPath)
		if credErr != nil {
			logger.Warn("credential missing", "error", credErr.Error())
		}
		report := doctor.Run(cfgLoaded, cred)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandChat:
		return r.commandChat(ctx, parsed, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandChat(ctx context.Context, parsed cli.Parsed, cfg config.Config, logger *slog.Logger) int {
	cred, err := config.LoadCredential(parsed.EnvPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	client, err := assistant.NewClient(assistant.Config{
		BaseURL:     cfg.API.BaseURL,
		AssistantID: cfg.API.AssistantID,
		Timeout:     time.Duration(cfg.API.TimeoutMS) * time.Millisecond,
	}, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	notifier := notify.New(cfg.Notify, r.Stderr, logger)
	log := chat.NewLog()
	player := playback.NewPlayer(logger)
	defer player.StopAll()

	apiCred := assistant.Credential{UserID: cred.UserID, Token: cred.Token}
	sess := session.New(logger, client, log, &liveSpeaker{player: player}, notifier, apiCred, session.VoiceSettings{
		VoiceID:      cfg.Voice.VoiceID,
		LanguageCode: cfg.Voice.LanguageCode,
		Autoplay:     cfg.Voice.Autoplay,
	})

	loop := &chatLoop{
		session:   sess,
		recorder:  recorder.New(cfg, logger),
		history:   history.NewSync(client, log, apiCred, logger),
		player:    player,
		fetchClip: playback.FetchClip,
		clipboard: output.NewClipboard(cfg, logger),
		in:        r.Stdin,
		out:       r.Stdout,
		errw:      r.Stderr,
	}
	return loop.run(ctx)
}

// liveSpeaker fetches a reply clip and plays it on the live slot.
type liveSpeaker struct {
	player *playback.Player
}

func (s *liveSpeaker) Speak(ctx context.Context, audioURL string) error {
	clip, err := playback.FetchClip(ctx, nil, audioURL)
	if err != nil {
		return err
	}
	return s.player.PlayLive(ctx, clip)
}
