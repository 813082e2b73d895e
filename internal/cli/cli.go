// Package cli parses command line arguments into a runnable command.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandChat    Command = "chat"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandChat:    {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	EnvPath    string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandChat}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--env":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--env requires a path")
			}
			parsed.EnvPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--env PATH] <command>

Commands:
  chat      Start an interactive conversation (default)
  devices   List available input devices
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/drona/config.json)
  --env PATH      Credentials file path (default: ./.env)
  -h, --help      Show help
  --version       Show version

Chat commands:
  /record         Start or stop recording a voice message
  /cancel         Discard the in-progress recording
  /history        List past conversations
  /open N         Load conversation N from the history list
  /regen          Regenerate the latest answer
  /play N         Play or pause the audio of message N
  /copy           Copy the latest answer to the clipboard
  /new            Start a fresh conversation
  /quit           Exit
`, binaryName)
}
