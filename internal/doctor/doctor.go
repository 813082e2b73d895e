// Package doctor runs runtime readiness diagnostics for config, credentials,
// audio, and the assistant API.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/dronalabs/drona/internal/audio"
	"github.com/dronalabs/drona/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(loaded config.Loaded, cred config.Credential) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", loaded.Path)
	if !loaded.Exists {
		configMessage = fmt.Sprintf("%q not found, using defaults", loaded.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkCredential(cred))
	checks = append(checks, checkCommand(loaded.Config.Clipboard.Argv, "clipboard_cmd"))
	if strings.EqualFold(loaded.Config.Notify.Backend, "desktop") {
		checks = append(checks, checkBinary("busctl", "desktop notifications require busctl"))
	}
	checks = append(checks, checkAudioSelection(loaded.Config))
	checks = append(checks, checkAPIReachable(loaded.Config))

	return Report{Checks: checks}
}

// checkCredential validates that the account identity is present.
func checkCredential(cred config.Credential) Check {
	if strings.TrimSpace(cred.UserID) == "" || strings.TrimSpace(cred.Token) == "" {
		return Check{Name: "credential", Pass: false, Message: "DRONA_USER_ID or DRONA_TOKEN is not set"}
	}
	return Check{Name: "credential", Pass: true, Message: fmt.Sprintf("user %s", cred.UserID)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkAPIReachable probes the configured assistant base URL.
func checkAPIReachable(cfg config.Config) Check {
	base := strings.TrimSpace(cfg.API.BaseURL)
	if base == "" {
		return Check{Name: "api.reachable", Pass: false, Message: "api.base_url is empty"}
	}

	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return Check{Name: "api.reachable", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	// Any HTTP response proves the server is reachable; auth errors are fine here.
	return Check{Name: "api.reachable", Pass: true, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, base)}
}
