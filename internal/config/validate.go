package config

import (
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	base := strings.TrimSpace(cfg.API.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("api.base_url must not be empty")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("api.base_url must start with http:// or https://")
	}
	if strings.TrimSpace(cfg.API.AssistantID) == "" {
		return nil, fmt.Errorf("api.assistant_id must not be empty")
	}
	if cfg.API.TimeoutMS <= 0 {
		return nil, fmt.Errorf("api.timeout_ms must be > 0")
	}

	if strings.TrimSpace(cfg.Voice.VoiceID) == "" {
		return nil, fmt.Errorf("voice.voice_id must not be empty")
	}
	if strings.TrimSpace(cfg.Voice.LanguageCode) == "" {
		return nil, fmt.Errorf("voice.language_code must not be empty")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Notify.Backend))
	if backend == "" {
		return nil, fmt.Errorf("notify.backend must not be empty")
	}
	if backend != "terminal" && backend != "desktop" {
		return nil, fmt.Errorf("notify.backend must be one of: terminal, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Notify.DesktopAppName) == "" {
		return nil, fmt.Errorf("notify.desktop_app_name must not be empty when notify.backend=desktop")
	}
	if cfg.Notify.TimeoutMS < 0 {
		return nil, fmt.Errorf("notify.timeout_ms must be >= 0")
	}

	if len(cfg.Clipboard.Argv) == 0 {
		warnings = append(warnings, Warning{Message: "clipboard_cmd is empty; /copy is disabled"})
	}

	return warnings, nil
}
