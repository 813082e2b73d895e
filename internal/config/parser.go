package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsonConfig struct {
	API    *jsonAPI    `json:"api"`
	Voice  *jsonVoice  `json:"voice"`
	Audio  *jsonAudio  `json:"audio"`
	Notify *jsonNotify `json:"notify"`

	ClipboardCmd *string    `json:"clipboard_cmd"`
	Debug        *jsonDebug `json:"debug"`
}

type jsonAPI struct {
	BaseURL     *string `json:"base_url"`
	AssistantID *string `json:"assistant_id"`
	TimeoutMS   *int    `json:"timeout_ms"`
}

type jsonVoice struct {
	VoiceID      *string `json:"voice_id"`
	LanguageCode *string `json:"language_code"`
	Autoplay     *bool   `json:"autoplay"`
}

type jsonAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsonNotify struct {
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	TimeoutMS      *int    `json:"timeout_ms"`
}

type jsonDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

// Parse merges configuration content over base and validates the result.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	decoder := json.NewDecoder(strings.NewReader(content))
	decoder.DisallowUnknownFields()

	var payload jsonConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(content, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(content, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsonConfig) applyTo(cfg *Config) error {
	if payload.API != nil {
		if payload.API.BaseURL != nil {
			cfg.API.BaseURL = strings.TrimSpace(*payload.API.BaseURL)
		}
		if payload.API.AssistantID != nil {
			cfg.API.AssistantID = strings.TrimSpace(*payload.API.AssistantID)
		}
		if payload.API.TimeoutMS != nil {
			cfg.API.TimeoutMS = *payload.API.TimeoutMS
		}
	}

	if payload.Voice != nil {
		if payload.Voice.VoiceID != nil {
			cfg.Voice.VoiceID = strings.TrimSpace(*payload.Voice.VoiceID)
		}
		if payload.Voice.LanguageCode != nil {
			cfg.Voice.LanguageCode = strings.TrimSpace(*payload.Voice.LanguageCode)
		}
		if payload.Voice.Autoplay != nil {
			cfg.Voice.Autoplay = *payload.Voice.Autoplay
		}
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if payload.Notify != nil {
		if payload.Notify.Backend != nil {
			cfg.Notify.Backend = strings.TrimSpace(*payload.Notify.Backend)
		}
		if payload.Notify.DesktopAppName != nil {
			cfg.Notify.DesktopAppName = strings.TrimSpace(*payload.Notify.DesktopAppName)
		}
		if payload.Notify.TimeoutMS != nil {
			cfg.Notify.TimeoutMS = *payload.Notify.TimeoutMS
		}
	}

	if payload.ClipboardCmd != nil {
		raw := *payload.ClipboardCmd
		argv, err := parseArgv(raw)
		if err != nil {
			return fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = CommandConfig{Raw: raw, Argv: argv}
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}

	return nil
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	// Truncated input surfaces as io.ErrUnexpectedEOF (or io.EOF) with no
	// offset; report the end of the content.
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		line, col := offsetToLineCol(content, int64(len(content))+1)
		return fmt.Errorf("line %d column %d: unexpected end of JSON input: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
