package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		API: APIConfig{
			BaseURL:     "http://127.0.0.1:8080",
			AssistantID: "yoga_assistant",
			TimeoutMS:   30000,
		},
		Voice: VoiceConfig{
			VoiceID:      "Joanna",
			LanguageCode: "en-US",
			Autoplay:     true,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Notify: NotifyConfig{
			Backend:        "terminal",
			DesktopAppName: "drona",
			TimeoutMS:      5000,
		},
		Clipboard: CommandConfig{Raw: clipboard, Argv: mustParseArgv(clipboard)},
		Debug:     DebugConfig{},
	}
}
