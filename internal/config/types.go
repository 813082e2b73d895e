// Package config resolves, parses, validates, and defaults drona configuration.
package config

// Config is the fully materialized runtime configuration used by drona.
type Config struct {
	API       APIConfig
	Voice     VoiceConfig
	Audio     AudioConfig
	Notify    NotifyConfig
	Clipboard CommandConfig
	Debug     DebugConfig
}

// APIConfig locates the remote assistant service.
type APIConfig struct {
	BaseURL     string
	AssistantID string
	TimeoutMS   int
}

// VoiceConfig controls synthesis parameters sent with voice exchanges and
// whether the spoken reply autoplays.
type VoiceConfig struct {
	VoiceID      string
	LanguageCode string
	Autoplay     bool
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// NotifyConfig controls how transient conditions reach the user.
type NotifyConfig struct {
	Backend        string
	DesktopAppName string
	TimeoutMS      int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Message string
}

// Credential is the caller identity forwarded on every assistant request.
// It is read once at startup and passed in explicitly; nothing reads it
// from ambient state afterwards.
type Credential struct {
	UserID string
	Token  string
}
