package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Loaded is the result of resolving and reading the configuration file.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves the config path and parses the file if present. A missing
// file is not an error; defaults apply and a warning is recorded.
func Load(explicitPath string) (Loaded, error) {
	path, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			warnings, validateErr := Validate(cfg)
			if validateErr != nil {
				return Loaded{}, validateErr
			}
			warnings = append(warnings, Warning{
				Message: fmt.Sprintf("config file %s not found; using defaults", path),
			})
			return Loaded{Path: path, Config: cfg, Warnings: warnings}, nil
		}
		return Loaded{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, warnings, err := Parse(string(content), Default())
	if err != nil {
		return Loaded{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return Loaded{Path: path, Config: cfg, Warnings: warnings, Exists: true}, nil
}

// LoadCredential reads the account identity from the environment, loading
// envPath (or ./.env when empty) first if such a file exists.
func LoadCredential(envPath string) (Credential, error) {
	candidate := strings.TrimSpace(envPath)
	if candidate == "" {
		candidate = ".env"
	}
	if _, err := os.Stat(candidate); err == nil {
		if err := godotenv.Load(candidate); err != nil {
			return Credential{}, fmt.Errorf("load %s: %w", candidate, err)
		}
	} else if strings.TrimSpace(envPath) != "" {
		return Credential{}, fmt.Errorf("env file %s: %w", envPath, err)
	}

	cred := Credential{
		UserID: strings.TrimSpace(os.Getenv("DRONA_USER_ID")),
		Token:  strings.TrimSpace(os.Getenv("DRONA_TOKEN")),
	}
	if cred.UserID == "" {
		return Credential{}, errors.New("DRONA_USER_ID is not set")
	}
	if cred.Token == "" {
		return Credential{}, errors.New("DRONA_TOKEN is not set")
	}
	return cred, nil
}
