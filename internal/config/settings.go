package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultAPIURL         = "http://localhost:8000"
	DefaultPollIntervalMs = 2000
	DefaultSessionTTL     = 24 * time.Hour
	DefaultStore          = StoreSQLite
)

// Snapshot store backends
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Settings represents the structure of ~/.itory/settings.json
type Settings struct {
	APIURL          string `json:"api_url,omitempty"`
	Debug           *bool  `json:"debug,omitempty"`
	DefaultStyle    string `json:"default_style,omitempty"`
	MaxLogFiles     *int   `json:"max_log_files,omitempty"`
	PollIntervalMs  *int   `json:"poll_interval_ms,omitempty"`
	RedisAddr       string `json:"redis_addr,omitempty"`
	SessionTTLHours *int   `json:"session_ttl_hours,omitempty"`
	Store           string `json:"store,omitempty"`
}

// Validate checks values that cannot be fixed by falling back to defaults
func (s *Settings) Validate() error {
	switch s.Store {
	case "", StoreMemory, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (expected sqlite, redis or memory)", s.Store)
	}
	if s.Store == StoreRedis && s.RedisAddr == "" {
		return fmt.Errorf("store %q requires redis_addr", StoreRedis)
	}
	if s.PollIntervalMs != nil && *s.PollIntervalMs <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive, got %d", *s.PollIntervalMs)
	}
	if s.SessionTTLHours != nil && *s.SessionTTLHours < 0 {
		return fmt.Errorf("session_ttl_hours must not be negative, got %d", *s.SessionTTLHours)
	}
	return nil
}

// PollInterval returns the configured poll interval or the default
func (s *Settings) PollInterval() time.Duration {
	if s.PollIntervalMs != nil && *s.PollIntervalMs > 0 {
		return time.Duration(*s.PollIntervalMs) * time.Millisecond
	}
	return DefaultPollIntervalMs * time.Millisecond
}

// SessionTTL returns how long a persisted session is kept. Zero keeps it forever.
func (s *Settings) SessionTTL() time.Duration {
	if s.SessionTTLHours != nil {
		return time.Duration(*s.SessionTTLHours) * time.Hour
	}
	return DefaultSessionTTL
}

// LoadSettings loads settings from $ITORY_HOME/settings.json (or ~/.itory/settings.json if not set)
// Returns empty Settings if file doesn't exist (not an error)
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(GetSettingsPath())
}

// LoadSettingsFrom loads settings from path
func LoadSettingsFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil // Not an error, use defaults
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("invalid settings.json: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings.json: %w", err)
	}

	return &settings, nil
}

// SaveSettings saves settings to $ITORY_HOME/settings.json
func SaveSettings(settings *Settings) error {
	path := GetSettingsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}
