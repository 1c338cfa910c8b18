package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Missing-profile policies for counterparts that have messages but no profile row.
const (
	MissingProfilesDrop        = "drop"
	MissingProfilesPlaceholder = "placeholder"
)

// Config represents the global ~/.blackzap/config.toml.
type Config struct {
	DefaultInstance string        `toml:"default_instance"`
	Client          Client        `toml:"client"`
	Notifications   Notifications `toml:"notifications"`
	Daemon          Daemon        `toml:"daemon"`
}

// Client holds settings for the chat core used by bzctl and bztui.
type Client struct {
	MissingProfiles string   `toml:"missing_profiles"`
	HistoryWindow   Duration `toml:"history_window"`
	HistoryLimit    int      `toml:"history_limit"`
}

// Notifications controls the notification presenter.
type Notifications struct {
	Enabled bool `toml:"enabled"`
}

// Daemon holds bzd settings.
type Daemon struct {
	LogLevel string `toml:"log_level"`
}

// Duration is a time.Duration written as a string ("72h") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Client:        Client{MissingProfiles: MissingProfilesDrop},
		Notifications: Notifications{Enabled: true},
		Daemon:        Daemon{LogLevel: "info"},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Client.MissingProfiles {
	case MissingProfilesDrop, MissingProfilesPlaceholder:
	default:
		return fmt.Errorf("client.missing_profiles: unknown policy %q", c.Client.MissingProfiles)
	}
	if c.Client.HistoryWindow.Duration < 0 {
		return fmt.Errorf("client.history_window: must not be negative")
	}
	if c.Client.HistoryLimit < 0 {
		return fmt.Errorf("client.history_limit: must not be negative")
	}
	return nil
}

// Load reads config from the given path on top of Default. Returns an error if
// the file is missing or invalid.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
