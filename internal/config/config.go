package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the client configuration, normally ~/.campuschat/config.toml.
type Config struct {
	// ServerURL is the backend base URL, e.g. "http://localhost:8080".
	ServerURL string `toml:"server_url"`
	// WebsocketURL overrides the bus endpoint. Empty derives it from
	// ServerURL by swapping the scheme and appending /ws.
	WebsocketURL string `toml:"websocket_url"`
	// TokenFile holds the bearer token when not passed on the command line.
	TokenFile string `toml:"token_file"`
	// CachePath is the local sqlite message cache location.
	CachePath string `toml:"cache_path"`
	// LogPath is where the client writes its log file.
	LogPath string `toml:"log_path"`
	// ReconnectSeconds is the fixed delay between reconnect attempts.
	ReconnectSeconds int `toml:"reconnect_seconds"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	home, _ := os.UserHomeDir()
	dir := filepath.Join(home, ".campuschat")
	return &Config{
		ServerURL:        "http://localhost:8080",
		CachePath:        filepath.Join(dir, "cache.db"),
		LogPath:          filepath.Join(dir, "campuschat.log"),
		ReconnectSeconds: 5,
	}
}

// Load reads config from path, filling unset fields with defaults. A missing
// file yields the defaults without error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if cfg.ReconnectSeconds <= 0 {
		cfg.ReconnectSeconds = 5
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent dirs as needed.
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

// BusURL returns the websocket endpoint for the message bus.
func (c *Config) BusURL() string {
	if c.WebsocketURL != "" {
		return c.WebsocketURL
	}
	url := c.ServerURL
	url = strings.Replace(url, "https://", "wss://", 1)
	url = strings.Replace(url, "http://", "ws://", 1)
	return strings.TrimSuffix(url, "/") + "/ws"
}
