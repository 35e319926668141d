package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.ReconnectSeconds != 5 {
		t.Errorf("ReconnectSeconds = %d, want 5", cfg.ReconnectSeconds)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "server_url = \"https://campus.example.edu\"\nreconnect_seconds = 2\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "https://campus.example.edu" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.ReconnectSeconds != 2 {
		t.Errorf("ReconnectSeconds = %d", cfg.ReconnectSeconds)
	}
	if cfg.CachePath == "" {
		t.Error("CachePath default should survive partial config")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	want := &Config{ServerURL: "http://x", TokenFile: "/tmp/tok", ReconnectSeconds: 7}
	if err := Save(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.ServerURL != want.ServerURL || got.TokenFile != want.TokenFile || got.ReconnectSeconds != 7 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestBusURL(t *testing.T) {
	cases := []struct {
		cfg  Config
		want string
	}{
		{Config{ServerURL: "http://localhost:8080"}, "ws://localhost:8080/ws"},
		{Config{ServerURL: "https://campus.example.edu/"}, "wss://campus.example.edu/ws"},
		{Config{ServerURL: "http://x", WebsocketURL: "ws://elsewhere/bus"}, "ws://elsewhere/bus"},
	}
	for _, tc := range cases {
		if got := tc.cfg.BusURL(); got != tc.want {
			t.Errorf("BusURL() = %q, want %q", got, tc.want)
		}
	}
}
