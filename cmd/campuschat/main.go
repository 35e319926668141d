package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/fx"

	"github.com/campusconnect/campuschat/internal/app"
	"github.com/campusconnect/campuschat/internal/config"
)

func main() {
	configFlag := flag.String("config", "", "config file path (default ~/.campuschat/config.toml)")
	tokenFlag := flag.String("token", "", "bearer token (overrides the configured token file)")
	flag.Parse()

	configPath := *configFlag
	if configPath == "" {
		home, _ := os.UserHomeDir()
		configPath = filepath.Join(home, ".campuschat", "config.toml")
	}

	tok, err := resolveToken(*tokenFlag, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fx.New(
		app.Module(app.Params{ConfigPath: configPath, Token: tok}),
	).Run()
}

// resolveToken prefers the -token flag, then the configured token file.
func resolveToken(flagValue, configPath string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	if cfg.TokenFile == "" {
		return "", fmt.Errorf("no token: pass -token or set token_file in %s", configPath)
	}
	raw, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	tok := strings.TrimSpace(string(raw))
	if tok == "" {
		return "", fmt.Errorf("token file %s is empty", cfg.TokenFile)
	}
	return tok, nil
}
