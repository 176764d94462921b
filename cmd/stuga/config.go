package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	apiclient "github.com/stuga-cloud/console/pkg/api/client"
)

const defaultAPIBaseURL = "http://localhost:4000"

type cliConfig struct {
	APIBaseURL   string `json:"api_base_url"`
	SessionToken string `json:"session_token"`
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return withDefaults(cliConfig{}), nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	return withDefaults(cfg), nil
}

func withDefaults(cfg cliConfig) cliConfig {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return cfg
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv("STUGA_CONFIG")); override != "" {
		return override, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "stuga", "config.json"), nil
}

// session loads the config and returns a client with the stored token.
func session() (cliConfig, *apiclient.Client, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cliConfig{}, nil, "", err
	}
	token := strings.TrimSpace(cfg.SessionToken)
	if token == "" {
		return cliConfig{}, nil, "", errors.New("please login first using 'stuga login'")
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return cliConfig{}, nil, "", err
	}
	return cfg, client, token, nil
}
