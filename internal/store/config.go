package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

const configFileName = "config.json"

// GlobalConfig holds user preferences that live next to the store.
// It is intentionally "best effort": callers tolerate missing/invalid data.
type GlobalConfig struct {
	// ListenAddr is the default address for `isru-daily web`.
	ListenAddr string `json:"listenAddr,omitempty"`

	// RelayURL points at the profile relay endpoint (POST, JSON body).
	RelayURL string `json:"relayUrl,omitempty"`

	// SettleDebounceMs overrides the scroll-settle protection window.
	// Zero means the built-in default (200ms).
	SettleDebounceMs int `json:"settleDebounceMs,omitempty"`
}

func configPath(dir string) string {
	return filepath.Join(dir, configFileName)
}

// LoadConfig reads the config file in dir. A missing or corrupted file yields
// the zero config.
func LoadConfig(dir string) (GlobalConfig, error) {
	var cfg GlobalConfig
	b, err := os.ReadFile(configPath(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		// Best-effort; treat as missing.
		return GlobalConfig{}, nil
	}
	return cfg, nil
}

// SaveConfig writes the config file atomically (tmp + rename).
func SaveConfig(dir string, cfg GlobalConfig) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	path := configPath(dir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
