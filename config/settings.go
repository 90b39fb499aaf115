// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/lokalrag/rerank"
)

// ServerSettings holds the server-side ambient configuration.
type ServerSettings struct {
	LogLevel      string `json:"log_level"`
	LogFormat     string `json:"log_format"`
	EnableMetrics bool   `json:"enable_metrics"`
	CacheTTL      int    `json:"cache_ttl"`
}

// Settings is the application configuration persisted as sections of a
// shared settings file.
type Settings struct {
	Rerank rerank.Config  `json:"rerank"`
	Server ServerSettings `json:"server"`
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		Rerank: rerank.DefaultConfig(),
		Server: ServerSettings{
			LogLevel:      "INFO",
			LogFormat:     "json",
			EnableMetrics: true,
			CacheTTL:      0,
		},
	}
}

// DefaultPath returns the default settings file location,
// ~/.lokal-rag/settings.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".lokal-rag", "settings.json"), nil
}

// Load reads settings from path. A missing file, unreadable file or
// malformed JSON yields the defaults with a logged warning; keys absent
// from the file keep their default values. Load never fails.
func Load(path string) Settings {
	logger := slog.Default()
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("settings file not found, using defaults", "path", path)
		} else {
			logger.Warn("failed to read settings, using defaults", "path", path, "err", err)
		}
		return settings
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		logger.Warn("failed to parse settings, using defaults", "path", path, "err", err)
		return DefaultSettings()
	}

	logger.Info("settings loaded", "path", path)
	return settings
}

// Save writes the settings' sections into the file at path, preserving any
// unrelated top-level keys other tools keep there.
func Save(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	existing := make(map[string]json.RawMessage)
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &existing); err != nil {
			slog.Default().Warn("existing settings unparseable, rewriting", "path", path, "err", err)
			existing = make(map[string]json.RawMessage)
		}
	}

	rerankJSON, err := json.Marshal(settings.Rerank)
	if err != nil {
		return fmt.Errorf("failed to encode rerank settings: %w", err)
	}
	serverJSON, err := json.Marshal(settings.Server)
	if err != nil {
		return fmt.Errorf("failed to encode server settings: %w", err)
	}
	existing["rerank"] = rerankJSON
	existing["server"] = serverJSON

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	slog.Default().Info("settings saved", "path", path)
	return nil
}
