package config

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	settings := Load(filepath.Join(t.TempDir(), "nope", "settings.json"))
	assert.Equal(t, DefaultSettings(), settings)
	assert.True(t, settings.Rerank.Enabled)
	assert.Equal(t, "jinaai/jina-reranker-v2-base-multilingual", settings.Rerank.Model)
}

func TestLoadMalformedFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	assert.Equal(t, DefaultSettings(), Load(path))
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"rerank": {"enabled": false, "device": "cuda"}}`), 0o644))

	settings := Load(path)
	assert.False(t, settings.Rerank.Enabled)
	assert.Equal(t, "cuda", settings.Rerank.Device)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, 25, settings.Rerank.DefaultTopK)
	assert.Equal(t, "INFO", settings.Server.LogLevel)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	settings := DefaultSettings()
	settings.Rerank = settings.Rerank.WithEnabled(false).WithDevice("mps")
	require.NoError(t, Save(path, settings))

	reloaded := Load(path)
	assert.False(t, reloaded.Rerank.Enabled)
	assert.Equal(t, "mps", reloaded.Rerank.Device)
}

func TestSavePreservesUnrelatedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	existing := `{"theme": "dark", "window": {"width": 800}}`
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))

	require.NoError(t, Save(path, DefaultSettings()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var merged map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &merged))
	assert.Contains(t, merged, "theme")
	assert.Contains(t, merged, "window")
	assert.Contains(t, merged, "rerank")
	assert.Contains(t, merged, "server")
	assert.JSONEq(t, `"dark"`, string(merged["theme"]))
}

func TestSaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "settings.json")
	require.NoError(t, Save(path, DefaultSettings()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestNewLogger(t *testing.T) {
	ctx := context.Background()

	logger := ServerSettings{LogLevel: "DEBUG", LogFormat: "text"}.NewLogger(os.Stderr)
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))

	logger = ServerSettings{LogLevel: "ERROR", LogFormat: "json"}.NewLogger(os.Stderr)
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
}
