package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "gpt-4", cfg.OpenAI.Model)
	assert.Equal(t, "en", cfg.Prompt.DefaultLanguage)
	assert.Equal(t, "./cheatsheets/", cfg.Storage.OutputDir)
	assert.Equal(t, "timestamped", cfg.Storage.FilenameMode)
	assert.False(t, cfg.Search.Enabled)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, uint(3), cfg.Upstream.Attempts)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoadFileThenEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cheatsheet.yaml")
	content := `
openai:
  api_key: sk-from-file
  model: gpt-4o-mini
storage:
  filename_mode: fixed
  output_dir: /tmp/sheets
upstream:
  timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("OPENAI_API_KEY", "")
	require.NoError(t, os.Unsetenv("OPENAI_API_KEY"))
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-file", cfg.OpenAI.APIKey, "unset env var should not override the file")
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model, "environment wins over the file")
	assert.Equal(t, "fixed", cfg.Storage.FilenameMode)
	assert.Equal(t, "/tmp/sheets", cfg.Storage.OutputDir)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "5000", cfg.Server.Port, "defaults survive keys absent from the file")
}

func TestValidateRejectsUnknownEnums(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.APIKey = "sk"
	cfg.Memory.Backend = "etcd"
	cfg.Storage.FilenameMode = "random"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MEMORY_BACKEND")
	assert.Contains(t, err.Error(), "STORAGE_FILENAME_MODE")
}

func TestValidateSearchKey(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.APIKey = "sk"
	cfg.Search.Enabled = true
	cfg.Search.Provider = "tavily"

	assert.Error(t, cfg.Validate())

	cfg.Search.Provider = "duckduckgo"
	assert.NoError(t, cfg.Validate())
}
