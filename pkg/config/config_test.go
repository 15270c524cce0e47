package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	v.Set("telegram.token", "test-token")
	v.Set("llm.api_key", "test-key")

	cfg, err := Load(v, "")
	require.NoError(t, err)

	require.Equal(t, "quit", cfg.Agent.ExitCommand)
	require.Equal(t, "https://api.openai.com/v1", cfg.LLM.APIBase)
	require.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	require.Equal(t, 2*time.Minute, cfg.LLM.RequestTimeout)
	require.False(t, cfg.Agent.DirectExec)
	require.False(t, cfg.Debug)
}

func TestLoad_MissingToken(t *testing.T) {
	v := viper.New()
	v.Set("llm.api_key", "test-key")

	_, err := Load(v, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "telegram.token")
}

func TestLoad_MissingAPIKey(t *testing.T) {
	v := viper.New()
	v.Set("telegram.token", "test-token")

	_, err := Load(v, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "llm.api_key")
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := `
telegram:
  token: file-token
  allow_from:
    - "1001"
llm:
  api_key: file-key
  model: gpt-4o
agent:
  exit_command: goodbye
  direct_exec: true
debug: true
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	cfg, err := Load(viper.New(), cfgPath)
	require.NoError(t, err)

	require.Equal(t, "file-token", cfg.Telegram.Token)
	require.Equal(t, []string{"1001"}, cfg.Telegram.AllowFrom)
	require.Equal(t, "gpt-4o", cfg.LLM.Model)
	require.Equal(t, "goodbye", cfg.Agent.ExitCommand)
	require.True(t, cfg.Agent.DirectExec)
	require.True(t, cfg.Debug)
}

func TestValidate_MissingExitCommand(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "tok"},
		LLM:      LLMConfig{APIKey: "key", Model: "m"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "exit_command")
}
