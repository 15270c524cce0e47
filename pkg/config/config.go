package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full gateway configuration. Tests construct it directly;
// the CLI populates it from viper (flags, env, optional config file).
type Config struct {
	Debug    bool           `mapstructure:"debug"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Agent    AgentConfig    `mapstructure:"agent"`
}

type TelegramConfig struct {
	Token     string   `mapstructure:"token"`
	Proxy     string   `mapstructure:"proxy"`
	AllowFrom []string `mapstructure:"allow_from"`
}

type LLMConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	APIBase        string        `mapstructure:"api_base"`
	Model          string        `mapstructure:"model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type AgentConfig struct {
	// ExitCommand ends a chat session when received as an exact
	// case-insensitive match.
	ExitCommand string `mapstructure:"exit_command"`
	// SystemMessage is appended to the host-info preamble of every new
	// conversation's system turn.
	SystemMessage string `mapstructure:"system_message"`
	// DirectExec enables the legacy "/exec <code>" path that runs the
	// Python session directly, bypassing the LLM.
	DirectExec bool `mapstructure:"direct_exec"`
	// CommandTimeout bounds execute_command runs. Zero keeps the tool default.
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	// Workspace holds session and stats state.
	Workspace string `mapstructure:"workspace"`
}

const envPrefix = "SCRIPTON"

// SetDefaults registers defaults on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("llm.api_base", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.request_timeout", 2*time.Minute)
	v.SetDefault("agent.exit_command", "quit")
	v.SetDefault("agent.system_message", "You are a helpful assistant with shell and Python access on this machine.")
	v.SetDefault("agent.direct_exec", false)
	v.SetDefault("agent.command_timeout", time.Duration(0))
	v.SetDefault("agent.workspace", "")
}

// Load reads configuration from the given viper instance, applying env
// bindings and the optional config file, and validates required fields.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks fields the gateway cannot run without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("missing telegram.token (set via --telegram-token or %s_TELEGRAM_TOKEN)", envPrefix)
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("missing llm.api_key (set via --api-key or %s_LLM_API_KEY)", envPrefix)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return fmt.Errorf("missing llm.model")
	}
	if strings.TrimSpace(c.Agent.ExitCommand) == "" {
		return fmt.Errorf("missing agent.exit_command")
	}
	return nil
}
