// Package config loads voxnote settings from a YAML file, environment
// variables and an optional .env file. API keys come from the
// environment only and never from the config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Failover struct {
	Enabled  bool   `mapstructure:"enabled"`
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

type Archive struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

type Silence struct {
	WarnSeconds  int `mapstructure:"warn_seconds"`
	CloseSeconds int `mapstructure:"close_seconds"`
}

type Config struct {
	Provider       string   `mapstructure:"provider"`
	Model          string   `mapstructure:"model"`
	Failover       Failover `mapstructure:"failover"`
	VAD            bool     `mapstructure:"vad"`
	Archive        Archive  `mapstructure:"archive"`
	Output         string   `mapstructure:"output"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	Instruction    string   `mapstructure:"instruction"`
	Gain           int      `mapstructure:"gain"`
	CueDir         string   `mapstructure:"cue_dir"`
	HistoryPath    string   `mapstructure:"history_path"`
	Silence        Silence  `mapstructure:"silence"`

	keys map[string]string
}

// DefaultInstruction is sent alongside the audio when the config does
// not override it.
const DefaultInstruction = "Transcribe the audio exactly as spoken, then clean it up: " +
	"remove filler words, false starts and repetitions, fix punctuation and " +
	"capitalization, and apply any spoken formatting commands. " +
	"Output only the cleaned transcript."

var apiKeyEnv = map[string]string{
	"gemini":     "GEMINI_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"mistral":    "MISTRAL_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// DefaultDir returns the voxnote config directory, honoring
// XDG_CONFIG_HOME.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "voxnote"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "voxnote"), nil
}

// Load reads config.yaml from dir (every key optional), overlays
// environment variables prefixed VOXNOTE_, and collects provider API
// keys from the environment. A .env in the working directory is loaded
// first when present.
func Load(dir string) (*Config, error) {
	godotenv.Load()

	if dir == "" {
		var err error
		dir, err = DefaultDir()
		if err != nil {
			return nil, err
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault("provider", "gemini")
	v.SetDefault("model", "gemini-2.0-flash")
	v.SetDefault("failover.enabled", true)
	v.SetDefault("failover.provider", "openai")
	v.SetDefault("failover.model", "gpt-4o-audio-preview")
	v.SetDefault("vad", true)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.dir", filepath.Join(dir, "archive"))
	v.SetDefault("output", "clipboard")
	v.SetDefault("timeout_seconds", 60)
	v.SetDefault("instruction", DefaultInstruction)
	v.SetDefault("gain", 8)
	v.SetDefault("cue_dir", filepath.Join(dir, "cues"))
	v.SetDefault("history_path", filepath.Join(dir, "history.sqlite"))
	v.SetDefault("silence.warn_seconds", 8)
	v.SetDefault("silence.close_seconds", 30)

	v.SetEnvPrefix("VOXNOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.keys = make(map[string]string, len(apiKeyEnv))
	for provider, env := range apiKeyEnv {
		cfg.keys[provider] = os.Getenv(env)
	}

	return &cfg, nil
}

// APIKey returns the key for a provider, empty when unset.
func (c *Config) APIKey(provider string) string {
	return c.keys[provider]
}

// Validate checks that the configured providers are known and keyed.
func (c *Config) Validate() error {
	if _, ok := apiKeyEnv[c.Provider]; !ok {
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.APIKey(c.Provider) == "" {
		return fmt.Errorf("missing %s for provider %q", apiKeyEnv[c.Provider], c.Provider)
	}
	if c.Failover.Enabled {
		if _, ok := apiKeyEnv[c.Failover.Provider]; !ok {
			return fmt.Errorf("unknown failover provider %q", c.Failover.Provider)
		}
		if c.APIKey(c.Failover.Provider) == "" {
			return fmt.Errorf("missing %s for failover provider %q",
				apiKeyEnv[c.Failover.Provider], c.Failover.Provider)
		}
	}
	return nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
