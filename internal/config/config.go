// Package config handles pagemate settings. Settings live in a TOML file at
// ~/.config/pagemate/config.toml and can be overridden with PAGEMATE_*
// environment variables (PAGEMATE_API_KEY, PAGEMATE_MODEL, ...).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	appName   = "pagemate"
	fileName  = "config.toml"
	envPrefix = "PAGEMATE"

	// Defaults used when a setting is unset.
	DefaultEndpoint    = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.3
)

// Config holds the settings one completion turn needs. It is re-read at the
// start of every turn rather than cached: the user may change settings
// between turns.
type Config struct {
	Endpoint    string  `mapstructure:"endpoint"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	PromptDir   string  `mapstructure:"prompt_dir"`
}

// Dir returns the configuration directory path.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(Dir(), fileName)
}

// Init registers defaults, environment overrides, and the config file with
// viper. Call once at startup; Load may be called any number of times after.
func Init() {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("endpoint", DefaultEndpoint)
	viper.SetDefault("api_key", "")
	viper.SetDefault("model", DefaultModel)
	viper.SetDefault("temperature", DefaultTemperature)
	viper.SetDefault("prompt_dir", filepath.Join(Dir(), "prompts"))

	viper.SetConfigFile(Path())
	viper.SetConfigType("toml")
	// A missing config file is fine; defaults and env vars still apply.
	_ = viper.ReadInConfig()
}

// Load returns the current settings. The file is re-read so edits made while
// an interactive session is running take effect on the next turn.
func Load() (*Config, error) {
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Set persists a single setting to the config file.
func Set(key, value string) error {
	key = strings.ToLower(key)
	switch key {
	case "endpoint", "api_key", "model", "prompt_dir":
		viper.Set(key, value)
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("temperature must be a number: %w", err)
		}
		viper.Set(key, f)
	default:
		return fmt.Errorf("unknown setting %q (known: endpoint, api_key, model, temperature, prompt_dir)", key)
	}

	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return err
	}
	return viper.WriteConfigAs(Path())
}
