// Package config handles configuration loading for hodlsight.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Edgar      EdgarConfig      `mapstructure:"edgar"      yaml:"edgar"`
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
	Price      PriceConfig      `mapstructure:"price"      yaml:"price"`
	LLM        LLMConfig        `mapstructure:"llm"        yaml:"llm"`
	API        APIConfig        `mapstructure:"api"        yaml:"api"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// EdgarConfig holds the filing-index client and sampling-policy settings.
type EdgarConfig struct {
	UserAgent        string `mapstructure:"user_agent"         yaml:"user_agent"`
	MaxHistoryPages  int    `mapstructure:"max_history_pages"  yaml:"max_history_pages"`
	RecentWindowDays int    `mapstructure:"recent_window_days" yaml:"recent_window_days"`
	MaxPerMonth      int    `mapstructure:"max_per_month"      yaml:"max_per_month"`
	CandidateBudget  int    `mapstructure:"candidate_budget"   yaml:"candidate_budget"`
	Workers          int    `mapstructure:"workers"            yaml:"workers"`
	HistoryYears     int    `mapstructure:"history_years"      yaml:"history_years"`
}

// ExtractionConfig holds the disclosure-mining tunables. These are policy
// knobs for filtering noisy matches, not hard invariants.
type ExtractionConfig struct {
	Tolerance      float64 `mapstructure:"tolerance"        yaml:"tolerance"`
	MinAvgUSD      float64 `mapstructure:"min_avg_usd"      yaml:"min_avg_usd"`
	MaxAvgUSD      float64 `mapstructure:"max_avg_usd"      yaml:"max_avg_usd"`
	MaxHoldingsBTC int64   `mapstructure:"max_holdings_btc" yaml:"max_holdings_btc"`
	WindowBefore   int     `mapstructure:"window_before"    yaml:"window_before"`
	WindowAfter    int     `mapstructure:"window_after"     yaml:"window_after"`
}

// PriceConfig holds the price-series source settings.
type PriceConfig struct {
	Symbol string `mapstructure:"symbol" yaml:"symbol"`
	Coin   string `mapstructure:"coin"   yaml:"coin"`
}

// LLMConfig holds the chat-relay settings.
type LLMConfig struct {
	OpenAIKey   string  `mapstructure:"openai_key"  yaml:"openai_key"`
	Model       string  `mapstructure:"model"       yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"  yaml:"max_tokens"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.hodlsight/config.yaml (home directory)
//  3. /etc/hodlsight/config.yaml (system)
//
// Environment variables override config file values.
// Format: HODLSIGHT_<SECTION>_<KEY>, e.g., HODLSIGHT_LLM_OPENAI_KEY
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".hodlsight"))
	v.AddConfigPath("/etc/hodlsight")

	v.SetEnvPrefix("HODLSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)

	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("HODLSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Filing discovery defaults
	v.SetDefault("edgar.user_agent", "hodlsight/1.0 (github.com/hodlsight/hodlsight)")
	v.SetDefault("edgar.max_history_pages", 4)
	v.SetDefault("edgar.recent_window_days", 180)
	v.SetDefault("edgar.max_per_month", 2)
	v.SetDefault("edgar.candidate_budget", 40)
	v.SetDefault("edgar.workers", 2)
	v.SetDefault("edgar.history_years", 5)

	// Extraction defaults
	v.SetDefault("extraction.tolerance", 0.35)
	v.SetDefault("extraction.min_avg_usd", 1000)
	v.SetDefault("extraction.max_avg_usd", 2000000)
	v.SetDefault("extraction.max_holdings_btc", 5000000)
	v.SetDefault("extraction.window_before", 7500)
	v.SetDefault("extraction.window_after", 25000)

	// Price source defaults
	v.SetDefault("price.symbol", "btcusd")
	v.SetDefault("price.coin", "bitcoin")

	// LLM defaults
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 1024)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("HODLSIGHT_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.LLM.OpenAIKey == "" {
		cfg.LLM.OpenAIKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
