package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                 = "HUDDLE"
	defaultHTTPAddress        = "0.0.0.0:8080"
	defaultDatabasePath       = "huddle.db"
	defaultLogLevel           = "info"
	defaultTokenTTLMinutes    = 7 * 24 * 60
	defaultScoringModel       = "gemini-pro"
	defaultScoringBaseURL     = "https://generativelanguage.googleapis.com"
	defaultScoringTimeoutSecs = 10
	defaultAIWeight           = 0.7
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress     string
	DatabasePath    string
	LogLevel        string
	SigningSecret   string
	TokenTTL        time.Duration
	ScoringAPIKey   string
	ScoringModel    string
	ScoringBaseURL  string
	ScoringTimeout  time.Duration
	DefaultAIWeight float64
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("scoring.model", defaultScoringModel)
	configViper.SetDefault("scoring.base_url", defaultScoringBaseURL)
	configViper.SetDefault("scoring.timeout_seconds", defaultScoringTimeoutSecs)
	configViper.SetDefault("scoring.default_ai_weight", defaultAIWeight)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:     configViper.GetString("http.address"),
		DatabasePath:    configViper.GetString("database.path"),
		LogLevel:        configViper.GetString("log.level"),
		SigningSecret:   configViper.GetString("auth.signing_secret"),
		TokenTTL:        time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
		ScoringAPIKey:   configViper.GetString("scoring.api_key"),
		ScoringModel:    configViper.GetString("scoring.model"),
		ScoringBaseURL:  configViper.GetString("scoring.base_url"),
		ScoringTimeout:  time.Duration(configViper.GetInt("scoring.timeout_seconds")) * time.Second,
		DefaultAIWeight: configViper.GetFloat64("scoring.default_ai_weight"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.DefaultAIWeight < 0 || c.DefaultAIWeight > 1 {
		return fmt.Errorf("scoring.default_ai_weight must be within [0, 1]")
	}
	return nil
}
