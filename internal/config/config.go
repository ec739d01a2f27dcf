package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/gutlog/internal/estimate"
	"github.com/sells-group/gutlog/internal/transit"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Notion      NotionConfig      `yaml:"notion" mapstructure:"notion"`
	Recognition RecognitionConfig `yaml:"recognition" mapstructure:"recognition"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI      OpenAIConfig      `yaml:"openai" mapstructure:"openai"`
	Excretion   ExcretionConfig   `yaml:"excretion" mapstructure:"excretion"`
	Transit     TransitConfig     `yaml:"transit" mapstructure:"transit"`
	Nutrients   NutrientsConfig   `yaml:"nutrients" mapstructure:"nutrients"`
	Rebuild     RebuildConfig     `yaml:"rebuild" mapstructure:"rebuild"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the event store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// NotionConfig holds Notion API credentials and database IDs.
type NotionConfig struct {
	Token          string  `yaml:"token" mapstructure:"token"`
	MealsDB        string  `yaml:"meals_db" mapstructure:"meals_db"`
	EliminationsDB string  `yaml:"eliminations_db" mapstructure:"eliminations_db"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// RecognitionConfig selects and tunes the food recognizer.
type RecognitionConfig struct {
	Provider           string `yaml:"provider" mapstructure:"provider"`
	Model              string `yaml:"model" mapstructure:"model"`
	MaxTokens          int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Attempts           int    `yaml:"attempts" mapstructure:"attempts"`
	BackoffMillis      int    `yaml:"backoff_millis" mapstructure:"backoff_millis"`
	AttemptTimeoutSecs int    `yaml:"attempt_timeout_secs" mapstructure:"attempt_timeout_secs"`
	MaxImageDim        int    `yaml:"max_image_dim" mapstructure:"max_image_dim"`
}

// Backoff returns the configured delay between attempts.
func (c RecognitionConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffMillis) * time.Millisecond
}

// AttemptTimeout returns the configured per-attempt deadline.
func (c RecognitionConfig) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutSecs) * time.Second
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OpenAIConfig holds settings for an OpenAI-compatible vision endpoint.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ExcretionConfig locates the excretion coefficients. A file, when set,
// replaces the inline block.
type ExcretionConfig struct {
	File         string                       `yaml:"file" mapstructure:"file"`
	Coefficients estimate.PartialCoefficients `yaml:"coefficients" mapstructure:"coefficients"`
}

// Resolve returns the effective coefficient set.
func (c ExcretionConfig) Resolve() estimate.Coefficients {
	return estimate.CoefficientsFrom(c.File, c.Coefficients)
}

// TransitConfig configures the transit estimator.
type TransitConfig struct {
	WindowDays        int     `yaml:"window_days" mapstructure:"window_days"`
	MaxPlausibleHours float64 `yaml:"max_plausible_hours" mapstructure:"max_plausible_hours"`
	MinSamples        int     `yaml:"min_samples" mapstructure:"min_samples"`
	ColdStart         bool    `yaml:"cold_start" mapstructure:"cold_start"`
}

// Options converts the config to estimator options.
func (c TransitConfig) Options() transit.Options {
	return transit.Options{
		WindowDays:        c.WindowDays,
		MaxPlausibleHours: c.MaxPlausibleHours,
		MinSamples:        c.MinSamples,
	}
}

// NutrientsConfig locates the nutrient reference table.
type NutrientsConfig struct {
	Source      string `yaml:"source" mapstructure:"source"`
	Encoding    string `yaml:"encoding" mapstructure:"encoding"`
	Sheet       string `yaml:"sheet" mapstructure:"sheet"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RebuildConfig configures bulk ledger rebuilds.
type RebuildConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// dotEnvFiles are loaded in order; earlier files win because godotenv
// never overrides a variable that is already set.
var dotEnvFiles = []string{".env.local", ".env"}

// Load reads configuration from .env files, config.yaml and the
// environment (GUTLOG_ prefix).
func Load() (*Config, error) {
	if err := loadDotEnv(dotEnvFiles...); err != nil {
		return nil, err
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GUTLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Credentials default to "" so the environment can supply them.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.path", "user_health_data.json")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.meals_db", "")
	v.SetDefault("notion.eliminations_db", "")
	v.SetDefault("notion.rate_limit", 3)
	v.SetDefault("recognition.provider", "anthropic")
	v.SetDefault("recognition.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("recognition.max_tokens", 1024)
	v.SetDefault("recognition.attempts", 3)
	v.SetDefault("recognition.backoff_millis", 1000)
	v.SetDefault("recognition.attempt_timeout_secs", 30)
	v.SetDefault("recognition.max_image_dim", 512)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("openai.key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("excretion.file", "")
	v.SetDefault("transit.window_days", 3)
	v.SetDefault("transit.max_plausible_hours", 72)
	v.SetDefault("transit.min_samples", 3)
	v.SetDefault("transit.cold_start", true)
	v.SetDefault("nutrients.source", "")
	v.SetDefault("nutrients.encoding", "")
	v.SetDefault("nutrients.sheet", "")
	v.SetDefault("nutrients.timeout_secs", 60)
	v.SetDefault("rebuild.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func loadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return eris.Wrapf(err, "config: load %s", f)
		}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
