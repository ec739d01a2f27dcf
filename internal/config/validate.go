package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validation modes, one per command family.
const (
	ModeRecord  = "record"
	ModeAnalyze = "analyze"
	ModeServe   = "serve"
	ModeMigrate = "migrate"
)

// Validate checks the settings the given mode needs and reports every
// problem at once.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case ModeRecord, ModeMigrate:
		errs = append(errs, c.validateStore()...)
	case ModeAnalyze:
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateRecognition()...)
	case ModeServe:
		errs = append(errs, c.validateStore()...)
		if c.Recognition.Provider != "none" {
			errs = append(errs, c.validateRecognition()...)
		}
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.MaxUploadMB < 1 {
			errs = append(errs, "server.max_upload_mb must be >= 1")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	errs = append(errs, c.validateTransit()...)
	if c.Rebuild.Concurrency < 1 || c.Rebuild.Concurrency > 64 {
		errs = append(errs, fmt.Sprintf("rebuild.concurrency must be between 1 and 64, got %d", c.Rebuild.Concurrency))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite":
	case "file":
		if c.Store.Path == "" {
			errs = append(errs, "store.path is required for the file driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	case "notion":
		if c.Notion.Token == "" {
			errs = append(errs, "notion.token is required")
		}
		if c.Notion.MealsDB == "" {
			errs = append(errs, "notion.meals_db is required")
		}
		if c.Notion.EliminationsDB == "" {
			errs = append(errs, "notion.eliminations_db is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not one of sqlite, file, postgres, notion", c.Store.Driver))
	}
	return errs
}

func (c *Config) validateRecognition() []string {
	var errs []string
	switch c.Recognition.Provider {
	case "anthropic":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	case "openai":
		if c.OpenAI.Key == "" {
			errs = append(errs, "openai.key is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("recognition.provider %q is not one of anthropic, openai", c.Recognition.Provider))
	}
	if c.Recognition.Model == "" {
		errs = append(errs, "recognition.model is required")
	}
	if c.Recognition.Attempts < 1 || c.Recognition.Attempts > 10 {
		errs = append(errs, fmt.Sprintf("recognition.attempts must be between 1 and 10, got %d", c.Recognition.Attempts))
	}
	return errs
}

func (c *Config) validateTransit() []string {
	var errs []string
	if c.Transit.WindowDays < 1 {
		errs = append(errs, "transit.window_days must be >= 1")
	}
	if c.Transit.MaxPlausibleHours <= 0 {
		errs = append(errs, "transit.max_plausible_hours must be > 0")
	}
	if c.Transit.MinSamples < 1 {
		errs = append(errs, "transit.min_samples must be >= 1")
	}
	return errs
}
