// Package config loads formpilot settings from defaults, a .env file, the
// environment and command-line overrides.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Config struct {
	Catalog   string          `koanf:"catalog" validate:"required"`
	Log       LogConfig       `koanf:"log"`
	Store     StoreConfig     `koanf:"store"`
	LLM       LLMConfig       `koanf:"llm"`
	Grader    GraderConfig    `koanf:"grader"`
	Questions QuestionsConfig `koanf:"questions"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

type StoreConfig struct {
	Driver        string        `koanf:"driver" validate:"oneof=memory redis"`
	RedisURL      string        `koanf:"redis_url" validate:"required_if=Driver redis"`
	TTL           time.Duration `koanf:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gte=0"`
}

type LLMConfig struct {
	APIKey  string        `koanf:"api_key"`
	BaseURL string        `koanf:"base_url" validate:"omitempty,url"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	// Attempts counts the first call.
	Attempts uint64 `koanf:"attempts" validate:"gte=1,lte=5"`
}

// Enabled reports whether a chat model can be built.
func (c LLMConfig) Enabled() bool {
	return c.APIKey != "" && c.Model != ""
}

type GraderConfig struct {
	// Mode is "local" for heuristics, "llm" for the model with heuristics as
	// fallback, or "off". Left empty it becomes "llm" when a model is
	// configured and "local" otherwise.
	Mode            string        `koanf:"mode" validate:"omitempty,oneof=local llm off"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	MinAge          int           `koanf:"min_age" validate:"gte=0"`
	MaxAge          int           `koanf:"max_age" validate:"gtfield=MinAge"`
	MinAddressRunes int           `koanf:"min_address_runes" validate:"gte=0"`
}

type QuestionsConfig struct {
	UseLLM    bool `koanf:"use_llm"`
	CacheSize int  `koanf:"cache_size" validate:"gt=0"`
}

func Default() *Config {
	return &Config{
		Catalog: "forms/form_samples.json",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Driver:        "memory",
			TTL:           time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		LLM: LLMConfig{
			Model:    "gpt-4o-mini",
			Timeout:  15 * time.Second,
			Attempts: 2,
		},
		Grader: GraderConfig{
			Mode:            "",
			Timeout:         15 * time.Second,
			MinAge:          18,
			MaxAge:          90,
			MinAddressRunes: 10,
		},
		Questions: QuestionsConfig{
			UseLLM:    true,
			CacheSize: 128,
		},
	}
}

// SlogLevel maps the configured level name to a slog.Level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) resolveGraderMode() {
	if c.Grader.Mode != "" {
		return
	}
	if c.LLM.Enabled() {
		c.Grader.Mode = "llm"
	} else {
		c.Grader.Mode = "local"
	}
}

func (c *Config) validateRelations() error {
	if c.Grader.Mode == "llm" && !c.LLM.Enabled() {
		return fmt.Errorf("grader.mode llm requires llm.api_key and llm.model")
	}
	return nil
}
