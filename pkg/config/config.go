// Package config resolves the server's runtime configuration from the
// environment variables enumerated in spec §6, with an optional config.json5
// or config.yaml override file read first and filled in by the environment.
// Follows the same ConfigFromEnv idiom used elsewhere in this codebase's
// dependency family: a file layer filled in by the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"
)

// LLMProvider selects which LLM adapter the AI orchestrator wires up.
type LLMProvider string

const (
	ProviderAnthropic LLMProvider = "anthropic"
	ProviderOpenAI    LLMProvider = "openai"
	ProviderNone      LLMProvider = "none"

	DefaultPort                   = 3000
	DefaultAutoSavepointDebounceMS = 1500
)

// Config is the fully resolved runtime configuration (spec §6
// "Configuration (environment, enumerated)").
type Config struct {
	DatabaseURL string `yaml:"database_url" json5:"database_url"`
	Port        int    `yaml:"port" json5:"port"`

	LLMProvider LLMProvider `yaml:"llm_provider" json5:"llm_provider"`
	LLMAPIKey   string      `yaml:"llm_api_key" json5:"llm_api_key"`
	LLMModel    string      `yaml:"llm_model" json5:"llm_model"`

	AutoSavepointDebounceMS int `yaml:"auto_savepoint_debounce_ms" json5:"auto_savepoint_debounce_ms"`

	CookieSecure      bool `yaml:"cookie_secure" json5:"cookie_secure"`
	PerfTestAuthBypass bool `yaml:"perf_test_auth_bypass" json5:"perf_test_auth_bypass"`
}

// withDefaults fills any field left at its zero value with the spec's
// documented default, leaving explicitly-set values untouched.
func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.LLMProvider == "" {
		c.LLMProvider = ProviderNone
	}
	if c.AutoSavepointDebounceMS == 0 {
		c.AutoSavepointDebounceMS = DefaultAutoSavepointDebounceMS
	}
	return c
}

// Load resolves configuration in two layers: an optional human-edited
// override file (config.json5 takes precedence over config.yaml, if both
// are present), then the environment, which always wins over the file. This
// is the same "env-first-then-file-default" convention used elsewhere in
// this codebase's dependency family (a ConfigFromEnv/ApplyEnvDefaults
// pairing).
func Load() (*Config, error) {
	cfg, err := loadOverrideFile()
	if err != nil {
		return nil, err
	}
	cfg = applyEnv(cfg).withDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadOverrideFile() (Config, error) {
	if data, err := os.ReadFile("config.json5"); err == nil {
		var cfg Config
		if err := json5.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config.json5: %w", err)
		}
		return cfg, nil
	}
	if data, err := os.ReadFile("config.yaml"); err == nil {
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config.yaml: %w", err)
		}
		return cfg, nil
	}
	return Config{}, nil
}

func applyEnv(cfg Config) Config {
	cfg.DatabaseURL = envOr(cfg.DatabaseURL, os.Getenv("DATABASE_URL"))
	if port, ok := envInt("PORT"); ok {
		cfg.Port = port
	}
	if provider := strings.TrimSpace(os.Getenv("LLM_PROVIDER")); provider != "" {
		cfg.LLMProvider = LLMProvider(provider)
	}
	cfg.LLMAPIKey = envOr(cfg.LLMAPIKey, os.Getenv("LLM_API_KEY"))
	cfg.LLMModel = envOr(cfg.LLMModel, os.Getenv("LLM_MODEL"))
	if ms, ok := envInt("AUTO_SAVEPOINT_DEBOUNCE_MS"); ok {
		cfg.AutoSavepointDebounceMS = ms
	}
	if b, ok := envBool("COOKIE_SECURE"); ok {
		cfg.CookieSecure = b
	}
	if b, ok := envBool("PERF_TEST_AUTH_BYPASS"); ok {
		cfg.PerfTestAuthBypass = b
	}
	return cfg
}

func (c Config) validate() error {
	switch c.LLMProvider {
	case ProviderAnthropic, ProviderOpenAI, ProviderNone:
	default:
		return fmt.Errorf("config: LLM_PROVIDER must be one of anthropic, openai, none; got %q", c.LLMProvider)
	}
	if c.LLMProvider != ProviderNone && strings.TrimSpace(c.LLMAPIKey) == "" {
		return fmt.Errorf("config: LLM_API_KEY is required when LLM_PROVIDER=%s", c.LLMProvider)
	}
	return nil
}

func envOr(existing, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return existing
	}
	return value
}

func envInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false, false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return b, true
}
