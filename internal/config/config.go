package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pdiddy/evidence-engine/internal/secrets"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// EnvPrefix prefixes every environment override, e.g. EVIDENCE_ENGINE_INDEX_DIR.
const EnvPrefix = "EVIDENCE_ENGINE"

// Provider key variables read in addition to the prefixed forms.
const (
	ScholarKeyEnv = "SEMANTIC_SCHOLAR_API_KEY"
	GeminiKeyEnv  = "GEMINI_API_KEY"
)

// ErrMissingAPIKey is returned when a command needs a key that no source provides.
var ErrMissingAPIKey = errors.New("missing API key")

// SetDefaults registers every configuration key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("scholar.timeout", 30*time.Second)
	v.SetDefault("scholar.user_agent", "evidence-engine/0.1")
	v.SetDefault("scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("scholar.api_key", "")
	v.SetDefault("scholar.rate_limit", 1.0)
	v.SetDefault("scholar.burst", 1)
	v.SetDefault("scholar.search_limit", 100)

	v.SetDefault("index.dir", "index")
	v.SetDefault("index.max_results", 5)

	v.SetDefault("generator.model", "gemini-2.0-flash-lite")
	v.SetDefault("generator.api_key", "")
	v.SetDefault("generator.temperature", 0.1)

	v.SetDefault("evidence.max_refs", 100)
	v.SetDefault("evidence.rank_k", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
}

// BindEnv wires the prefixed environment overrides and the bare provider
// key variables into v.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("scholar.api_key", EnvPrefix+"_SCHOLAR_API_KEY", ScholarKeyEnv); err != nil {
		return fmt.Errorf("binding scholar key: %w", err)
	}
	if err := v.BindEnv("generator.api_key", EnvPrefix+"_GENERATOR_API_KEY", GeminiKeyEnv); err != nil {
		return fmt.Errorf("binding generator key: %w", err)
	}
	return nil
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load decodes v into a Config. Keys not set by flag, environment, or .env
// fall back to the matching file in sec.
func Load(v *viper.Viper, sec map[string]string) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}

	if cfg.Scholar.APIKey == "" {
		cfg.Scholar.APIKey = sec[secrets.ScholarAPIKey]
	}
	if cfg.Generator.APIKey == "" {
		cfg.Generator.APIKey = sec[secrets.GeminiAPIKey]
	}
	return cfg, nil
}

// RequireScholarKey fails when no Semantic Scholar key is configured.
func RequireScholarKey(cfg types.Config) error {
	if strings.TrimSpace(cfg.Scholar.APIKey) == "" {
		return fmt.Errorf("%w: set %s, add it to .env, or write %s%s",
			ErrMissingAPIKey, ScholarKeyEnv, secrets.DefaultDir, secrets.ScholarAPIKey)
	}
	return nil
}

// RequireGeneratorKey fails when no Gemini key is configured.
func RequireGeneratorKey(cfg types.Config) error {
	if strings.TrimSpace(cfg.Generator.APIKey) == "" {
		return fmt.Errorf("%w: set %s, add it to .env, or write %s%s",
			ErrMissingAPIKey, GeminiKeyEnv, secrets.DefaultDir, secrets.GeminiAPIKey)
	}
	return nil
}
