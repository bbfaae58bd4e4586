package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "evidence-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ScholarConfig holds settings for the literature provider client.
type ScholarConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the Semantic Scholar Graph API root (default https://api.semanticscholar.org/graph/v1).
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey is sent as X-API-KEY. Required by every command that calls the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// RateLimit is the sustained request rate in requests per second (default 1).
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// Burst is the token bucket size (default 1).
	Burst int `json:"burst" yaml:"burst" mapstructure:"burst"`

	// SearchLimit is the default number of papers requested per topic search (default 100).
	SearchLimit int `json:"search_limit" yaml:"search_limit" mapstructure:"search_limit"`
}

// IndexConfig holds settings for the semantic index.
type IndexConfig struct {
	// Dir is the directory holding the index database (default "index").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// MaxResults is the default number of query results (default 5).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// GeneratorConfig holds settings for the text-generation service.
type GeneratorConfig struct {
	// Model is the generation model identifier (e.g. "gemini-2.0-flash-lite").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the generation API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Temperature is the sampling temperature for verdicts (default 0.1).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
}

// EvidenceConfig holds the caps used by graph expansion and ranking.
type EvidenceConfig struct {
	// MaxRefs feeds the hop caps of the reference walk (default 100).
	MaxRefs int `json:"max_refs" yaml:"max_refs" mapstructure:"max_refs"`

	// RankK is the number of ranked evidence records handed to the generator (default 10).
	RankK int `json:"rank_k" yaml:"rank_k" mapstructure:"rank_k"`
}

// LogConfig selects the log level, format, and destination.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
	Output string `json:"output" yaml:"output" mapstructure:"output"`
}

// Config groups all component configurations.
type Config struct {
	Scholar   ScholarConfig   `json:"scholar" yaml:"scholar" mapstructure:"scholar"`
	Index     IndexConfig     `json:"index" yaml:"index" mapstructure:"index"`
	Generator GeneratorConfig `json:"generator" yaml:"generator" mapstructure:"generator"`
	Evidence  EvidenceConfig  `json:"evidence" yaml:"evidence" mapstructure:"evidence"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}
