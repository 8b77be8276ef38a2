// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by adapters and backends that
// make network requests.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "civicqa/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries on 429 and 5xx responses (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SourcesConfig holds settings for the source adapters and the aggregator.
type SourcesConfig struct {
	// AdapterTimeout bounds each adapter call; a slower adapter is treated
	// as failed (default 4s).
	AdapterTimeout time.Duration `json:"adapter_timeout" yaml:"adapter_timeout"`

	// MaxPerSource is the maximum number of items each adapter returns (default 10).
	MaxPerSource int `json:"max_per_source" yaml:"max_per_source"`

	// SnippetRunes is the display length of KnowledgeItem.Snippet (default 200).
	SnippetRunes int `json:"snippet_runes" yaml:"snippet_runes"`

	// EnableWiki controls whether the encyclopedia adapter is used.
	EnableWiki bool `json:"enable_wiki" yaml:"enable_wiki"`

	// WikiBaseURL is the MediaWiki site root (default "https://zh.wikipedia.org").
	WikiBaseURL string `json:"wiki_base_url" yaml:"wiki_base_url"`

	// GovIndexPath is the YAML government resource index. Empty disables the adapter.
	GovIndexPath string `json:"gov_index_path" yaml:"gov_index_path"`

	// EnableStore controls the report, safety and post adapters backed by
	// the local record store.
	EnableStore bool `json:"enable_store" yaml:"enable_store"`
}

// StoreConfig locates the read-only record store.
type StoreConfig struct {
	// Path is the SQLite database file (default "data/records.db").
	Path string `json:"path" yaml:"path"`
}

// RankingConfig is the source-priority table and text-match boost used by
// the ranker. Values are policy knobs, not measured signals.
type RankingConfig struct {
	Safety       int `json:"safety" yaml:"safety"`
	Report       int `json:"report" yaml:"report"`
	Wiki         int `json:"wiki" yaml:"wiki"`
	Gov          int `json:"gov" yaml:"gov"`
	OfficialPost int `json:"official_post" yaml:"official_post"`
	Post         int `json:"post" yaml:"post"`
	MatchBoost   int `json:"match_boost" yaml:"match_boost"`
}

// SynthesisProvider selects the generative backend.
type SynthesisProvider string

const (
	ProviderGemini SynthesisProvider = "gemini"
	ProviderClaude SynthesisProvider = "claude"
	ProviderNone   SynthesisProvider = "none"
)

// BreakerConfig configures the circuit breaker around the generative backend.
type BreakerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MaxRequests allowed in half-open state.
	MaxRequests uint32 `json:"max_requests" yaml:"max_requests"`

	// Interval clears failure counts while closed.
	Interval time.Duration `json:"interval" yaml:"interval"`

	// OpenTimeout is how long the breaker stays open before half-opening.
	OpenTimeout time.Duration `json:"open_timeout" yaml:"open_timeout"`

	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32 `json:"consecutive_failures" yaml:"consecutive_failures"`
}

// SynthesisConfig holds settings for the answer synthesizer.
type SynthesisConfig struct {
	Provider SynthesisProvider `json:"provider" yaml:"provider"`

	// Model is the backend model identifier (e.g. "gemini-2.5-flash").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the backend.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Timeout bounds a single synthesis round trip (default 15s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	Temperature float32 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`

	// ContextLimit is the number of ranked items rendered into the prompt (default 5).
	ContextLimit int `json:"context_limit" yaml:"context_limit"`

	// MaxRelatedQuestions caps follow-up suggestions (default 3).
	MaxRelatedQuestions int `json:"max_related_questions" yaml:"max_related_questions"`

	Breaker BreakerConfig `json:"breaker" yaml:"breaker"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`

	// MaxSessions bounds the number of tracked client sessions (default 1024).
	MaxSessions int `json:"max_sessions" yaml:"max_sessions"`

	// RequestTimeout bounds a whole search request (default 30s).
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	JSON  bool   `json:"json" yaml:"json"`
}

// AppConfig groups every configuration section.
type AppConfig struct {
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	Sources   SourcesConfig   `json:"sources" yaml:"sources"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Ranking   RankingConfig   `json:"ranking" yaml:"ranking"`
	Synthesis SynthesisConfig `json:"synthesis" yaml:"synthesis"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// DefaultAppConfig returns the configuration used when no file or
// environment override is present.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		HTTP: HTTPConfig{
			Timeout:    5 * time.Second,
			UserAgent:  "civicqa/0.1",
			MaxRetries: 2,
		},
		Sources: SourcesConfig{
			AdapterTimeout: 4 * time.Second,
			MaxPerSource:   10,
			SnippetRunes:   200,
			EnableWiki:     true,
			WikiBaseURL:    "https://zh.wikipedia.org",
			EnableStore:    true,
		},
		Store: StoreConfig{Path: "data/records.db"},
		Ranking: RankingConfig{
			Safety:       100,
			Report:       90,
			Wiki:         80,
			Gov:          70,
			OfficialPost: 60,
			Post:         50,
			MatchBoost:   20,
		},
		Synthesis: SynthesisConfig{
			Provider:            ProviderGemini,
			Model:               "gemini-2.5-flash",
			Timeout:             15 * time.Second,
			Temperature:         0.3,
			MaxTokens:           1024,
			ContextLimit:        MaxItems,
			MaxRelatedQuestions: 3,
			Breaker: BreakerConfig{
				Enabled:             true,
				MaxRequests:         1,
				Interval:            time.Minute,
				OpenTimeout:         30 * time.Second,
				ConsecutiveFailures: 3,
			},
		},
		Server: ServerConfig{
			Addr:           ":8080",
			MaxSessions:    1024,
			RequestTimeout: 30 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}
