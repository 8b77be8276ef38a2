// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/pdiddy/civicqa/internal/answer"
	"github.com/pdiddy/civicqa/internal/logging"
	"github.com/pdiddy/civicqa/internal/secrets"
	"github.com/pdiddy/civicqa/internal/sources"
	"github.com/pdiddy/civicqa/internal/store"
	"github.com/pdiddy/civicqa/internal/synth"
	"github.com/pdiddy/civicqa/pkg/types"
)

// configFileUsed is the config file read by initConfig, if any.
var configFileUsed string

// envKeys are the settings that can be overridden through CIVICQA_*
// variables, e.g. CIVICQA_SYNTHESIS_PROVIDER.
var envKeys = []string{
	"log.level",
	"log.json",
	"store.path",
	"sources.gov_index_path",
	"sources.wiki_base_url",
	"sources.enable_wiki",
	"sources.enable_store",
	"synthesis.provider",
	"synthesis.model",
	"synthesis.api_key",
	"synthesis.timeout",
	"server.addr",
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("CIVICQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		v.BindEnv(k)
	}
}

// loadConfig overlays the config file, environment and bound flags on top
// of the defaults.
func loadConfig() (types.AppConfig, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (types.AppConfig, error) {
	cfg := types.DefaultAppConfig()
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return types.AppConfig{}, fmt.Errorf("decoding config: %w", err)
	}
	switch cfg.Synthesis.Provider {
	case types.ProviderGemini, types.ProviderClaude, types.ProviderNone:
	default:
		return types.AppConfig{}, fmt.Errorf("unknown synthesis provider %q: use gemini, claude or none", cfg.Synthesis.Provider)
	}
	return cfg, nil
}

// buildPipeline wires adapters and the synthesizer from cfg. The returned
// cleanup closes the record store.
func buildPipeline(ctx context.Context, cfg types.AppConfig, sec secrets.Secrets, logger *log.Logger) (*answer.Pipeline, func(), error) {
	logger = logging.OrDiscard(logger)
	cleanup := func() {}

	var adapters []sources.Adapter
	if cfg.Sources.EnableWiki {
		adapters = append(adapters, &sources.WikiAdapter{
			Client:       &http.Client{Timeout: cfg.HTTP.Timeout},
			BaseURL:      cfg.Sources.WikiBaseURL,
			HTTP:         cfg.HTTP,
			MaxResults:   cfg.Sources.MaxPerSource,
			SnippetRunes: cfg.Sources.SnippetRunes,
		})
	}
	if cfg.Sources.GovIndexPath != "" {
		gov, err := sources.NewGovAdapter(cfg.Sources.GovIndexPath, cfg.Sources)
		if err != nil {
			return nil, cleanup, err
		}
		adapters = append(adapters, gov)
	}
	if cfg.Sources.EnableStore {
		st, err := store.NewStore(cfg.Store)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { st.Close() }
		adapters = append(adapters, sources.NewStoreAdapters(st, cfg.Sources)...)
	}

	backend, err := buildBackend(ctx, cfg.Synthesis, sec, logger)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	var synthesizer *synth.Synthesizer
	if backend != nil {
		synthesizer = synth.New(backend, cfg.Synthesis)
	}

	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.Name()
	}
	logger.Debug("pipeline ready", "adapters", names, "provider", cfg.Synthesis.Provider, "synthesis", synthesizer != nil)

	return answer.New(adapters, synthesizer, cfg, logger), cleanup, nil
}

// buildBackend returns nil when synthesis is disabled or has no API key;
// every answer then comes from the fallback engine.
func buildBackend(ctx context.Context, cfg types.SynthesisConfig, sec secrets.Secrets, logger *log.Logger) (synth.Backend, error) {
	var backend synth.Backend
	switch cfg.Provider {
	case types.ProviderNone:
		return nil, nil
	case types.ProviderGemini:
		key := sec.Lookup(secrets.GeminiAPIKey, cfg.APIKey)
		if key == "" {
			logger.Warn("no Gemini API key found; answers will use the local fallback", "secret", secrets.GeminiAPIKey)
			return nil, nil
		}
		g, err := synth.NewGeminiBackend(ctx, synth.GeminiConfig{APIKey: key, Model: cfg.Model})
		if err != nil {
			return nil, err
		}
		backend = g
	case types.ProviderClaude:
		key := sec.Lookup(secrets.AnthropicAPIKey, cfg.APIKey)
		if key == "" {
			logger.Warn("no Anthropic API key found; answers will use the local fallback", "secret", secrets.AnthropicAPIKey)
			return nil, nil
		}
		model := cfg.Model
		if strings.HasPrefix(model, "gemini") {
			model = ""
		}
		backend = &synth.ClaudeBackend{APIKey: key, Model: model, Client: &http.Client{}}
	default:
		return nil, fmt.Errorf("unknown synthesis provider %q", cfg.Provider)
	}

	if cfg.Breaker.Enabled {
		backend = synth.NewBreakerBackend(backend, cfg.Breaker, logger)
	}
	return backend, nil
}
