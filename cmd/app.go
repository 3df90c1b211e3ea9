package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/flowforge/internal/config"
	"github.com/flowforge/internal/generator"
	"github.com/flowforge/internal/llm"
	"github.com/flowforge/internal/logging"
	"github.com/flowforge/internal/metrics"
	"github.com/flowforge/internal/prompts"
	"github.com/flowforge/internal/retry"
)

// loadConfig reads and validates the configuration named by the global
// --config flag and installs the configured logger. The returned closer
// flushes the log file.
func loadConfig(c *cli.Context) (*config.Config, io.Closer, error) {
	if envFile := c.String("env-file"); envFile != "" {
		if err := LoadEnvFile(envFile); err != nil {
			return nil, nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	closer, err := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closer, nil
}

// openStore opens the prompt store, creating empty documents and seeding
// initial versions from prompts.seed_dir when configured.
func openStore(cfg *config.Config) (*prompts.Store, error) {
	store, err := prompts.NewStore(cfg.Prompts.Dir, prompts.WithActiveHook(func(t prompts.PromptType, version int) {
		metrics.SetPromptVersion(string(t), version)
	}))
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(); err != nil {
		return nil, err
	}
	if cfg.Prompts.SeedDir != "" {
		n, err := store.Seed(cfg.Prompts.SeedDir)
		if err != nil {
			return nil, fmt.Errorf("failed to seed prompts: %w", err)
		}
		if n > 0 {
			log.Info().Int("created", n).Str("dir", cfg.Prompts.SeedDir).Msg("Seeded prompt store")
		}
	}
	store.Report()
	return store, nil
}

// newLLMClient builds the configured backend behind timeout, retry and
// metrics handling. A missing API key yields a nil client so the server can
// still start; LLM routes then report the key as not configured.
func newLLMClient(cfg *config.Config) (llm.Client, error) {
	client, err := llm.New(llm.Config{
		Backend:     cfg.LLM.Backend,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Referer:     cfg.LLM.Referer,
		AppTitle:    cfg.LLM.AppTitle,
	})
	if errors.Is(err, llm.ErrMissingAPIKey) {
		log.Warn().Msg("llm.api_key is not set, LLM routes will fail until it is configured")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	retryCfg := retry.LLMConfig()
	retryCfg.MaxRetries = cfg.LLM.MaxRetries
	return llm.NewResilientClient(client, retryCfg, cfg.LLM.Timeout), nil
}

// newGenerator wires the generator service from configuration.
func newGenerator(cfg *config.Config, store *prompts.Store) (*generator.Service, error) {
	client, err := newLLMClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return generator.New(store, client, generator.Options{
		Models:          cfg.LLM.Models,
		ValidationModel: cfg.LLM.ValidationModel,
		TraceDir:        cfg.Log.TraceDir,
	}), nil
}
