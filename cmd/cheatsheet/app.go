package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sozercan/cheatsheet-ai/internal/cheatsheet"
	"github.com/sozercan/cheatsheet-ai/internal/config"
	"github.com/sozercan/cheatsheet-ai/internal/llm"
	"github.com/sozercan/cheatsheet-ai/internal/logging"
	"github.com/sozercan/cheatsheet-ai/internal/memory"
	"github.com/sozercan/cheatsheet-ai/internal/pipeline"
	"github.com/sozercan/cheatsheet-ai/internal/prompt"
	"github.com/sozercan/cheatsheet-ai/internal/search"
	"github.com/sozercan/cheatsheet-ai/internal/upstream"
)

const tokenizerLoadTimeout = 10 * time.Second

// app holds the wired components shared by the serve and ask commands.
type app struct {
	cfg       *config.Config
	pipeline  *pipeline.Pipeline
	memory    memory.Store
	persister *cheatsheet.Persister
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.New(cfg.Log)

	policy := upstream.PolicyFromConfig(cfg.Upstream)

	model, err := llm.NewOpenAI(&cfg.OpenAI, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}

	prompts, err := prompt.New(cfg.Prompt.SystemTemplate)
	if err != nil {
		return nil, err
	}

	var searcher search.Searcher
	if cfg.Search.Enabled {
		searcher, err = search.New(cfg.Search, policy)
		if err != nil {
			return nil, fmt.Errorf("failed to create search provider: %w", err)
		}
		slog.Info("Web search enabled", "provider", cfg.Search.Provider)
	}

	store, err := memory.New(cfg.Memory)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory store: %w", err)
	}
	if r, ok := store.(*memory.Redis); ok {
		if err := r.Ping(ctx); err != nil {
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Memory.RedisAddr, err)
		}
	}

	persister := cheatsheet.NewPersister(cfg.Storage)

	counter := memory.NewTiktokenCounter(cfg.OpenAI.Model)
	if cfg.Memory.MaxHistoryTokens > 0 {
		loadCtx, cancel := context.WithTimeout(ctx, tokenizerLoadTimeout)
		if err := counter.Load(loadCtx); err != nil {
			slog.Warn("Token encoding unavailable, estimating history size", "model", cfg.OpenAI.Model, "error", err)
		}
		cancel()
	}

	p := pipeline.New(pipeline.Deps{
		Model:           model,
		Prompts:         prompts,
		Persister:       persister,
		Searcher:        searcher,
		SearchProvider:  cfg.Search.Provider,
		Memory:          store,
		Counter:         counter,
		HistoryBudget:   cfg.Memory.MaxHistoryTokens,
		DefaultLanguage: cfg.Prompt.DefaultLanguage,
	})

	return &app{cfg: cfg, pipeline: p, memory: store, persister: persister}, nil
}

func (a *app) Close() {
	if r, ok := a.memory.(*memory.Redis); ok {
		if err := r.Close(); err != nil {
			slog.Warn("Failed to close redis client", "error", err)
		}
	}
}
