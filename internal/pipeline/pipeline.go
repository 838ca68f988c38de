// Package pipeline runs a question through the linear cheatsheet flow:
// build context, optionally search, ask the model, summarize and save.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sozercan/cheatsheet-ai/apimodels"
	"github.com/sozercan/cheatsheet-ai/internal/cheatsheet"
	"github.com/sozercan/cheatsheet-ai/internal/llm"
	"github.com/sozercan/cheatsheet-ai/internal/memory"
	"github.com/sozercan/cheatsheet-ai/internal/metrics"
	"github.com/sozercan/cheatsheet-ai/internal/prompt"
	"github.com/sozercan/cheatsheet-ai/internal/search"
)

const defaultLanguage = "en"

// ErrInvalidInput marks requests rejected before any upstream call.
var ErrInvalidInput = errors.New("invalid input")

type Deps struct {
	Model     llm.Provider
	Prompts   *prompt.Builder
	Persister *cheatsheet.Persister

	// Searcher is nil when augmentation is disabled.
	Searcher       search.Searcher
	SearchProvider string

	Memory        memory.Store
	Counter       memory.Counter
	HistoryBudget int

	DefaultLanguage string
}

type Pipeline struct {
	model     llm.Provider
	prompts   *prompt.Builder
	persister *cheatsheet.Persister

	searcher       search.Searcher
	searchProvider string

	memory        memory.Store
	counter       memory.Counter
	historyBudget int

	language string
}

func New(d Deps) *Pipeline {
	p := &Pipeline{
		model:          d.Model,
		prompts:        d.Prompts,
		persister:      d.Persister,
		searcher:       d.Searcher,
		searchProvider: d.SearchProvider,
		memory:         d.Memory,
		counter:        d.Counter,
		historyBudget:  d.HistoryBudget,
		language:       d.DefaultLanguage,
	}
	if p.memory == nil {
		p.memory = memory.Nop{}
	}
	if p.counter == nil {
		p.counter = memory.NewTiktokenCounter("")
	}
	if p.language == "" {
		p.language = defaultLanguage
	}
	return p
}

// Run answers one query. Invalid requests fail with ErrInvalidInput; model
// errors are returned as the provider reported them. Failures after the
// model answered are reported as warnings on the response.
func (p *Pipeline) Run(ctx context.Context, req apimodels.QueryRequest) (*apimodels.QueryResponse, error) {
	start := time.Now()

	if req.Question == nil || strings.TrimSpace(*req.Question) == "" {
		return nil, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	question := *req.Question

	folder := req.Folder()
	if _, err := p.persister.Resolve(folder); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	language := req.Language
	if language == "" {
		language = p.language
	}
	threadID := req.Thread()
	if threadID == "" {
		threadID = uuid.NewString()
	}

	slog.Info("Starting query", "thread_id", threadID, "language", language)

	var warnings []string

	history, err := p.memory.History(ctx, threadID)
	if err != nil {
		slog.Warn("Failed to load thread history", "thread_id", threadID, "error", err)
		warnings = append(warnings, fmt.Sprintf("conversation history unavailable: %v", err))
	}
	history = memory.Trim(history, p.historyBudget, p.counter)

	var hits []search.Result
	if p.searcher != nil {
		hits, err = p.searcher.Search(ctx, question)
		if err != nil {
			slog.Error("Web search failed", "provider", p.searchProvider, "error", err)
			return nil, fmt.Errorf("web search: %w", err)
		}
		slog.Debug("Web search completed", "provider", p.searchProvider, "results", len(hits))
	}

	messages, err := p.prompts.Build(prompt.Input{
		Language: language,
		History:  history,
		Question: question,
		Hits:     hits,
	})
	if err != nil {
		return nil, err
	}

	resp, err := p.model.Complete(ctx, messages)
	if err != nil {
		slog.Error("Model call failed", "thread_id", threadID, "error", err)
		return nil, err
	}

	if err := p.memory.Append(ctx, threadID,
		llm.Message{Role: llm.RoleUser, Content: question},
		llm.Message{Role: llm.RoleAssistant, Content: resp.Content},
	); err != nil {
		slog.Warn("Failed to record thread history", "thread_id", threadID, "error", err)
		warnings = append(warnings, fmt.Sprintf("conversation history not saved: %v", err))
	}

	results := []string{resp.Content}
	if len(hits) > 0 {
		results = append(results, sources(hits))
	}

	doc := cheatsheet.Summarize(results)
	warnings = append(warnings, doc.Warnings...)

	file, err := p.persister.Save(doc.Markdown, folder, language)
	metrics.ObserveSave(err)
	if err != nil {
		slog.Error("Failed to save cheatsheet", "folder", folder, "error", err)
		warnings = append(warnings, fmt.Sprintf("cheatsheet not saved: %v", err))
	}

	slog.Info("Query completed",
		"thread_id", threadID,
		"file", file,
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
		"duration", time.Since(start),
	)

	return &apimodels.QueryResponse{
		Status:   apimodels.StatusSuccess,
		Results:  results,
		File:     file,
		ThreadID: threadID,
		Warnings: warnings,
	}, nil
}

func sources(hits []search.Result) string {
	var b strings.Builder
	b.WriteString("## Sources\n\n")
	for _, h := range hits {
		fmt.Fprintf(&b, "- %s\n", h.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}
