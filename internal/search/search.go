// Package search provides the optional web search augmentation step.
//
// Available providers:
//
//   - duckduckgo: no API key, scrapes the DuckDuckGo HTML results page
//   - tavily: Tavily search API, API key required
//   - brave: Brave Search API, API key required
//
// All providers implement Searcher, so the pipeline never depends on a
// particular backend.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sozercan/cheatsheet-ai/internal/config"
	"github.com/sozercan/cheatsheet-ai/internal/upstream"
)

const DefaultMaxResults = 5

// Result is a single item returned by a Searcher.
type Result struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Searcher executes a query and returns at most a provider-configured number of results.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// New builds the provider named in cfg.
func New(cfg config.SearchConfig, policy upstream.Policy) (Searcher, error) {
	fetch := newFetcher(cfg.QPS, policy)
	switch cfg.Provider {
	case "duckduckgo", "":
		return newDuckDuckGo(cfg.Endpoint, cfg.MaxResults, fetch), nil
	case "tavily":
		return newTavily(cfg.APIKey, cfg.Endpoint, cfg.MaxResults, fetch), nil
	case "brave":
		return newBrave(cfg.APIKey, cfg.Endpoint, cfg.MaxResults, fetch), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Provider)
	}
}

// fetcher runs rate-limited HTTP calls under the upstream retry policy.
type fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	policy  upstream.Policy
}

func newFetcher(qps float64, policy upstream.Policy) *fetcher {
	limit := rate.Inf
	if qps > 0 {
		limit = rate.Limit(qps)
	}
	return &fetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
		policy:  policy,
	}
}

func (f *fetcher) do(ctx context.Context, service string, newReq func(ctx context.Context) (*http.Request, error), decode func(io.Reader) error) error {
	return upstream.Call(ctx, f.policy, service, func(ctx context.Context) error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := newReq(ctx)
		if err != nil {
			return err
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &upstream.StatusError{Service: service, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}
		return decode(resp.Body)
	})
}

func maxOrDefault(n int) int {
	if n <= 0 {
		return DefaultMaxResults
	}
	return n
}
