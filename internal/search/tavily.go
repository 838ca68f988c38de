package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sozercan/cheatsheet-ai/internal/metrics"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily calls the Tavily search API.
type Tavily struct {
	apiKey     string
	endpoint   string
	maxResults int
	fetch      *fetcher
}

func newTavily(apiKey, endpoint string, maxResults int, fetch *fetcher) *Tavily {
	if endpoint == "" {
		endpoint = tavilyEndpoint
	}
	return &Tavily{apiKey: apiKey, endpoint: endpoint, maxResults: maxOrDefault(maxResults), fetch: fetch}
}

func (t *Tavily) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(t.apiKey) == "" {
		return nil, errors.New("tavily: API key is missing")
	}

	payload, err := json.Marshal(map[string]any{
		"query":        query,
		"api_key":      t.apiKey,
		"max_results":  t.maxResults,
		"search_depth": "basic",
	})
	if err != nil {
		return nil, err
	}

	var response struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}

	err = t.fetch.do(ctx, "tavily",
		func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+t.apiKey)
			return req, nil
		},
		func(body io.Reader) error {
			return json.NewDecoder(body).Decode(&response)
		},
	)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(response.Results))
	for _, r := range response.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
		if len(results) >= t.maxResults {
			break
		}
	}

	metrics.ObserveSearch("tavily", len(results))
	return results, nil
}
