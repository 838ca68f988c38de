package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sozercan/cheatsheet-ai/internal/metrics"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Brave uses the Brave Search API. The key goes in X-Subscription-Token.
type Brave struct {
	apiKey     string
	endpoint   string
	maxResults int
	fetch      *fetcher
}

func newBrave(apiKey, endpoint string, maxResults int, fetch *fetcher) *Brave {
	if endpoint == "" {
		endpoint = braveEndpoint
	}
	return &Brave{apiKey: apiKey, endpoint: endpoint, maxResults: maxOrDefault(maxResults), fetch: fetch}
}

func (b *Brave) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(b.apiKey) == "" {
		return nil, errors.New("brave: API key is missing")
	}

	u, err := url.Parse(b.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid brave endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", strconv.Itoa(b.maxResults))
	u.RawQuery = q.Encode()

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}

	err = b.fetch.do(ctx, "brave",
		func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Accept", "application/json")
			req.Header.Set("X-Subscription-Token", b.apiKey)
			return req, nil
		},
		func(body io.Reader) error {
			return json.NewDecoder(body).Decode(&payload)
		},
	)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Description})
		if len(results) >= b.maxResults {
			break
		}
	}

	metrics.ObserveSearch("brave", len(results))
	return results, nil
}
