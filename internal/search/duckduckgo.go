package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/sozercan/cheatsheet-ai/internal/metrics"
)

const duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo scrapes the DuckDuckGo HTML results page. It depends on the
// page's markup and is best effort.
type DuckDuckGo struct {
	endpoint   string
	maxResults int
	fetch      *fetcher
}

func newDuckDuckGo(endpoint string, maxResults int, fetch *fetcher) *DuckDuckGo {
	if endpoint == "" {
		endpoint = duckDuckGoEndpoint
	}
	return &DuckDuckGo{endpoint: endpoint, maxResults: maxOrDefault(maxResults), fetch: fetch}
}

func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}

	u, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid duckduckgo endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	var results []Result
	err = d.fetch.do(ctx, "duckduckgo",
		func(ctx context.Context) (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
			return req, nil
		},
		func(body io.Reader) error {
			var err error
			results, err = parseResultsPage(body, d.maxResults)
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	metrics.ObserveSearch("duckduckgo", len(results))
	slog.Debug("DuckDuckGo search completed", "query", query, "results", len(results))
	return results, nil
}

// parseResultsPage collects the first link of every result container
// (class "result", ads excluded) until max links are found.
func parseResultsPage(r io.Reader, max int) ([]Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing results page: %w", err)
	}

	var results []Result
	seen := make(map[string]bool)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(results) >= max {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "result") {
			if hasClass(n, "result--ad") {
				return
			}
			if res, ok := resultFromContainer(n); ok && !seen[res.URL] {
				seen[res.URL] = true
				results = append(results, res)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return results, nil
}

func resultFromContainer(n *html.Node) (Result, bool) {
	anchor := findElement(n, func(e *html.Node) bool {
		return e.Data == "a" && hasClass(e, "result__a")
	})
	if anchor == nil {
		anchor = findElement(n, func(e *html.Node) bool {
			return e.Data == "a" && attr(e, "href") != ""
		})
	}
	if anchor == nil {
		return Result{}, false
	}

	link, ok := resolveLink(attr(anchor, "href"))
	if !ok {
		return Result{}, false
	}

	res := Result{Title: textContent(anchor), URL: link}
	if snippet := findElement(n, func(e *html.Node) bool { return hasClass(e, "result__snippet") }); snippet != nil {
		res.Snippet = textContent(snippet)
	}
	return res, true
}

// resolveLink unwraps DuckDuckGo redirect links and keeps only absolute http(s) URLs.
func resolveLink(href string) (string, bool) {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		target := u.Query().Get("uddg")
		if target == "" {
			return "", false
		}
		return resolveLink(target)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	return u.String(), true
}

func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
