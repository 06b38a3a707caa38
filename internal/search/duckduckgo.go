// Package search implements the web search tool the agent may call while answering.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultEndpoint is the JavaScript-free DuckDuckGo results page.
const DefaultEndpoint = "https://html.duckduckgo.com/html/"

const defaultUserAgent = "Mozilla/5.0 (compatible; video-summary-agent/1.0)"

var ErrEmptyQuery = errors.New("search query is empty")

// Result is one organic search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Options configures a DuckDuckGo searcher.
type Options struct {
	Endpoint   string
	MaxResults int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// DuckDuckGo scrapes the DuckDuckGo HTML endpoint.
type DuckDuckGo struct {
	endpoint   string
	maxResults int
	client     *http.Client
}

// NewDuckDuckGo creates a searcher. Zero options fall back to defaults.
func NewDuckDuckGo(opts Options) *DuckDuckGo {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	if opts.HTTPClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		opts.HTTPClient = &http.Client{Timeout: timeout}
	}
	return &DuckDuckGo{
		endpoint:   opts.Endpoint,
		maxResults: opts.MaxResults,
		client:     opts.HTTPClient,
	}
}

// MaxResults returns the default result count.
func (d *DuckDuckGo) MaxResults() int {
	return d.maxResults
}

// Search returns up to max results for query. A non-positive max uses the default.
func (d *DuckDuckGo) Search(ctx context.Context, query string, max int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if max <= 0 {
		max = d.maxResults
	}

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", defaultUserAgent)

	res, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("search returned status %d", res.StatusCode)
	}

	return parseResults(res.Body, max)
}

func parseResults(r io.Reader, max int) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}

	results := make([]Result, 0, max)
	doc.Find("div.result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		target := unwrapRedirect(href)
		if title == "" || target == "" {
			return true
		}
		results = append(results, Result{
			Title:   title,
			URL:     target,
			Snippet: strings.Join(strings.Fields(s.Find(".result__snippet").Text()), " "),
		})
		return len(results) < max
	})

	return results, nil
}

// unwrapRedirect turns "//duckduckgo.com/l/?uddg=<target>" links into the target URL.
func unwrapRedirect(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
	}
	return href
}
