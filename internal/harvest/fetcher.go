// Package harvest retrieves raw items from the configured sources: RSS and
// Atom feeds, scraped pages, JSON APIs, and static text. It normalizes
// everything to models.RawItem; all filtering happens downstream.
package harvest

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cparmet/finite-news/internal/config"
	"github.com/cparmet/finite-news/internal/models"
)

const (
	httpTimeout    = 30 * time.Second
	maxConcurrent  = 10
	rateLimitDelay = 1 * time.Second
)

// datePlaceholder in a static message expands to the current date, which
// also makes the text unique per day for caching purposes.
const datePlaceholder = "{{DATE}}"

// FailedSource records a source that could not be harvested.
type FailedSource struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Result contains the harvested items in declared source order and any
// per-source failures.
type Result struct {
	Items  []models.RawItem
	Failed []FailedSource
}

// Fetcher harvests sources with per-domain rate limiting and bounded
// concurrency.
type Fetcher struct {
	client      *http.Client
	rateLimiter map[string]time.Time // per-domain last request time
	rateDelay   time.Duration
	mu          sync.Mutex // protects rateLimiter

	// now supplies the date for static-message expansion.
	now func() time.Time
}

// NewFetcher creates a Fetcher with a 30-second timeout HTTP client.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: httpTimeout,
			Transport: &userAgentTransport{
				base: http.DefaultTransport,
			},
		},
		rateLimiter: make(map[string]time.Time),
		rateDelay:   rateLimitDelay,
		now:         time.Now,
	}
}

// userAgentTransport wraps an http.RoundTripper to inject browser-like
// headers on every request.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	// Some sites reject requests without browser-like headers.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return t.base.RoundTrip(req)
}

// FetchAll harvests all sources concurrently with a maximum of 10
// goroutines. Items are returned grouped by source in declared order, with
// each item's Order recording its position within its source's batch.
// Individual source failures are collected in Result.Failed rather than
// failing the whole batch.
func (f *Fetcher) FetchAll(ctx context.Context, sources []config.Source) (*Result, error) {
	perSource := make([][]models.RawItem, len(sources))

	var (
		mu     sync.Mutex
		failed []FailedSource
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, src := range sources {
		g.Go(func() error {
			texts, err := f.fetchSource(ctx, src)
			if err != nil {
				slog.Warn("failed to harvest source",
					"source", src.Name,
					"url", src.URL,
					"error", err,
				)

				mu.Lock()
				failed = append(failed, FailedSource{Source: src.Name, Error: err.Error()})
				mu.Unlock()

				return nil // skip failures, don't fail the batch
			}

			perSource[i] = toItems(src, texts)

			slog.Info("harvested source", "source", src.Name, "items", len(texts))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Failed: failed}
	for _, items := range perSource {
		result.Items = append(result.Items, items...)
	}
	return result, nil
}

// harvested is one raw unit of text from a source, with an optional link.
type harvested struct {
	Text string
	URL  string
}

// fetchSource dispatches on the source's harvest method.
func (f *Fetcher) fetchSource(ctx context.Context, src config.Source) ([]harvested, error) {
	switch src.Method {
	case "feed":
		f.waitForRateLimit(extractDomain(src.URL))
		return f.fetchFeed(ctx, src)
	case "scrape":
		f.waitForRateLimit(extractDomain(src.URL))
		return f.fetchScrape(ctx, src)
	case "api":
		f.waitForRateLimit(extractDomain(src.URL))
		return f.fetchAPI(ctx, src)
	case "static":
		return f.fetchStatic(src), nil
	default:
		return nil, &UnknownMethodError{Method: src.Method}
	}
}

// fetchStatic expands the source's static message. The date placeholder
// yields text that changes daily, so the item survives cross-day
// suppression without opting the source out of caching.
func (f *Fetcher) fetchStatic(src config.Source) []harvested {
	text := strings.ReplaceAll(src.StaticMessage, datePlaceholder, f.now().Format("Monday, January 2, 2006"))
	if text == "" {
		return nil
	}
	return []harvested{{Text: text}}
}

// toItems converts one source's harvested texts into tagged items. Text
// passes through as harvested; the source preface is attached downstream,
// after the filter rules have seen the bare text.
func toItems(src config.Source, texts []harvested) []models.RawItem {
	items := make([]models.RawItem, 0, len(texts))
	for i, h := range texts {
		items = append(items, models.RawItem{
			Source:   src.Name,
			Category: src.Category,
			Kind:     models.Kind(src.Kind),
			Text:     h.Text,
			URL:      h.URL,
			Order:    i,
		})
	}
	return items
}

// UnknownMethodError reports an unrecognized harvest method. Config
// validation rejects these at load time, so seeing one here means the
// source list was built without going through config.Load.
type UnknownMethodError struct {
	Method string
}

func (e *UnknownMethodError) Error() string {
	return "unknown harvest method: " + e.Method
}

// waitForRateLimit enforces a minimum delay of 1 second between requests
// to the same domain. It blocks until the delay has elapsed.
func (f *Fetcher) waitForRateLimit(domain string) {
	f.mu.Lock()
	lastReq, ok := f.rateLimiter[domain]
	if ok {
		elapsed := time.Since(lastReq)
		if elapsed < f.rateDelay {
			f.mu.Unlock()
			time.Sleep(f.rateDelay - elapsed)
			f.mu.Lock()
		}
	}
	f.rateLimiter[domain] = time.Now()
	f.mu.Unlock()
}

// extractDomain parses a URL and returns its hostname. If parsing fails,
// it returns the raw URL as a fallback key.
func extractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
