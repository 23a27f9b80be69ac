package harvest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/cparmet/finite-news/internal/config"
)

// fetchScrape harvests a source from page HTML. With extract "readability"
// the page's main readable text becomes a single item; otherwise each node
// matching the source's CSS selector yields one item.
func (f *Fetcher) fetchScrape(ctx context.Context, src config.Source) ([]harvested, error) {
	if src.Extract == "readability" {
		return f.extractReadable(src)
	}
	return f.scrapeSelector(ctx, src)
}

// scrapeSelector fetches the page and extracts the text of every node
// matching the selector, in document order. An anchor node or a node
// containing one contributes its href as the item link.
func (f *Fetcher) scrapeSelector(ctx context.Context, src config.Source) ([]harvested, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %q: %w", src.URL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %q: unexpected status %d", src.URL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %q: %w", src.URL, err)
	}

	var out []harvested
	doc.Find(src.Selector).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		href, ok := sel.Attr("href")
		if !ok {
			href = sel.Find("a[href]").First().AttrOr("href", "")
		}
		out = append(out, harvested{Text: text, URL: href})
	})
	return out, nil
}

// browserHeaders sets browser-like request headers so sites that check
// Accept or User-Agent don't reject the request with 406.
func browserHeaders(r *http.Request) {
	r.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Header.Set("User-Agent", "Mozilla/5.0 (compatible; FiniteNews/1.0; +https://github.com/cparmet/finite-news)")
}

// extractReadable returns the page's main readable text as a single item.
func (f *Fetcher) extractReadable(src config.Source) ([]harvested, error) {
	article, err := readability.FromURL(src.URL, httpTimeout, browserHeaders)
	if err != nil {
		return nil, fmt.Errorf("readability extraction from %q: %w", src.URL, err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, nil
	}
	return []harvested{{Text: text, URL: src.URL}}, nil
}
