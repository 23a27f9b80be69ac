package harvest

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/cparmet/finite-news/internal/config"
)

// fetchFeed retrieves an RSS or Atom feed and returns its entry titles in
// feed order.
func (f *Fetcher) fetchFeed(ctx context.Context, src config.Source) ([]harvested, error) {
	fp := gofeed.NewParser()
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %q: %w", src.URL, err)
	}

	var out []harvested
	for _, item := range feed.Items {
		if item == nil || item.Title == "" {
			continue
		}
		out = append(out, harvested{Text: item.Title, URL: item.Link})
	}
	return out, nil
}
