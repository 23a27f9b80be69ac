package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cparmet/finite-news/internal/config"
)

// fetchAPI harvests a JSON endpoint. The source's headline_field is a
// dot-separated path into the response; the value at that path may be a
// string, a list of strings, or a list of objects whose final path segment
// names the string field.
func (f *Fetcher) fetchAPI(ctx context.Context, src config.Source) ([]harvested, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %q: %w", src.URL, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %q: unexpected status %d", src.URL, resp.StatusCode)
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding JSON from %q: %w", src.URL, err)
	}

	texts, err := extractField(payload, strings.Split(src.HeadlineField, "."))
	if err != nil {
		return nil, fmt.Errorf("extracting %q from %q: %w", src.HeadlineField, src.URL, err)
	}

	out := make([]harvested, 0, len(texts))
	for _, text := range texts {
		out = append(out, harvested{Text: text})
	}
	return out, nil
}

// extractField walks the path into value and collects the strings at its
// end. A list encountered mid-path fans out over its elements.
func extractField(value any, path []string) ([]string, error) {
	if len(path) == 1 && path[0] == "" {
		path = nil
	}

	if len(path) == 0 {
		switch v := value.(type) {
		case string:
			return []string{v}, nil
		case []any:
			var out []string
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("expected string list, found %T", item)
				}
				out = append(out, s)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("expected string or list at path end, found %T", value)
		}
	}

	switch v := value.(type) {
	case map[string]any:
		child, ok := v[path[0]]
		if !ok {
			return nil, fmt.Errorf("field %q not present", path[0])
		}
		return extractField(child, path[1:])
	case []any:
		var out []string
		for _, item := range v {
			got, err := extractField(item, path)
			if err != nil {
				return nil, err
			}
			out = append(out, got...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot descend into %T at %q", value, path[0])
	}
}
