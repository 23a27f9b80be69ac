package digest

import (
	"strings"

	"github.com/cparmet/finite-news/internal/models"
)

// ApplyExclusivity limits the issue to at most one headline per configured
// keyword. Keywords are applied as sequential passes in configured order
// over the declared item order: within a pass, the first headline
// containing the keyword survives and every later one is dropped. A
// headline dropped by an earlier keyword is not reconsidered by later
// keywords. Matching is a case-insensitive substring check.
func ApplyExclusivity(items []models.RawItem, keywords []string) []models.RawItem {
	for _, keyword := range keywords {
		kw := strings.ToLower(keyword)
		if kw == "" {
			continue
		}

		kept := items[:0:0]
		seen := false
		for _, item := range items {
			if strings.Contains(strings.ToLower(item.Text), kw) {
				if seen {
					continue
				}
				seen = true
			}
			kept = append(kept, item)
		}
		items = kept
	}
	return items
}
