package digest

import (
	"context"

	"github.com/cparmet/finite-news/internal/models"
)

// Advisor is the advisory-model boundary: given a task instruction and an
// ordered list of candidate strings, it returns the strings the model
// recommends removing.
type Advisor interface {
	FlagRemovals(ctx context.Context, instruction string, candidates []string) ([]string, error)
}

// ApplyAdvisory invokes the advisory model over the surviving headlines
// and removes the flagged ones. The flagged set is intersected with the
// actual survivor set first, so a response containing unmatched or
// hallucinated text removes nothing.
//
// The stage is advisory: any failure, timeout, or malformed response
// leaves the survivor set unchanged and records a warning.
func ApplyAdvisory(ctx context.Context, advisor Advisor, instruction string, items []models.RawItem) ([]models.RawItem, []models.Warning) {
	if advisor == nil || len(items) == 0 {
		return items, nil
	}

	candidates := make([]string, len(items))
	for i, item := range items {
		candidates[i] = item.Text
	}

	flagged, err := advisor.FlagRemovals(ctx, instruction, candidates)
	if err != nil {
		return items, []models.Warning{{Reason: "advisory filter unavailable"}}
	}

	remove := make(map[string]bool, len(flagged))
	for _, f := range flagged {
		remove[f] = true
	}

	kept := items[:0:0]
	for _, item := range items {
		if remove[item.Text] {
			continue
		}
		kept = append(kept, item)
	}
	return kept, nil
}
