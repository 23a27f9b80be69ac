package digest

import (
	"context"
	"strings"
	"time"

	"github.com/cparmet/finite-news/internal/models"
)

// Engine applies the full consolidation chain to one recipient's batch of
// harvested items: rule filter, topic exclusivity, cross-day and semantic
// deduplication, the advisory model filter, and alert diffing.
//
// An Engine is a synchronous transform with no shared mutable state; the
// prior snapshot is threaded through each call, so runs for different
// recipients may proceed fully in parallel. A nil Embedder disables
// semantic dedup and a nil Advisor disables the advisory pass.
type Engine struct {
	Embedder            Embedder
	Advisor             Advisor
	SimilarityThreshold float64
	OneHeadlineKeywords []string
	AdvisoryInstruction string

	// Now supplies the calendar date for daily-unique fingerprints.
	// Defaults to time.Now; tests pin it.
	Now func() time.Time
}

// Consolidate reduces the harvested items to the final per-category sets
// and fired alerts, and assembles the next cache snapshot. It always
// produces a usable result: scoring-service failures degrade to the
// previous stage's output with a warning.
//
// The next snapshot is built from the rule-filter survivors, before the
// dedup and advisory stages, so an item suppressed today stays suppressed
// tomorrow and a nondeterministic advisory removal cannot reopen the pool.
func (e *Engine) Consolidate(ctx context.Context, policies []SourcePolicy, items []models.RawItem, prior models.Snapshot) *models.ConsolidationResult {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	today := now()

	bySource := make(map[string][]models.RawItem)
	for _, item := range items {
		bySource[item.Source] = append(bySource[item.Source], item)
	}

	policyByName := make(map[string]SourcePolicy, len(policies))
	var warnings []models.Warning
	survivors := make([]models.RawItem, 0, len(items))
	survivorsBySource := make(map[string][]models.RawItem, len(policies))

	// Stage 1: stateless rule filter, per source in declared order.
	for _, p := range policies {
		policyByName[p.Name] = p

		raw := bySource[p.Name]
		if len(raw) == 0 {
			if !p.SuppressZeroWarning {
				warnings = append(warnings, models.Warning{Source: p.Name, Reason: "retrieved 0 items"})
			}
			continue
		}

		kept, w := ApplyPolicy(raw, p)
		warnings = append(warnings, w...)
		survivors = append(survivors, kept...)
		survivorsBySource[p.Name] = kept
	}

	// The next snapshot carries every rule-filter survivor of a cacheable
	// kind, so dropped repeats are carried forward too. Event blocks are
	// regenerated each day and never cached.
	next := make(models.Snapshot)
	for _, p := range policies {
		if p.Kind == models.KindEvent || p.Kind == models.KindAlert {
			continue
		}
		fps := fingerprintAll(survivorsBySource[p.Name], p.DailyUnique, today)
		if len(fps) > 0 {
			next[p.Name] = fps
		}
	}

	// Stages 2-4 operate on the non-alert stream.
	main := filterOut(survivors, models.KindAlert)

	headlines := filterKind(main, models.KindHeadline)
	headlines = ApplyExclusivity(headlines, e.OneHeadlineKeywords)
	main = retain(main, models.KindHeadline, headlines)

	todayStr := func() string { return today.Format("2006-01-02") }
	main = RemoveSeen(main, prior, policyByName, todayStr)

	headlines = filterKind(main, models.KindHeadline)
	cached := cachedHeadlineFingerprints(prior, policies)
	headlines, w := Deduplicate(ctx, e.Embedder, e.SimilarityThreshold, headlines, cached, prefacesOf(policies))
	warnings = append(warnings, w...)
	main = retain(main, models.KindHeadline, headlines)

	headlines = filterKind(main, models.KindHeadline)
	headlines, w = ApplyAdvisory(ctx, e.Advisor, e.AdvisoryInstruction, headlines)
	warnings = append(warnings, w...)
	main = retain(main, models.KindHeadline, headlines)

	// Alert sources flow through their own differ against their cache
	// slice; all current survivors replace the slice in the next snapshot.
	var alerts []models.RawItem
	for _, p := range policies {
		if p.Kind != models.KindAlert {
			continue
		}
		fired, nextSlice := DiffAlerts(survivorsBySource[p.Name], prior[p.Name], p.DailyUnique, today)
		alerts = append(alerts, fired...)
		if len(nextSlice) > 0 {
			next[p.Name] = nextSlice
		}
	}

	for i := range main {
		main[i].Text = finalizeText(main[i].Text, main[i].Kind)
	}
	for i := range alerts {
		alerts[i].Text = finalizeText(alerts[i].Text, alerts[i].Kind)
	}

	return &models.ConsolidationResult{
		Categories:   groupByCategory(main),
		Alerts:       alerts,
		Warnings:     warnings,
		NextSnapshot: next,
	}
}

// fingerprintAll returns the ordered, de-duplicated fingerprints of items.
func fingerprintAll(items []models.RawItem, daily bool, today time.Time) []string {
	var fps []string
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		fp := Fingerprint(item.Text)
		if daily {
			fp = DailyFingerprint(item.Text, today)
		}
		if seen[fp] {
			continue
		}
		seen[fp] = true
		fps = append(fps, fp)
	}
	return fps
}

// prefacesOf collects the configured source prefaces, for stripping
// before similarity scoring.
func prefacesOf(policies []SourcePolicy) []string {
	var out []string
	for _, p := range policies {
		if p.Preface != "" {
			out = append(out, p.Preface)
		}
	}
	return out
}

// cachedHeadlineFingerprints collects the prior snapshot's fingerprints
// for headline sources that have not opted out of cross-day suppression.
func cachedHeadlineFingerprints(prior models.Snapshot, policies []SourcePolicy) []string {
	var out []string
	for _, p := range policies {
		if p.Kind != models.KindHeadline || p.SkipCrossDay {
			continue
		}
		out = append(out, prior[p.Name]...)
	}
	return out
}

// filterKind returns the items of the given kind, preserving order.
func filterKind(items []models.RawItem, kind models.Kind) []models.RawItem {
	var out []models.RawItem
	for _, item := range items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

// filterOut returns the items NOT of the given kind, preserving order.
func filterOut(items []models.RawItem, kind models.Kind) []models.RawItem {
	var out []models.RawItem
	for _, item := range items {
		if item.Kind != kind {
			out = append(out, item)
		}
	}
	return out
}

// retain keeps every item that is not of the given kind, plus the items
// of that kind present in kept. Order is preserved.
func retain(items []models.RawItem, kind models.Kind, kept []models.RawItem) []models.RawItem {
	keep := make(map[models.RawItem]bool, len(kept))
	for _, item := range kept {
		keep[item] = true
	}

	out := items[:0:0]
	for _, item := range items {
		if item.Kind != kind || keep[item] {
			out = append(out, item)
		}
	}
	return out
}

// groupByCategory buckets items by category in order of first appearance.
func groupByCategory(items []models.RawItem) []models.CategoryItems {
	index := make(map[string]int)
	var out []models.CategoryItems
	for _, item := range items {
		i, ok := index[item.Category]
		if !ok {
			i = len(out)
			index[item.Category] = i
			out = append(out, models.CategoryItems{Category: item.Category})
		}
		out[i].Items = append(out[i].Items, item)
	}
	return out
}

// finalizeText standardizes apostrophes and spacing in delivered text and
// ensures headlines and alerts end in terminal punctuation. Image and
// event markup is left untouched.
func finalizeText(text string, kind models.Kind) string {
	if kind != models.KindHeadline && kind != models.KindAlert {
		return text
	}
	text = strings.NewReplacer("’", "'", "‘", "'", " ", " ").Replace(text)
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}
	switch text[len(text)-1] {
	case '.', '?', '!':
		return text
	}
	return text + "."
}
