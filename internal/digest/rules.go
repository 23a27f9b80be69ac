// Package digest implements the content consolidation and deduplication
// engine: the filter chain that reduces one recipient's harvested items to
// a concise, non-redundant set, and the cross-day diffing that suppresses
// repeats and surfaces newly-appeared alert conditions.
package digest

import (
	"fmt"
	"strings"

	"github.com/cparmet/finite-news/internal/models"
)

// SourcePolicy is the per-source filter policy plus the cache behavior
// flags the engine needs. It mirrors the source configuration but keeps
// this package free of config parsing.
type SourcePolicy struct {
	Name string
	Kind models.Kind

	MinWords      int
	MustContain   []string
	CantContain   []string
	CantBeginWith []string
	CantEndWith   []string
	RemoveText    string
	MaxItems      int
	AllowedValues []string

	// Preface is attached to surviving items after the rules run, so its
	// words never count toward MinWords or match the substring rules.
	Preface string

	SkipCrossDay        bool
	DailyUnique         bool
	SuppressZeroWarning bool
}

// ApplyPolicy runs the stateless rule filter over one source's items in
// order: strip remove_text, reject on cant_contain and the edge rules,
// reject unless every must_contain matches, clean whitespace, reject
// below min_words, drop exact duplicates, and cap at max_items. An
// allowed_values mismatch does not reject the item; it emits a warning,
// since it may signal that the originating page format changed. The
// source preface is prepended to survivors only after all rules run.
//
// ApplyPolicy is pure: it never mutates its input and has no shared state.
func ApplyPolicy(items []models.RawItem, p SourcePolicy) ([]models.RawItem, []models.Warning) {
	var warnings []models.Warning
	kept := make([]models.RawItem, 0, len(items))
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		text := item.Text
		if p.RemoveText != "" {
			text = strings.ReplaceAll(text, p.RemoveText, "")
		}
		text = trimEdgeRuns(text)

		if containsAny(text, p.CantContain) {
			continue
		}
		if beginsWithAny(text, p.CantBeginWith) || endsWithAny(text, p.CantEndWith) {
			continue
		}
		if !containsAll(text, p.MustContain) {
			continue
		}

		text = healInnerNewlines(text)
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if p.MinWords > 0 && len(strings.Fields(text)) < p.MinWords {
			continue
		}
		if seen[text] {
			continue
		}
		seen[text] = true

		if p.MaxItems > 0 && len(kept) >= p.MaxItems {
			break
		}

		if len(p.AllowedValues) > 0 && !contains(p.AllowedValues, text) {
			warnings = append(warnings, models.Warning{
				Source: p.Name,
				Reason: fmt.Sprintf("unexpected value %q", text),
			})
		}

		if p.Preface != "" {
			text = p.Preface + " " + text
		}
		item.Text = text
		kept = append(kept, item)
	}

	return kept, warnings
}

// trimEdgeRuns strips runs of carriage returns, newlines, and tabs from
// both ends of s, along with surrounding spaces.
func trimEdgeRuns(s string) string {
	return strings.Trim(s, " \r\n\t")
}

// healInnerNewlines replaces the first interior newline with ": " and
// drops text from any subsequent newline, so a scraped kicker and headline
// read as one line.
func healInnerNewlines(s string) string {
	parts := strings.Split(s, "\n")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	switch len(parts) {
	case 1:
		return parts[0]
	default:
		return parts[0] + ": " + parts[1]
	}
}

// containsAny reports whether any needle appears in s, case-insensitively.
func containsAny(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// beginsWithAny reports whether s starts with any needle,
// case-insensitively.
func beginsWithAny(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if n != "" && strings.HasPrefix(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// endsWithAny reports whether s ends with any needle, case-insensitively.
func endsWithAny(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if n != "" && strings.HasSuffix(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// containsAll reports whether every needle appears in s,
// case-insensitively. An empty needle list is trivially satisfied.
func containsAll(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if !strings.Contains(lower, strings.ToLower(n)) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
