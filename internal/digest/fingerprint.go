package digest

import (
	"strings"
	"time"
	"unicode"
)

// dateSuffixSep separates the normalized text from the calendar-date
// suffix in daily-unique fingerprints.
const dateSuffixSep = "|"

// Fingerprint returns the stable identity of an item's text, used as the
// cache key and the dedup unit. Emojis and decorative punctuation are
// ignored so a changed preface emoji alone never defeats a match with the
// cached copy of an otherwise identical headline.
func Fingerprint(text string) string {
	return normalizeText(text)
}

// DailyFingerprint is Fingerprint with the calendar date appended, for
// sources that want a persistently-true condition surfaced every day
// instead of being suppressed as already seen after the first day.
func DailyFingerprint(text string, day time.Time) string {
	return Fingerprint(text) + dateSuffixSep + day.Format("2006-01-02")
}

// FingerprintText strips any date suffix from a stored fingerprint,
// returning the normalized text for similarity comparisons.
func FingerprintText(fp string) string {
	if i := strings.LastIndex(fp, dateSuffixSep); i >= 0 {
		return fp[:i]
	}
	return fp
}

// normalizeText standardizes apostrophes and spacing, strips emojis, and
// collapses interior whitespace.
func normalizeText(s string) string {
	s = strings.NewReplacer(
		"’", "'",
		"‘", "'",
		" ", " ",
	).Replace(s)
	s = stripEmoji(s)
	return strings.Join(strings.Fields(s), " ")
}

// stripEmoji removes emoji and pictographic runes from s.
func stripEmoji(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isEmoji(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isEmoji reports whether r falls in the common emoji blocks: misc
// symbols and pictographs, dingbats, regional indicators, and the
// variation selectors and zero-width joiner that compose them.
func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // mahjong through symbols extended-A
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2190 && r <= 0x21FF && !unicode.IsLetter(r): // arrows
		return true
	case r == 0xFE0F || r == 0x200D: // variation selector, ZWJ
		return true
	}
	return false
}
