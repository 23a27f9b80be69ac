package digest

import (
	"context"
	"math"
	"strings"

	"github.com/cparmet/finite-news/internal/models"
)

// Embedder is the similarity-scoring boundary: a black-box service that
// maps a batch of texts to vectors whose cosine similarity is symmetric,
// deterministic for fixed inputs, and bounded. The engine never assumes
// anything about the embedding algorithm itself.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// RemoveSeen drops items whose fingerprint already appears in the prior
// snapshot's slice for their source, unless the source opted out of
// cross-day suppression. Daily-unique sources compare date-suffixed
// fingerprints, so yesterday's entry never matches today's.
func RemoveSeen(items []models.RawItem, prior models.Snapshot, policies map[string]SourcePolicy, today func() string) []models.RawItem {
	fresh := items[:0:0]
	for _, item := range items {
		p := policies[item.Source]
		if p.SkipCrossDay {
			fresh = append(fresh, item)
			continue
		}
		fp := Fingerprint(item.Text)
		if p.DailyUnique {
			fp = fp + dateSuffixSep + today()
		}
		if contains(prior[item.Source], fp) {
			continue
		}
		fresh = append(fresh, item)
	}
	return fresh
}

// Deduplicate removes semantic duplicates from items. Each candidate
// (today's items plus the cached fingerprints) is embedded once; a pair
// scoring >= threshold is a duplicate. A today item that duplicates an
// earlier today item, or any cached item, is dropped; the dropped item
// still shadows later items, so a chain of near-duplicates collapses to
// its first member.
//
// Source prefaces are stripped from every candidate before embedding.
// Two unrelated items from the same prefaced source share those leading
// words, and leaving them in would inflate the pair's similarity.
//
// Any scoring failure is non-fatal: the input is returned unchanged with
// a warning, and consolidation proceeds.
func Deduplicate(ctx context.Context, emb Embedder, threshold float64, items []models.RawItem, cached, prefaces []string) ([]models.RawItem, []models.Warning) {
	if emb == nil || len(items) == 0 {
		return items, nil
	}

	normalized := make([]string, 0, len(prefaces))
	for _, p := range prefaces {
		if fp := Fingerprint(p); fp != "" {
			normalized = append(normalized, fp)
		}
	}

	texts := make([]string, 0, len(items)+len(cached))
	for _, item := range items {
		texts = append(texts, stripPreface(Fingerprint(item.Text), normalized))
	}
	for _, fp := range cached {
		texts = append(texts, stripPreface(FingerprintText(fp), normalized))
	}

	vectors, err := emb.EmbedBatch(ctx, texts)
	if err != nil || len(vectors) != len(texts) {
		return items, []models.Warning{{Reason: "similarity scoring unavailable"}}
	}

	cachedVecs := vectors[len(items):]
	kept := items[:0:0]
	for i, item := range items {
		if isDuplicate(vectors[i], vectors[:i], cachedVecs, threshold) {
			continue
		}
		kept = append(kept, item)
	}
	return kept, nil
}

// stripPreface removes the first matching preface from the front of a
// normalized text. Both sides must already be in fingerprint form.
func stripPreface(text string, prefaces []string) string {
	for _, p := range prefaces {
		if rest, ok := strings.CutPrefix(text, p+" "); ok {
			return rest
		}
	}
	return text
}

// isDuplicate reports whether v scores at or above threshold against any
// earlier today vector or any cached vector.
func isDuplicate(v []float32, earlier, cached [][]float32, threshold float64) bool {
	for _, u := range earlier {
		if cosineSimilarity(v, u) >= threshold {
			return true
		}
	}
	for _, u := range cached {
		if cosineSimilarity(v, u) >= threshold {
			return true
		}
	}
	return false
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is empty or zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
