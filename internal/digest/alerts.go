package digest

import (
	"time"

	"github.com/cparmet/finite-news/internal/models"
)

// DiffAlerts computes which of an alert source's current survivors are
// newly appeared: an item alerts iff its fingerprint is absent from the
// source's cached slice. With dailyRepeat, fingerprints carry the current
// calendar date, so a condition that stays true fires every day instead
// of being suppressed as already seen after the first.
//
// The returned next slice holds the fingerprints of ALL current survivors
// (new or not), replacing the prior slice outright so retention stays
// bounded.
func DiffAlerts(items []models.RawItem, cacheSlice []string, dailyRepeat bool, today time.Time) (alerts []models.RawItem, next []string) {
	seen := make(map[string]bool, len(cacheSlice))
	for _, fp := range cacheSlice {
		seen[fp] = true
	}

	inNext := make(map[string]bool, len(items))
	for _, item := range items {
		fp := Fingerprint(item.Text)
		if dailyRepeat {
			fp = DailyFingerprint(item.Text, today)
		}
		if !seen[fp] {
			alerts = append(alerts, item)
		}
		if !inNext[fp] {
			inNext[fp] = true
			next = append(next, fp)
		}
	}
	return alerts, next
}
