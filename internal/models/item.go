// Package models holds the core value types shared across the harvest,
// digest, storage, and delivery layers.
package models

import "fmt"

// Kind classifies an item's editorial role, which determines the filter
// stages that apply to it and whether it participates in caching.
type Kind string

const (
	// KindHeadline is regular news content. Headlines flow through every
	// consolidation stage.
	KindHeadline Kind = "headline"
	// KindAlert is a monitored condition delivered only when newly
	// appeared relative to the previous issue.
	KindAlert Kind = "alert"
	// KindImage is embedded image markup, passed through unfiltered
	// except for exact cross-day suppression.
	KindImage Kind = "image"
	// KindEvent is date-bound listing content, regenerated per issue and
	// never cached.
	KindEvent Kind = "event"
	// KindStatic is fixed per-issue text such as a sign-off line.
	KindStatic Kind = "static"
)

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindHeadline, KindAlert, KindImage, KindEvent, KindStatic:
		return true
	}
	return false
}

// RawItem is one harvested unit of content, tagged with its origin.
// Order is the item's position within its source's harvested batch and
// makes items from the same source distinguishable even when their text
// collides.
type RawItem struct {
	Source   string
	Category string
	Kind     Kind
	Text     string
	URL      string
	Order    int
}

func (r RawItem) String() string {
	return fmt.Sprintf("%s[%d]: %s", r.Source, r.Order, r.Text)
}

// Warning is a non-fatal quality signal surfaced in the delivered issue,
// such as a source returning zero items or a degraded filter stage.
// Source may be empty for engine-level warnings.
type Warning struct {
	Source string
	Reason string
}

// Snapshot is one recipient's cache state: per-source ordered fingerprint
// slices. A missing source key reads as an empty slice.
type Snapshot map[string][]string

// Clone returns a deep copy of s. Clone(nil) returns an empty snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for source, fps := range s {
		cp := make([]string, len(fps))
		copy(cp, fps)
		out[source] = cp
	}
	return out
}

// CategoryItems is the final ordered item set for one category.
type CategoryItems struct {
	Category string
	Items    []RawItem
}

// ConsolidationResult is the engine's output for one recipient: the
// per-category final sets, the fired alerts, accumulated warnings, and
// the snapshot to commit after successful delivery.
type ConsolidationResult struct {
	Categories   []CategoryItems
	Alerts       []RawItem
	Warnings     []Warning
	NextSnapshot Snapshot
}
