package digest

import (
	"testing"
	"time"
)

func TestFingerprint_IgnoresEmojiAndTypography(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"preface emoji", "🔥 Heat advisory in effect", "Heat advisory in effect"},
		{"curly apostrophe", "It’s official", "It's official"},
		{"nonbreaking space", "Rates hold steady", "Rates hold steady"},
		{"interior whitespace", "Rates   hold\tsteady", "Rates hold steady"},
		{"trailing variation selector", "Storm watch ⚠️", "Storm watch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Fingerprint(tt.a) != Fingerprint(tt.b) {
				t.Errorf("Fingerprint(%q) = %q, want equal to Fingerprint(%q) = %q",
					tt.a, Fingerprint(tt.a), tt.b, Fingerprint(tt.b))
			}
		})
	}
}

func TestFingerprint_DistinctTextsDiffer(t *testing.T) {
	if Fingerprint("Rates hold steady") == Fingerprint("Rates cut expected") {
		t.Error("distinct texts produced the same fingerprint")
	}
}

func TestDailyFingerprint_DiffersAcrossDays(t *testing.T) {
	monday := time.Date(2026, 8, 24, 7, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	a := DailyFingerprint("Beach closed: high bacteria", monday)
	b := DailyFingerprint("Beach closed: high bacteria", tuesday)
	if a == b {
		t.Errorf("same fingerprint across days: %q", a)
	}
	if got := FingerprintText(a); got != Fingerprint("Beach closed: high bacteria") {
		t.Errorf("FingerprintText(%q) = %q, want date suffix stripped", a, got)
	}
}

func TestFingerprintText_PlainFingerprintUnchanged(t *testing.T) {
	fp := Fingerprint("Senate passes bill")
	if got := FingerprintText(fp); got != fp {
		t.Errorf("FingerprintText(%q) = %q, want unchanged", fp, got)
	}
}
