package config

import (
	"testing"
	"time"
)

func TestBusinessWeekdays(t *testing.T) {
	cfg := &Config{BusinessDays: "1,2,3,4,5"}
	days := cfg.BusinessWeekdays()
	for _, d := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
		if !days[d] {
			t.Fatalf("expected %s to be a business day", d)
		}
	}
	if days[time.Saturday] || days[time.Sunday] {
		t.Fatal("weekend should not be a business day")
	}

	// ISO 7 maps to Sunday; junk entries are skipped.
	cfg = &Config{BusinessDays: "6,7,banana, 1"}
	days = cfg.BusinessWeekdays()
	if !days[time.Saturday] || !days[time.Sunday] || !days[time.Monday] {
		t.Fatalf("unexpected weekday set: %v", days)
	}
	if len(days) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(days))
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := &Config{Timezone: "Not/AZone"}
	if loc := cfg.Location(); loc != time.UTC {
		t.Fatalf("expected UTC fallback, got %v", loc)
	}
	cfg = &Config{Timezone: "UTC"}
	if loc := cfg.Location(); loc != time.UTC {
		t.Fatalf("expected UTC, got %v", loc)
	}
}
