package log

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestCaptureRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	if err := Init(dbPath); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer Close()

	Capture(3, "gc", false, 128).Msg("cut point captured")
	Capture(16, "output", true, 4).Msg("batch complete")
	Warn().Msg("sqlite log sink unavailable, using console")

	entries, err := LastN(10)
	if err != nil {
		t.Fatalf("LastN failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Round != 3 || entries[0].Step != "gc" {
		t.Errorf("first entry cut point = (%d, %q), want (3, \"gc\")", entries[0].Round, entries[0].Step)
	}
	if entries[2].Round != -1 || entries[2].Step != "" {
		t.Errorf("warning entry carries a cut point: (%d, %q)", entries[2].Round, entries[2].Step)
	}

	byStep, err := ByCutPoint(0, "output", 10)
	if err != nil {
		t.Fatalf("ByCutPoint by step failed: %v", err)
	}
	if len(byStep) != 1 {
		t.Fatalf("step filter returned %d entries, want 1", len(byStep))
	}
	if byStep[0].Round != 16 {
		t.Errorf("step filter matched round %d, want the round-16 capture", byStep[0].Round)
	}

	byBoth, err := ByCutPoint(3, "gc", 10)
	if err != nil {
		t.Fatalf("ByCutPoint failed: %v", err)
	}
	if len(byBoth) != 1 || byBoth[0].Step != "gc" {
		t.Errorf("cut-point filter returned %d entries, want 1 gc capture", len(byBoth))
	}

	if none, err := ByCutPoint(9, "", 10); err != nil || len(none) != 0 {
		t.Errorf("round-9 filter returned %d entries, %v; want none", len(none), err)
	}
}

func TestRetrievalBeforeInit(t *testing.T) {
	if _, err := LastN(5); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("got %v, want ErrNotInitialized", err)
	}
}
