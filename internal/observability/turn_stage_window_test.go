package observability

import "testing"

func TestRunStageWindowSnapshot(t *testing.T) {
	w := newRunStageWindow(8)
	w.Observe("intent_end_to_tts_end", 500)
	w.Observe("intent_end_to_tts_end", 700)
	w.Observe("intent_end_to_tts_end", 900)
	w.ObserveIndicator("tts_never_played")
	w.ObserveIndicator("tts_never_played")

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != "intent_end_to_tts_end" {
		t.Fatalf("Stage = %q, want %q", s.Stage, "intent_end_to_tts_end")
	}
	if s.Samples != 3 {
		t.Fatalf("Samples = %d, want 3", s.Samples)
	}
	if s.LastMS != 900 {
		t.Fatalf("LastMS = %.2f, want 900", s.LastMS)
	}
	if s.P50MS != 700 {
		t.Fatalf("P50MS = %.2f, want 700", s.P50MS)
	}
	if s.P95MS <= 700 || s.P95MS > 900 {
		t.Fatalf("P95MS = %.2f, want (700,900]", s.P95MS)
	}
	if s.TargetP95MS != 2500 {
		t.Fatalf("TargetP95MS = %.2f, want 2500", s.TargetP95MS)
	}
	if len(snap.Indicators) != 1 {
		t.Fatalf("len(Indicators) = %d, want 1", len(snap.Indicators))
	}
	if snap.Indicators[0].Name != "tts_never_played" {
		t.Fatalf("Indicators[0].Name = %q, want %q", snap.Indicators[0].Name, "tts_never_played")
	}
	if snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicators[0].Count = %d, want %d", snap.Indicators[0].Count, 2)
	}
}
