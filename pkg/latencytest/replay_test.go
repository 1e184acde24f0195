package latencytest

import (
	"testing"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/adapters/journal"
)

func TestLoadJournalAndReplay(t *testing.T) {
	dir := t.TempDir()
	j, err := journal.NewFileJournal(dir, "replay-run")
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}

	samples := []Sample{
		{FrameIndex: 0, LatencyMs: 40, DecodeCostMs: 1, FPS: 30, Width: 640, Height: 480, Timestamp: 1000},
		{FrameIndex: 1, LatencyMs: 60, DecodeCostMs: 2, FPS: 30, Width: 640, Height: 480, Timestamp: 1033},
		{FrameIndex: 2, LatencyMs: InvalidLatency, DecodeCostMs: 1, FPS: 30, Width: 640, Height: 480, Timestamp: 1066},
	}
	for i := range samples {
		if err := j.Append(&samples[i]); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	replay, err := LoadJournal(journal.SamplesPath(dir, "replay-run"), 640, 480)
	if err != nil {
		t.Fatalf("load journal: %v", err)
	}

	if got := replay.Samples(); len(got) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(got))
	}

	sum, err := replay.Evaluate(Window{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if sum.SampleCount != 3 || sum.InvalidCount != 1 {
		t.Fatalf("unexpected summary counts: %+v", sum)
	}
	if sum.LatencyMeanMs != 50 {
		t.Fatalf("expected mean latency 50 over valid samples, got %v", sum.LatencyMeanMs)
	}

	series := replay.ChartSeries(Window{From: 1, To: 3})
	if len(series.FrameIndexes) != 2 || series.FrameIndexes[0] != 1 {
		t.Fatalf("unexpected series window: %+v", series.FrameIndexes)
	}

	if _, err := LoadJournal(journal.SamplesPath(dir, "missing"), 640, 480); err == nil {
		t.Fatal("expected error for missing journal file")
	}
}
