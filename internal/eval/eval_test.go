package eval

import (
	"errors"
	"math"
	"testing"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
)

func TestMedianOdd(t *testing.T) {
	got, err := Median([]float64{3, 1, 2})
	if err != nil {
		t.Fatalf("median: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected median 2, got %f", got)
	}
}

func TestMedianEven(t *testing.T) {
	got, err := Median([]float64{4, 1, 3, 2})
	if err != nil {
		t.Fatalf("median: %v", err)
	}
	if got != 2.5 {
		t.Fatalf("expected median 2.5, got %f", got)
	}
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	xs := []float64{3, 1, 2}
	if _, err := Median(xs); err != nil {
		t.Fatalf("median: %v", err)
	}
	if xs[0] != 3 || xs[1] != 1 || xs[2] != 2 {
		t.Fatalf("median mutated its input: %v", xs)
	}
}

func TestMeanEmptyInput(t *testing.T) {
	if _, err := Mean(nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := Median(nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestSummarizeInvalidRate(t *testing.T) {
	samples := make([]domain.Sample, 10)
	for i := range samples {
		samples[i] = domain.Sample{
			FrameIndex:   i,
			LatencyMs:    float64(10 + i),
			DecodeCostMs: 2,
			FPS:          30,
			Width:        640,
			Height:       480,
			Timestamp:    float64(i * 33),
		}
	}
	samples[1].LatencyMs = domain.InvalidLatency
	samples[4].LatencyMs = domain.InvalidLatency
	samples[7].LatencyMs = domain.InvalidLatency

	sum, err := Summarize(samples, Window{}, 640, 480)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.InvalidCount != 3 {
		t.Fatalf("expected 3 invalid samples, got %d", sum.InvalidCount)
	}
	if math.Abs(sum.InvalidRate-0.3) > 1e-9 {
		t.Fatalf("expected invalid rate 0.3, got %f", sum.InvalidRate)
	}
	if sum.ValidCount != 7 {
		t.Fatalf("expected 7 valid samples, got %d", sum.ValidCount)
	}
}

func TestSummarizeLatencyExcludesInvalid(t *testing.T) {
	samples := []domain.Sample{
		{FrameIndex: 0, LatencyMs: 10, DecodeCostMs: 1, FPS: 30, Width: 640, Height: 480, Timestamp: 0},
		{FrameIndex: 1, LatencyMs: domain.InvalidLatency, DecodeCostMs: 5, FPS: 30, Width: 640, Height: 480, Timestamp: 33},
		{FrameIndex: 2, LatencyMs: 20, DecodeCostMs: 1, FPS: 30, Width: 640, Height: 480, Timestamp: 66},
	}

	sum, err := Summarize(samples, Window{}, 640, 480)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.LatencyMeanMs != 15 {
		t.Fatalf("expected latency mean 15, got %f", sum.LatencyMeanMs)
	}
	if sum.LatencyMedianMs != 15 {
		t.Fatalf("expected latency median 15, got %f", sum.LatencyMedianMs)
	}
	// Decode cost covers all samples, invalid ones included.
	if math.Abs(sum.DecodeCostMeanMs-7.0/3.0) > 1e-9 {
		t.Fatalf("expected decode cost mean 7/3, got %f", sum.DecodeCostMeanMs)
	}
}

func TestSummarizeAllInvalid(t *testing.T) {
	samples := []domain.Sample{
		{FrameIndex: 0, LatencyMs: domain.InvalidLatency, DecodeCostMs: 3, FPS: 30, Timestamp: 0},
		{FrameIndex: 1, LatencyMs: domain.InvalidLatency, DecodeCostMs: 3, FPS: 30, Timestamp: 33},
	}

	sum, err := Summarize(samples, Window{}, 640, 480)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.ValidCount != 0 {
		t.Fatalf("expected no valid samples, got %d", sum.ValidCount)
	}
	if sum.InvalidRate != 1 {
		t.Fatalf("expected invalid rate 1.0, got %f", sum.InvalidRate)
	}
	if sum.LatencyMeanMs != 0 || sum.LatencyMedianMs != 0 {
		t.Fatalf("latency stats should stay zero with no valid samples")
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if _, err := Summarize(nil, Window{}, 640, 480); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestSummarizeFilteredDecodeCost(t *testing.T) {
	samples := []domain.Sample{
		{FrameIndex: 0, LatencyMs: 10, DecodeCostMs: 4, FPS: 30, Width: 640, Height: 480, Timestamp: 0},
		{FrameIndex: 1, LatencyMs: 10, DecodeCostMs: 2, FPS: 30, Width: 320, Height: 240, Timestamp: 33},
		{FrameIndex: 2, LatencyMs: 10, DecodeCostMs: 6, FPS: 30, Width: 640, Height: 480, Timestamp: 66},
	}

	// The filter compares against the configured target, not the negotiated
	// stream resolution.
	sum, err := Summarize(samples, Window{}, 640, 480)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.FilteredDecodeCostCount != 2 {
		t.Fatalf("expected 2 full-resolution samples, got %d", sum.FilteredDecodeCostCount)
	}
	if sum.FilteredDecodeCostMeanMs != 5 {
		t.Fatalf("expected filtered decode cost mean 5, got %f", sum.FilteredDecodeCostMeanMs)
	}
}

func TestSummarizeDuration(t *testing.T) {
	samples := []domain.Sample{
		{FrameIndex: 0, LatencyMs: 1, Timestamp: 1000},
		{FrameIndex: 1, LatencyMs: 1, Timestamp: 63250},
	}

	sum, err := Summarize(samples, Window{}, 0, 0)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.DurationMs != 62250 {
		t.Fatalf("expected duration 62250ms, got %f", sum.DurationMs)
	}
	if sum.Duration.Minutes != 1 || sum.Duration.Seconds != 2 || sum.Duration.Milliseconds != 250 {
		t.Fatalf("unexpected duration parts: %+v", sum.Duration)
	}
}

func TestChartSeriesWindow(t *testing.T) {
	samples := make([]domain.Sample, 100)
	for i := range samples {
		samples[i] = domain.Sample{
			FrameIndex:   i,
			LatencyMs:    float64(i),
			DecodeCostMs: 1,
			FPS:          30,
			Width:        640,
			Height:       480,
			Timestamp:    float64(i * 33),
		}
	}

	series := ChartSeries(samples, Window{From: 10, To: 20})
	if len(series.FrameIndexes) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(series.FrameIndexes))
	}
	for i := 0; i < 10; i++ {
		if series.FrameIndexes[i] != 10+i {
			t.Fatalf("expected frame index %d at position %d, got %d", 10+i, i, series.FrameIndexes[i])
		}
		if series.LatencyMs[i] != float64(10+i) {
			t.Fatalf("expected latency %d at position %d, got %f", 10+i, i, series.LatencyMs[i])
		}
		if series.NetLatencyMs[i] != float64(10+i)-1 {
			t.Fatalf("expected net latency %f, got %f", float64(10+i)-1, series.NetLatencyMs[i])
		}
	}
}

func TestChartSeriesInvalidSamplesKeepSentinel(t *testing.T) {
	samples := []domain.Sample{
		{FrameIndex: 0, LatencyMs: domain.InvalidLatency, DecodeCostMs: 3},
	}
	series := ChartSeries(samples, Window{})
	if series.LatencyMs[0] != domain.InvalidLatency {
		t.Fatalf("expected sentinel latency, got %f", series.LatencyMs[0])
	}
	if series.NetLatencyMs[0] != domain.InvalidLatency {
		t.Fatalf("expected sentinel net latency, got %f", series.NetLatencyMs[0])
	}
}

func TestWindowClamping(t *testing.T) {
	samples := make([]domain.Sample, 5)
	for i := range samples {
		samples[i] = domain.Sample{FrameIndex: i}
	}

	if got := len((Window{From: -3, To: 99}).Slice(samples)); got != 5 {
		t.Fatalf("expected clamped window to cover all 5 samples, got %d", got)
	}
	if got := len((Window{From: 4, To: 2}).Slice(samples)); got != 0 {
		t.Fatalf("expected inverted window to be empty, got %d", got)
	}
}

func TestSplitDurationNegative(t *testing.T) {
	parts := SplitDuration(-50)
	if parts.Minutes != 0 || parts.Seconds != 0 || parts.Milliseconds != 0 {
		t.Fatalf("expected zero parts for negative duration, got %+v", parts)
	}
}
