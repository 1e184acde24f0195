package eval

import (
	"errors"
	"math"
	"sort"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
)

// ErrEmptyInput is returned when a statistic is requested over no data.
var ErrEmptyInput = errors.New("eval: empty input")

// Window selects the half-open sample range [From, To). To == 0 means end
// of sequence, so the zero value selects the full sequence.
type Window struct {
	From int
	To   int
}

func (w Window) bounds(n int) (int, int) {
	from, to := w.From, w.To
	if to == 0 || to > n {
		to = n
	}
	if from < 0 {
		from = 0
	}
	if from > to {
		from = to
	}
	return from, to
}

// Slice returns the samples selected by the window.
func (w Window) Slice(samples []domain.Sample) []domain.Sample {
	from, to := w.bounds(len(samples))
	return samples[from:to]
}

// Mean returns the arithmetic mean of xs.
func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmptyInput
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs)), nil
}

// Median sorts ascending and returns the middle element, or the average of
// the two middle elements for even-length input.
func Median(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmptyInput
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], nil
	}
	return (sorted[mid-1] + sorted[mid]) / 2, nil
}

// DurationParts decomposes a millisecond duration for display.
type DurationParts struct {
	Minutes      int `json:"minutes"`
	Seconds      int `json:"seconds"`
	Milliseconds int `json:"milliseconds"`
}

// SplitDuration breaks a millisecond duration into minutes/seconds/ms.
func SplitDuration(ms float64) DurationParts {
	total := int(math.Round(ms))
	if total < 0 {
		total = 0
	}
	return DurationParts{
		Minutes:      total / 60000,
		Seconds:      (total % 60000) / 1000,
		Milliseconds: total % 1000,
	}
}

// Summary is the post-hoc evaluation of one sample sequence.
//
// Latency statistics cover only valid samples; when ValidCount is zero they
// are left at zero and the invalid rate still reports 1.0 for a non-empty
// sequence. Decode-cost and FPS statistics cover all samples. The filtered
// decode-cost statistics are restricted to samples whose recorded dimensions
// equal the configured target resolution, which separates full-resolution
// decode cost from downscaled decode cost.
type Summary struct {
	SampleCount  int     `json:"sample_count"`
	ValidCount   int     `json:"valid_count"`
	InvalidCount int     `json:"invalid_count"`
	InvalidRate  float64 `json:"invalid_rate"`

	LatencyMeanMs   float64 `json:"latency_mean_ms"`
	LatencyMedianMs float64 `json:"latency_median_ms"`

	DecodeCostMeanMs   float64 `json:"decode_cost_mean_ms"`
	DecodeCostMedianMs float64 `json:"decode_cost_median_ms"`

	FilteredDecodeCostMeanMs   float64 `json:"filtered_decode_cost_mean_ms"`
	FilteredDecodeCostMedianMs float64 `json:"filtered_decode_cost_median_ms"`
	FilteredDecodeCostCount    int     `json:"filtered_decode_cost_count"`

	FPSMean   float64 `json:"fps_mean"`
	FPSMedian float64 `json:"fps_median"`

	DurationMs float64       `json:"duration_ms"`
	Duration   DurationParts `json:"duration"`
}

// Summarize evaluates the windowed sample sequence. targetWidth and
// targetHeight are the configured resolution used for the filtered
// decode-cost subset. Returns ErrEmptyInput when the window selects no
// samples.
func Summarize(samples []domain.Sample, w Window, targetWidth, targetHeight int) (*Summary, error) {
	selected := w.Slice(samples)
	if len(selected) == 0 {
		return nil, ErrEmptyInput
	}

	var (
		latencies    []float64
		decodeCosts  = make([]float64, 0, len(selected))
		filteredCost []float64
		fps          = make([]float64, 0, len(selected))
		invalid      int
	)
	for _, s := range selected {
		if s.Valid() {
			latencies = append(latencies, s.LatencyMs)
		} else {
			invalid++
		}
		decodeCosts = append(decodeCosts, s.DecodeCostMs)
		fps = append(fps, s.FPS)
		if s.Width == targetWidth && s.Height == targetHeight {
			filteredCost = append(filteredCost, s.DecodeCostMs)
		}
	}

	sum := &Summary{
		SampleCount:             len(selected),
		ValidCount:              len(latencies),
		InvalidCount:            invalid,
		InvalidRate:             float64(invalid) / float64(len(selected)),
		FilteredDecodeCostCount: len(filteredCost),
		DurationMs:              selected[len(selected)-1].Timestamp - selected[0].Timestamp,
	}
	sum.Duration = SplitDuration(sum.DurationMs)

	if len(latencies) > 0 {
		sum.LatencyMeanMs, _ = Mean(latencies)
		sum.LatencyMedianMs, _ = Median(latencies)
	}
	sum.DecodeCostMeanMs, _ = Mean(decodeCosts)
	sum.DecodeCostMedianMs, _ = Median(decodeCosts)
	if len(filteredCost) > 0 {
		sum.FilteredDecodeCostMeanMs, _ = Mean(filteredCost)
		sum.FilteredDecodeCostMedianMs, _ = Median(filteredCost)
	}
	sum.FPSMean, _ = Mean(fps)
	sum.FPSMedian, _ = Median(fps)

	return sum, nil
}
