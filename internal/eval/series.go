package eval

import "github.com/michaelmahersoftware/experimental-hub-test/internal/domain"

// Series holds chart-ready per-frame sequences for one window. All slices
// share the same length and align with FrameIndexes. Recomputed from scratch
// for every window change.
type Series struct {
	FrameIndexes []int `json:"frame_indexes"`

	LatencyMs    []float64 `json:"latency_ms"`
	NetLatencyMs []float64 `json:"net_latency_ms"`
	DecodeCostMs []float64 `json:"decode_cost_ms"`

	FPS []float64 `json:"fps"`

	Width  []int `json:"width"`
	Height []int `json:"height"`
}

// ChartSeries produces line-chart series for the windowed samples.
// NetLatencyMs is latency minus decode cost, the portion attributable to the
// connection rather than to the measurement itself.
func ChartSeries(samples []domain.Sample, w Window) *Series {
	selected := w.Slice(samples)

	s := &Series{
		FrameIndexes: make([]int, len(selected)),
		LatencyMs:    make([]float64, len(selected)),
		NetLatencyMs: make([]float64, len(selected)),
		DecodeCostMs: make([]float64, len(selected)),
		FPS:          make([]float64, len(selected)),
		Width:        make([]int, len(selected)),
		Height:       make([]int, len(selected)),
	}
	for i, sample := range selected {
		s.FrameIndexes[i] = sample.FrameIndex
		s.LatencyMs[i] = sample.LatencyMs
		if sample.Valid() {
			s.NetLatencyMs[i] = sample.LatencyMs - sample.DecodeCostMs
		} else {
			s.NetLatencyMs[i] = domain.InvalidLatency
		}
		s.DecodeCostMs[i] = sample.DecodeCostMs
		s.FPS[i] = sample.FPS
		s.Width[i] = sample.Width
		s.Height[i] = sample.Height
	}
	return s
}
