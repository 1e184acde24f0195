package domain

import "time"

// InvalidLatency marks a sample whose QR decode failed. It is the only
// valid "invalid" marker; such samples are excluded from latency statistics
// but counted towards the invalid rate.
const InvalidLatency = -1.0

// Sample is one latency measurement for a single processed remote frame.
type Sample struct {
	FrameIndex   int     `json:"frame_index"`
	LatencyMs    float64 `json:"latency_ms"`
	DecodeCostMs float64 `json:"decode_cost_ms"`
	FPS          float64 `json:"fps"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	Timestamp    float64 `json:"timestamp_ms"`
}

// Valid reports whether the sample carries a real latency measurement.
func (s Sample) Valid() bool {
	return s.LatencyMs != InvalidLatency
}

// RunResult is the persisted outcome of one latency-test run.
type RunResult struct {
	RunID         string    `json:"run_id"`
	SessionID     string    `json:"session_id"`
	ParticipantID string    `json:"participant_id"`
	StartedAt     time.Time `json:"started_at"`
	StoppedAt     time.Time `json:"stopped_at"`

	SampleCount  int     `json:"sample_count"`
	InvalidCount int     `json:"invalid_count"`
	InvalidRate  float64 `json:"invalid_rate"`

	LatencyMeanMs      float64 `json:"latency_mean_ms"`
	LatencyMedianMs    float64 `json:"latency_median_ms"`
	DecodeCostMeanMs   float64 `json:"decode_cost_mean_ms"`
	DecodeCostMedianMs float64 `json:"decode_cost_median_ms"`
	FPSMean            float64 `json:"fps_mean"`
	FPSMedian          float64 `json:"fps_median"`
	DurationMs         float64 `json:"duration_ms"`
}
