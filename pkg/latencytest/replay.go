package latencytest

import (
	"fmt"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/adapters/journal"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/eval"
)

// Replay wraps a recorded sample journal for offline re-evaluation: the full
// evaluation and charting pipeline runs against the file instead of a live
// connection.
type Replay struct {
	samples []Sample
	width   int
	height  int
}

// LoadJournal reads an NDJSON sample journal from disk. The target width and
// height reproduce the run's configured resolution for the filtered decode
// statistics.
func LoadJournal(path string, targetWidth, targetHeight int) (*Replay, error) {
	samples, err := journal.ReadSamples(path)
	if err != nil {
		return nil, fmt.Errorf("load journal: %w", err)
	}
	return &Replay{samples: samples, width: targetWidth, height: targetHeight}, nil
}

// Samples returns the recorded sequence.
func (r *Replay) Samples() []Sample {
	return copySamples(r.samples)
}

// Evaluate summarizes the (windowed) recorded sequence.
func (r *Replay) Evaluate(w Window) (*Summary, error) {
	return eval.Summarize(r.samples, w, r.width, r.height)
}

// ChartSeries produces chart-ready sequences for the window.
func (r *Replay) ChartSeries(w Window) *Series {
	return eval.ChartSeries(r.samples, w)
}
