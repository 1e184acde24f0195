package harness

import (
	"strconv"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

// Sampler measures end-to-end latency for each remote frame by reading back
// the timestamp barcode from the just-drawn remote canvas. It runs inside
// the remote pump's per-frame step, on the pump goroutine.
type Sampler struct {
	canvas *Canvas
	codec  ports.TimestampCodec
	clock  Clock
	qrSize int
	obs    ports.Observability
	record func(domain.Sample)

	count int
}

func NewSampler(canvas *Canvas, codec ports.TimestampCodec, clock Clock, qrSize int, obs ports.Observability, record func(domain.Sample)) *Sampler {
	return &Sampler{
		canvas: canvas,
		codec:  codec,
		clock:  clock,
		qrSize: qrSize,
		obs:    obs,
		record: record,
	}
}

// Step takes one measurement. A decode failure is recorded as an invalid
// sample and the loop continues; there are no retries. Decode cost is
// measured on success and failure alike.
func (s *Sampler) Step(track ports.VideoTrack) {
	start := s.clock()

	nowLocal := s.clock()
	latency := domain.InvalidLatency

	region := s.canvas.Region(OverlayRegion(s.qrSize))
	payload, err := s.codec.Decode(region)
	if err == nil {
		if remote, perr := strconv.ParseFloat(payload, 64); perr == nil {
			latency = nowLocal - remote
		}
	}
	if latency == domain.InvalidLatency {
		s.obs.IncCounter("hub_decode_failures_total", 1)
	}

	cost := s.clock() - start
	settings := track.Settings()

	sample := domain.Sample{
		FrameIndex:   s.count,
		LatencyMs:    latency,
		DecodeCostMs: cost,
		FPS:          settings.FrameRate,
		Width:        settings.Width,
		Height:       settings.Height,
		Timestamp:    nowLocal,
	}
	s.count++

	s.obs.IncCounter("hub_samples_recorded_total", 1)
	s.obs.ObserveLatency("hub_decode_cost_seconds", cost/1000)
	if sample.Valid() {
		s.obs.ObserveLatency("hub_frame_latency_seconds", latency/1000)
	}

	s.record(sample)
}
