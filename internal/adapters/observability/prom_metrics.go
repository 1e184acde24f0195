// Package observability bridges the harness to zerolog and Prometheus.
package observability

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

type PromObs struct {
	log zerolog.Logger

	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	return NewPromObsWith(logger, prometheus.DefaultRegisterer)
}

func NewPromObsWith(logger zerolog.Logger, reg prometheus.Registerer) *PromObs {
	framesPumped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hub_frames_pumped_total",
		Help: "Total frames composited by the local and remote frame pumps.",
	})
	samplesRecorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hub_samples_recorded_total",
		Help: "Total latency samples recorded, valid and invalid.",
	})
	decodeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hub_decode_failures_total",
		Help: "Frames whose timestamp barcode could not be decoded.",
	})
	captureDrops := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hub_capture_frames_dropped_total",
		Help: "Capture frames dropped because the connection lagged.",
	})
	connState := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hub_connection_state",
		Help: "Current connection state (0=new 1=connecting 2=connected 3=closed 4=failed).",
	})
	bufferLen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hub_sample_buffer_length",
		Help: "Number of samples held in the in-memory run buffer.",
	})
	decodeCost := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hub_decode_cost_seconds",
		Help:    "Time spent decoding the timestamp barcode per frame.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
	frameLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hub_frame_latency_seconds",
		Help:    "Measured end-to-end frame latency for valid samples.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	reg.MustRegister(framesPumped, samplesRecorded, decodeFailures, captureDrops, connState, bufferLen, decodeCost, frameLatency)

	return &PromObs{
		log: logger,
		counters: map[string]prometheus.Counter{
			"hub_frames_pumped_total":          framesPumped,
			"hub_samples_recorded_total":       samplesRecorded,
			"hub_decode_failures_total":        decodeFailures,
			"hub_capture_frames_dropped_total": captureDrops,
		},
		gauges: map[string]prometheus.Gauge{
			"hub_connection_state":     connState,
			"hub_sample_buffer_length": bufferLen,
		},
		histos: map[string]prometheus.Observer{
			"hub_decode_cost_seconds":   decodeCost,
			"hub_frame_latency_seconds": frameLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	ev := p.log.Info()
	applyFields(ev, fields)
	ev.Msg(msg)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	ev := p.log.Error().Err(err)
	applyFields(ev, fields)
	ev.Msg(msg)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	ev := p.log.WithLevel(zerolog.FatalLevel).Err(err)
	applyFields(ev, fields)
	ev.Msg(msg)
}

func applyFields(ev *zerolog.Event, fields []ports.Field) {
	for _, f := range fields {
		ev.Interface(f.Key, f.Value)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

var _ ports.Observability = (*PromObs)(nil)
