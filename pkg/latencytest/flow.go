package latencytest

import (
	"context"
	"fmt"
)

// Flow is a convenience builder that lets callers say Conf → Capture →
// Report without touching the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []RuntimeOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// CaptureOption configures the camera/codec/connection side of the run.
type CaptureOption func(*Flow)

// ReportOption configures the journal/sink/observability side of the run.
type ReportOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow
// builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before
// building a runtime.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw RuntimeOption values to the builder for advanced
// scenarios.
func (f *Flow) Options(opts ...RuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// Capture records source-side overrides (camera, codec, connection).
func (f *Flow) Capture(opts ...CaptureOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Report records reporting-side overrides and builds a Runtime ready to run.
func (f *Flow) Report(opts ...ReportOption) (*Runtime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewRuntime(f.cfg, f.opts...)
}

// Run is a shortcut for Report + runtime.Run.
func (f *Flow) Run(ctx context.Context, opts ...ReportOption) error {
	rt, err := f.Report(opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// WithFlowOptions appends RuntimeOption values during Conf.
func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// CaptureCamera replaces the synthetic test pattern with a real source track.
func CaptureCamera(track VideoTrack) CaptureOption {
	return func(f *Flow) {
		if f != nil && track != nil {
			f.appendOptions(WithCamera(track))
		}
	}
}

// CaptureConnection injects a custom transport.
func CaptureConnection(conn Connection) CaptureOption {
	return func(f *Flow) {
		if f != nil && conn != nil {
			f.appendOptions(WithConnection(conn))
		}
	}
}

// CaptureCodec swaps the barcode codec.
func CaptureCodec(c TimestampCodec) CaptureOption {
	return func(f *Flow) {
		if f != nil && c != nil {
			f.appendOptions(WithCodec(c))
		}
	}
}

// ReportJournal lets callers bring their own sample journal.
func ReportJournal(j SampleJournal) ReportOption {
	return func(f *Flow) {
		if f != nil && j != nil {
			f.appendOptions(WithJournal(j))
		}
	}
}

// ReportSink injects a custom result sink.
func ReportSink(s ResultSink) ReportOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithResultSink(s))
		}
	}
}

// ReportObservability replaces the default observability backend.
func ReportObservability(obs Observability) ReportOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// ReportCallback installs a result sink built from a simple callback.
func ReportCallback(name string, fn RunFunc) ReportOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithResultSink(NewCallbackSink(name, fn)))
		}
	}
}

// ReportSampleListener forwards every recorded sample to fn as it arrives.
func ReportSampleListener(fn func(Sample)) ReportOption {
	return func(f *Flow) {
		if f != nil && fn != nil {
			f.appendOptions(WithSampleListener(fn))
		}
	}
}

func (f *Flow) appendOptions(opts ...RuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
