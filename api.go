// Package hubtest is the root import for the connection latency test
// harness. It re-exports the pkg/latencytest API so consumers can depend on
// the module path directly.
package hubtest

import (
	base "github.com/michaelmahersoftware/experimental-hub-test/pkg/latencytest"
)

// Re-exported errors for convenience.
var (
	ErrStartup           = base.ErrStartup
	ErrUnsupported       = base.ErrUnsupported
	ErrDecode            = base.ErrDecode
	ErrEmptyInput        = base.ErrEmptyInput
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// InvalidLatency marks a sample whose barcode decode failed.
const InvalidLatency = base.InvalidLatency

// Type aliases so consumers can import the module root directly.
type (
	Config           = base.Config
	SessionConfig    = base.SessionConfig
	TestConfig       = base.TestConfig
	ConnectionConfig = base.ConnectionConfig
	HTTPConfig       = base.HTTPConfig
	JournalConfig    = base.JournalConfig
	ResultsConfig    = base.ResultsConfig
	Flow             = base.Flow
	FlowOption       = base.FlowOption
	CaptureOption    = base.CaptureOption
	ReportOption     = base.ReportOption
	Runtime          = base.Runtime
	RuntimeOption    = base.RuntimeOption
	Sample           = base.Sample
	RunResult        = base.RunResult
	RunReport        = base.RunReport
	RunFunc          = base.RunFunc
	Window           = base.Window
	Summary          = base.Summary
	Series           = base.Series
	Connection       = base.Connection
	ConnectionState  = base.ConnectionState
	MediaStream      = base.MediaStream
	VideoTrack       = base.VideoTrack
	TrackSettings    = base.TrackSettings
	TimestampCodec   = base.TimestampCodec
	SampleJournal    = base.SampleJournal
	ResultSink       = base.ResultSink
	Observability    = base.Observability
	Field            = base.Field
	Replay           = base.Replay
)

// Connection states.
const (
	StateNew        = base.StateNew
	StateConnecting = base.StateConnecting
	StateConnected  = base.StateConnected
	StateClosed     = base.StateClosed
	StateFailed     = base.StateFailed
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func CaptureCamera(track VideoTrack) CaptureOption {
	return base.CaptureCamera(track)
}

func CaptureConnection(conn Connection) CaptureOption {
	return base.CaptureConnection(conn)
}

func CaptureCodec(c TimestampCodec) CaptureOption {
	return base.CaptureCodec(c)
}

func ReportJournal(j SampleJournal) ReportOption {
	return base.ReportJournal(j)
}

func ReportSink(s ResultSink) ReportOption {
	return base.ReportSink(s)
}

func ReportObservability(obs Observability) ReportOption {
	return base.ReportObservability(obs)
}

func ReportCallback(name string, fn RunFunc) ReportOption {
	return base.ReportCallback(name, fn)
}

func ReportSampleListener(fn func(Sample)) ReportOption {
	return base.ReportSampleListener(fn)
}

// Runtime constructors and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithConnection(conn Connection) RuntimeOption {
	return base.WithConnection(conn)
}

func WithCodec(c TimestampCodec) RuntimeOption {
	return base.WithCodec(c)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithJournal(j SampleJournal) RuntimeOption {
	return base.WithJournal(j)
}

func WithResultSink(s ResultSink) RuntimeOption {
	return base.WithResultSink(s)
}

func WithCamera(track VideoTrack) RuntimeOption {
	return base.WithCamera(track)
}

func WithSampleListener(fn func(Sample)) RuntimeOption {
	return base.WithSampleListener(fn)
}

// Sink adapters.
func NewCallbackSink(name string, fn RunFunc) ResultSink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (ResultSink, <-chan RunReport, func()) {
	return base.NewChannelSink(name, buffer)
}

// LoadJournal reads a recorded NDJSON sample journal for offline evaluation.
func LoadJournal(path string, targetWidth, targetHeight int) (*Replay, error) {
	return base.LoadJournal(path, targetWidth, targetHeight)
}
