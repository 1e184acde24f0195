package latencytest

import (
	"github.com/michaelmahersoftware/experimental-hub-test/internal/app/harness"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/eval"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

// Sample is one per-frame latency measurement. Mirrors the internal domain
// type so custom sinks and listeners can reference it directly.
type Sample = domain.Sample

// RunResult is the persisted outcome of a finished run.
type RunResult = domain.RunResult

// InvalidLatency marks a sample whose barcode decode failed.
const InvalidLatency = domain.InvalidLatency

// Connection transports the local capture stream to a peer and surfaces the
// remote stream coming back.
type Connection = ports.Connection

// ConnectionState is the connection lifecycle.
type ConnectionState = ports.ConnectionState

const (
	StateNew        = ports.StateNew
	StateConnecting = ports.StateConnecting
	StateConnected  = ports.StateConnected
	StateClosed     = ports.StateClosed
	StateFailed     = ports.StateFailed
)

// MediaStream bundles the tracks a connection carries.
type MediaStream = ports.MediaStream

// VideoTrack is a readable stream of decoded frames.
type VideoTrack = ports.VideoTrack

// TrackSettings describes a track's nominal rate and resolution.
type TrackSettings = ports.TrackSettings

// TimestampCodec encodes wall-clock timestamps into barcode images and back.
type TimestampCodec = ports.TimestampCodec

// SampleJournal is the per-sample diagnostic log.
type SampleJournal = ports.SampleJournal

// ResultSink persists finished runs.
type ResultSink = ports.ResultSink

// Observability emits structured logs and metrics.
type Observability = ports.Observability

// Field is a structured log field.
type Field = ports.Field

// Summary is the aggregate evaluation of a sample window.
type Summary = eval.Summary

// Series holds chart-ready per-frame sequences.
type Series = eval.Series

// Window selects a half-open sample range [From, To). The zero value covers
// the whole run.
type Window = eval.Window

// HarnessConfig carries the per-run test settings.
type HarnessConfig = harness.Config

// Clock supplies wall-clock milliseconds; override in tests for determinism.
type Clock = harness.Clock

// Re-exported sentinel errors.
var (
	ErrStartup     = ports.ErrStartup
	ErrUnsupported = ports.ErrUnsupported
	ErrDecode      = ports.ErrDecode
	ErrEmptyInput  = eval.ErrEmptyInput
)
