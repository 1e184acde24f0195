package ports

import (
	"context"
	"errors"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
)

// ErrStartup indicates the local media source or connection could not be
// started; the run aborts before any frame loop begins.
var ErrStartup = errors.New("harness: startup failed")

// ErrUnsupported indicates the configured connection mode is not available
// in this environment. There is no fallback.
var ErrUnsupported = errors.New("harness: platform not supported")

// ConnectionState mirrors the state enum exposed by the connection layer.
type ConnectionState int

const (
	StateNew ConnectionState = iota
	StateConnecting
	StateConnected
	StateClosed
	StateFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the connection has permanently stopped. FAILED is
// handled identically to CLOSED; the two differ only in the label shown to
// the operator.
func (s ConnectionState) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// TrackSettings is a snapshot of the live track's negotiated capabilities.
type TrackSettings struct {
	FrameRate float64
	Width     int
	Height    int
}

// VideoTrack grants per-frame streaming access to a live video track.
// ReadFrame suspends until the next decoded frame is available; it returns
// io.EOF once the track has ended.
type VideoTrack interface {
	ReadFrame(ctx context.Context) (*domain.Frame, error)
	Settings() TrackSettings
}

// MediaStream bundles the video track of one side of a connection.
type MediaStream interface {
	VideoTrack() VideoTrack
}

// Connection is the external real-time connection collaborator. The harness
// only observes its state; reconnection and signaling belong to the
// implementation behind this interface.
type Connection interface {
	Start(local MediaStream) error
	Stop() error
	State() ConnectionState
	RemoteStream() MediaStream

	// OnStateChange and OnRemoteStreamChange register scoped observers.
	// The returned function deregisters the observer and must be called on
	// every teardown path.
	OnStateChange(fn func(ConnectionState)) (unsubscribe func())
	OnRemoteStreamChange(fn func(MediaStream)) (unsubscribe func())
}
