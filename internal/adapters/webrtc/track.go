package webrtc

import (
	"context"
	"image"
	"io"
	"sync"
	"time"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

// fpsSmoothing is the EWMA weight for new inter-arrival measurements.
const fpsSmoothing = 0.2

// remoteTrack exposes frames decoded off the inbound data channel as a video
// track. The transport carries no track metadata, so the frame rate is
// estimated from inter-arrival times and the resolution is read off the
// latest decoded frame.
type remoteTrack struct {
	mu     sync.Mutex
	closed bool
	frames chan *domain.Frame
	lastAt time.Time
	fps    float64
	width  int
	height int
}

func newRemoteTrack() *remoteTrack {
	return &remoteTrack{frames: make(chan *domain.Frame, 1)}
}

func (t *remoteTrack) VideoTrack() ports.VideoTrack { return t }

// deliver hands a decoded frame to the reader, dropping it when the reader
// lags, and folds the arrival time into the FPS estimate.
func (t *remoteTrack) deliver(img image.Image) {
	now := time.Now()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	b := img.Bounds()
	t.width, t.height = b.Dx(), b.Dy()
	if !t.lastAt.IsZero() {
		if dt := now.Sub(t.lastAt).Seconds(); dt > 0 {
			instant := 1 / dt
			if t.fps == 0 {
				t.fps = instant
			} else {
				t.fps = (1-fpsSmoothing)*t.fps + fpsSmoothing*instant
			}
		}
	}
	t.lastAt = now

	select {
	case t.frames <- domain.NewFrame(img, nil):
	default:
	}
	t.mu.Unlock()
}

func (t *remoteTrack) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.frames)
	}
}

func (t *remoteTrack) ReadFrame(ctx context.Context) (*domain.Frame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case f, ok := <-t.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	}
}

func (t *remoteTrack) Settings() ports.TrackSettings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ports.TrackSettings{FrameRate: t.fps, Width: t.width, Height: t.height}
}

var (
	_ ports.MediaStream = (*remoteTrack)(nil)
	_ ports.VideoTrack  = (*remoteTrack)(nil)
)
