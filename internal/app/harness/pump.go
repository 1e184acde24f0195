package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

// PumpState is the frame pump lifecycle: Idle until Start, Running while the
// loop is live, Stopped once it has exited. A pump runs at most once.
type PumpState int32

const (
	PumpIdle PumpState = iota
	PumpRunning
	PumpStopped
)

func (s PumpState) String() string {
	switch s {
	case PumpIdle:
		return "idle"
	case PumpRunning:
		return "running"
	case PumpStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PumpConfig selects what each iteration composites onto the canvas.
type PumpConfig struct {
	// Overlay composites a freshly encoded timestamp barcode onto each
	// frame and publishes the result to the capture stream. Set on the
	// local (outgoing) pump only; the remote pump must leave the incoming
	// overlay untouched for readback.
	Overlay bool
	// Background draws the source frame behind the overlay. When false the
	// overlay is composited over a blank surface.
	Background bool
	QRSize     int
}

// FramePump continuously drains decoded frames from one live video track and
// composites them onto its canvas. The local and remote pumps run as
// independent goroutines; neither ever waits on the other.
type FramePump struct {
	canvas *Canvas
	codec  ports.TimestampCodec
	clock  Clock
	cfg    PumpConfig
	obs    ports.Observability

	// onFrame runs after each frame is drawn, before the frame is
	// released. The remote pump hooks the latency sampler here.
	onFrame func(track ports.VideoTrack)

	stopFlag atomic.Bool
	state    atomic.Int32
	done     chan struct{}
}

func NewFramePump(canvas *Canvas, codec ports.TimestampCodec, clock Clock, cfg PumpConfig, obs ports.Observability) *FramePump {
	return &FramePump{
		canvas: canvas,
		codec:  codec,
		clock:  clock,
		cfg:    cfg,
		obs:    obs,
		done:   make(chan struct{}),
	}
}

// OnFrame installs the per-frame hook. Must be called before Start.
func (p *FramePump) OnFrame(fn func(track ports.VideoTrack)) {
	p.onFrame = fn
}

// Start transitions Idle -> Running and begins the frame loop.
func (p *FramePump) Start(ctx context.Context, track ports.VideoTrack) error {
	if !p.state.CompareAndSwap(int32(PumpIdle), int32(PumpRunning)) {
		return fmt.Errorf("pump: cannot start from state %s", PumpState(p.state.Load()))
	}
	go p.run(ctx, track)
	return nil
}

// Stop requests a cooperative stop. The flag is observed between iterations;
// an in-flight frame acquisition still completes, so at most one more frame
// is processed after Stop returns.
func (p *FramePump) Stop() {
	p.stopFlag.Store(true)
}

func (p *FramePump) State() PumpState {
	return PumpState(p.state.Load())
}

// Done is closed once the loop has fully quiesced.
func (p *FramePump) Done() <-chan struct{} {
	return p.done
}

func (p *FramePump) run(ctx context.Context, track ports.VideoTrack) {
	defer func() {
		p.state.Store(int32(PumpStopped))
		close(p.done)
	}()

	for {
		if p.stopFlag.Load() {
			return
		}

		frame, err := track.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			p.obs.LogError("pump_read_frame", err)
			return
		}

		p.step(frame, track)
		frame.Release()
	}
}

func (p *FramePump) step(frame *domain.Frame, track ports.VideoTrack) {
	p.canvas.Resize(frame.Width, frame.Height)

	if p.cfg.Background || !p.cfg.Overlay {
		p.canvas.DrawFrame(frame)
	} else {
		p.canvas.Clear()
	}

	if p.cfg.Overlay {
		value := formatTimestamp(p.clock())
		overlay, err := p.codec.Encode(value, p.cfg.QRSize)
		if err != nil {
			p.obs.LogError("pump_encode_overlay", err)
		} else {
			p.canvas.DrawOverlay(overlay)
		}
		if !p.canvas.Publish() {
			p.obs.IncCounter("hub_capture_frames_dropped_total", 1)
		}
	}

	p.obs.IncCounter("hub_frames_pumped_total", 1)

	if p.onFrame != nil {
		p.onFrame(track)
	}
}
