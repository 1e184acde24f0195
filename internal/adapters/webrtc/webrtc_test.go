package webrtc

import (
	"context"
	"errors"
	"image"
	"io"
	"testing"
	"time"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)            {}
func (nopObs) LogError(string, error, ...ports.Field)    {}
func (nopObs) LogCritical(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)                {}
func (nopObs) ObserveLatency(string, float64)            {}
func (nopObs) SetGauge(string, float64)                  {}

type stubStream struct{}

func (stubStream) VideoTrack() ports.VideoTrack { return stubTrack{} }

type stubTrack struct{}

func (stubTrack) ReadFrame(context.Context) (*domain.Frame, error) { return nil, io.EOF }
func (stubTrack) Settings() ports.TrackSettings                    { return ports.TrackSettings{} }

func TestStartWithoutSignalingURLIsUnsupported(t *testing.T) {
	conn := New(Config{}, nopObs{})

	err := conn.Start(stubStream{})
	if !errors.Is(err, ports.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if conn.State() != ports.StateNew {
		t.Fatalf("expected state to stay new, got %s", conn.State())
	}
}

func TestConfigDefaultsJPEGQuality(t *testing.T) {
	conn := New(Config{JPEGQuality: 0}, nopObs{})
	if conn.cfg.JPEGQuality != 70 {
		t.Fatalf("expected default quality 70, got %d", conn.cfg.JPEGQuality)
	}
	conn = New(Config{JPEGQuality: 150}, nopObs{})
	if conn.cfg.JPEGQuality != 70 {
		t.Fatalf("expected out-of-range quality clamped to 70, got %d", conn.cfg.JPEGQuality)
	}
}

func TestRemoteTrackDeliversFramesAndSettings(t *testing.T) {
	track := newRemoteTrack()

	track.deliver(image.NewRGBA(image.Rect(0, 0, 320, 240)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f, err := track.ReadFrame(ctx)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if f.Width != 320 || f.Height != 240 {
		t.Fatalf("unexpected frame size %dx%d", f.Width, f.Height)
	}

	s := track.Settings()
	if s.Width != 320 || s.Height != 240 {
		t.Fatalf("unexpected settings %+v", s)
	}
}

func TestRemoteTrackEstimatesFPSFromArrivals(t *testing.T) {
	track := newRemoteTrack()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	track.deliver(img)
	if track.Settings().FrameRate != 0 {
		t.Fatal("single frame gives no rate estimate")
	}

	time.Sleep(20 * time.Millisecond)
	track.deliver(img)
	fps := track.Settings().FrameRate
	if fps <= 0 || fps > 200 {
		t.Fatalf("implausible fps estimate %v", fps)
	}
}

func TestRemoteTrackDropsWhenReaderLags(t *testing.T) {
	track := newRemoteTrack()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	track.deliver(img)
	track.deliver(img) // slot full, dropped

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := track.ReadFrame(ctx); err != nil {
		t.Fatalf("read frame: %v", err)
	}

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer shortCancel()
	if _, err := track.ReadFrame(shortCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected empty track after drop, got %v", err)
	}
}

func TestRemoteTrackCloseEndsReads(t *testing.T) {
	track := newRemoteTrack()
	track.close()
	track.close() // idempotent
	track.deliver(image.NewRGBA(image.Rect(0, 0, 4, 4)))

	if _, err := track.ReadFrame(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after close, got %v", err)
	}
}
