package harness

import (
	"context"
	"testing"
	"time"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

func TestPumpProcessesFramesUntilTrackEnds(t *testing.T) {
	canvas := NewCanvas(640, 480, 30)
	codec := &fakeCodec{}
	obs := newFakeObs()
	pump := NewFramePump(canvas, codec, func() float64 { return 1000 }, PumpConfig{Overlay: true, QRSize: 200}, obs)

	track := newFakeTrack(8)
	for i := 0; i < 5; i++ {
		track.push(640, 480)
	}
	track.close()

	if err := pump.Start(context.Background(), track); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-pump.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not stop on track end")
	}

	if got := obs.counter("hub_frames_pumped_total"); got != 5 {
		t.Fatalf("expected 5 pumped frames, got %v", got)
	}
	if got := codec.encodedCount(); got != 5 {
		t.Fatalf("expected 5 overlay encodes, got %v", got)
	}
	if pump.State() != PumpStopped {
		t.Fatalf("expected stopped state, got %s", pump.State())
	}
}

func TestPumpStopIsCooperative(t *testing.T) {
	canvas := NewCanvas(640, 480, 30)
	obs := newFakeObs()
	pump := NewFramePump(canvas, &fakeCodec{}, func() float64 { return 0 }, PumpConfig{}, obs)

	track := newFakeTrack(0)
	processed := make(chan struct{}, 16)
	pump.OnFrame(func(ports.VideoTrack) { processed <- struct{}{} })

	if err := pump.Start(context.Background(), track); err != nil {
		t.Fatalf("start: %v", err)
	}

	track.push(640, 480)
	<-processed

	// The loop is now blocked in ReadFrame. Stopping and handing it one
	// more frame must let at most that single in-flight frame through.
	pump.Stop()
	track.push(640, 480)

	select {
	case <-pump.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not observe stop flag")
	}

	extra := len(processed)
	if extra > 1 {
		t.Fatalf("expected at most one frame after stop, got %d", extra)
	}
}

func TestPumpRunsAtMostOnce(t *testing.T) {
	canvas := NewCanvas(640, 480, 30)
	pump := NewFramePump(canvas, &fakeCodec{}, func() float64 { return 0 }, PumpConfig{}, newFakeObs())

	track := newFakeTrack(1)
	track.close()

	if err := pump.Start(context.Background(), track); err != nil {
		t.Fatalf("first start: %v", err)
	}
	<-pump.Done()

	if err := pump.Start(context.Background(), track); err == nil {
		t.Fatal("expected error restarting a stopped pump")
	}
}

func TestPumpWithoutOverlayDrawsBackground(t *testing.T) {
	canvas := NewCanvas(16, 16, 30)
	codec := &fakeCodec{}
	pump := NewFramePump(canvas, codec, func() float64 { return 0 }, PumpConfig{}, newFakeObs())

	pump.step(grayFrame(16, 16), newFakeTrack(0))

	if got := codec.encodedCount(); got != 0 {
		t.Fatalf("remote pump must not encode overlays, got %d", got)
	}
	r, _, _, _ := canvas.Region(OverlayRegion(4)).At(0, 0).RGBA()
	if r>>8 != 0x80 {
		t.Fatalf("expected background pixel 0x80, got %#x", r>>8)
	}
}

func TestPumpOverlayWithoutBackgroundClearsCanvas(t *testing.T) {
	canvas := NewCanvas(640, 480, 30)
	codec := &fakeCodec{}
	pump := NewFramePump(canvas, codec, func() float64 { return 12.5 }, PumpConfig{Overlay: true, QRSize: 200}, newFakeObs())

	pump.step(grayFrame(640, 480), newFakeTrack(0))

	if got := codec.encodedCount(); got != 1 {
		t.Fatalf("expected one overlay encode, got %d", got)
	}
	if codec.encoded[0] != "12.500" {
		t.Fatalf("expected encoded timestamp 12.500, got %q", codec.encoded[0])
	}
}
