package harness

import (
	"math"
	"testing"

	"github.com/michaelmahersoftware/experimental-hub-test/internal/domain"
	"github.com/michaelmahersoftware/experimental-hub-test/internal/ports"
)

func TestSamplerComputesLatencyFromDecodedTimestamp(t *testing.T) {
	canvas := NewCanvas(640, 480, 30)
	codec := &fakeCodec{decodeVal: "1000.250"}
	obs := newFakeObs()

	var got []domain.Sample
	clock := func() float64 { return 1042.750 }
	s := NewSampler(canvas, codec, clock, 200, obs, func(sm domain.Sample) { got = append(got, sm) })

	s.Step(newFakeTrack(0))

	if len(got) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(got))
	}
	if math.Abs(got[0].LatencyMs-42.5) > 1e-9 {
		t.Fatalf("expected latency 42.5, got %v", got[0].LatencyMs)
	}
	if !got[0].Valid() {
		t.Fatal("expected valid sample")
	}
	if got[0].Width != 640 || got[0].Height != 480 {
		t.Fatalf("expected track resolution 640x480, got %dx%d", got[0].Width, got[0].Height)
	}
	if got[0].FPS != 30 {
		t.Fatalf("expected fps 30, got %v", got[0].FPS)
	}
}

func TestSamplerRecordsInvalidSampleOnDecodeFailure(t *testing.T) {
	canvas := NewCanvas(640, 480, 30)
	codec := &fakeCodec{decodeErr: ports.ErrDecode}
	obs := newFakeObs()

	var got []domain.Sample
	s := NewSampler(canvas, codec, func() float64 { return 5 }, 200, obs, func(sm domain.Sample) { got = append(got, sm) })

	s.Step(newFakeTrack(0))

	if len(got) != 1 {
		t.Fatalf("expected the failed measurement to still be recorded, got %d samples", len(got))
	}
	if got[0].LatencyMs != domain.InvalidLatency {
		t.Fatalf("expected sentinel latency, got %v", got[0].LatencyMs)
	}
	if got[0].Valid() {
		t.Fatal("expected invalid sample")
	}
	if obs.counter("hub_decode_failures_total") != 1 {
		t.Fatal("expected decode failure counter increment")
	}
}

func TestSamplerRejectsNonNumericPayload(t *testing.T) {
	canvas := NewCanvas(640, 480, 30)
	codec := &fakeCodec{decodeVal: "hello"}

	var got []domain.Sample
	s := NewSampler(canvas, codec, func() float64 { return 5 }, 200, newFakeObs(), func(sm domain.Sample) { got = append(got, sm) })

	s.Step(newFakeTrack(0))

	if got[0].LatencyMs != domain.InvalidLatency {
		t.Fatalf("expected sentinel latency for non-numeric payload, got %v", got[0].LatencyMs)
	}
}

func TestSamplerFrameIndexesAreGapFree(t *testing.T) {
	canvas := NewCanvas(640, 480, 30)
	codec := &fakeCodec{decodeVal: "1.000"}

	var got []domain.Sample
	s := NewSampler(canvas, codec, func() float64 { return 2 }, 200, newFakeObs(), func(sm domain.Sample) { got = append(got, sm) })

	track := newFakeTrack(0)
	for i := 0; i < 4; i++ {
		if i == 2 {
			codec.decodeErr = ports.ErrDecode
		} else {
			codec.decodeErr = nil
		}
		s.Step(track)
	}

	for i, sm := range got {
		if sm.FrameIndex != i {
			t.Fatalf("expected frame index %d, got %d", i, sm.FrameIndex)
		}
	}
	if got[2].Valid() {
		t.Fatal("expected sample 2 to be invalid")
	}
}
